package transport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvidal/wfmon/internal/domain"
)

// wsHarness is a minimal WebSocket server that records accepted connections
// so tests can push frames and force closes.
type wsHarness struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader
	accepts  atomic.Int64

	mu         sync.Mutex
	conns      []*websocket.Conn
	closeCodes chan int
}

func newWSHarness(t *testing.T) *wsHarness {
	t.Helper()
	h := &wsHarness{closeCodes: make(chan int, 16)}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.accepts.Add(1)
		h.mu.Lock()
		h.conns = append(h.conns, conn)
		h.mu.Unlock()
		// Drain until the peer goes away, recording the close code if the
		// peer performed a close handshake.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					var ce *websocket.CloseError
					if errors.As(err, &ce) {
						h.closeCodes <- ce.Code
					}
					return
				}
			}
		}()
	}))
	t.Cleanup(h.srv.Close)
	return h
}

func (h *wsHarness) url() string {
	return "ws" + strings.TrimPrefix(h.srv.URL, "http")
}

func (h *wsHarness) latest(t *testing.T) *websocket.Conn {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(t, h.conns)
	return h.conns[len(h.conns)-1]
}

func (h *wsHarness) send(t *testing.T, payload string) {
	t.Helper()
	require.NoError(t, h.latest(t).WriteMessage(websocket.TextMessage, []byte(payload)))
}

func (h *wsHarness) closeLatest(t *testing.T) {
	t.Helper()
	h.latest(t).Close()
}

func connected(t *testing.T, tr *Transport) chan bool {
	t.Helper()
	ch := make(chan bool, 16)
	tr.OnConnectionChange(func(up bool) { ch <- up })
	return ch
}

func waitChange(t *testing.T, ch chan bool, want bool) {
	t.Helper()
	select {
	case got := <-ch:
		require.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for connection change %v", want)
	}
}

func TestTransportConnect(t *testing.T) {
	h := newWSHarness(t)
	tr := New(h.url())
	ch := connected(t, tr)

	tr.Connect()
	waitChange(t, ch, true)
	assert.True(t, tr.IsConnected())

	tr.Disconnect()
	waitChange(t, ch, false)
	assert.False(t, tr.IsConnected())
}

func TestTransportDisconnectClosesCleanly(t *testing.T) {
	h := newWSHarness(t)
	tr := New(h.url())
	ch := connected(t, tr)

	tr.Connect()
	waitChange(t, ch, true)

	start := time.Now()
	tr.Disconnect()
	waitChange(t, ch, false)
	// The close write carries a deadline, so Disconnect never hangs on a
	// stalled peer.
	assert.Less(t, time.Since(start), 2*time.Second)

	select {
	case code := <-h.closeCodes:
		assert.Equal(t, websocket.CloseNormalClosure, code)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for close handshake")
	}
}

func TestTransportConnectIdempotent(t *testing.T) {
	h := newWSHarness(t)
	tr := New(h.url())
	ch := connected(t, tr)

	tr.Connect()
	waitChange(t, ch, true)
	tr.Connect()
	tr.Connect()

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, h.accepts.Load())
	tr.Disconnect()
}

func TestTransportMessageFanout(t *testing.T) {
	h := newWSHarness(t)
	tr := New(h.url())
	ch := connected(t, tr)

	var mu sync.Mutex
	var seen []string
	record := func(name string) func(domain.Envelope) {
		return func(env domain.Envelope) {
			mu.Lock()
			seen = append(seen, name+":"+env.Event.Agent)
			mu.Unlock()
		}
	}

	tr.OnMessage(record("a"))
	unsubB := tr.OnMessage(record("b"))

	tr.Connect()
	defer tr.Disconnect()
	waitChange(t, ch, true)

	h.send(t, `{"type":"event","event":{"timestamp":"t1","agent":"architect","action":"start","workflow":null,"parent":null,"metadata":{}}}`)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, 2*time.Second, 5*time.Millisecond)

	// Both handlers got the message, in registration order.
	mu.Lock()
	assert.Equal(t, []string{"a:architect", "b:architect"}, seen)
	mu.Unlock()

	unsubB()
	h.send(t, `{"type":"event","event":{"timestamp":"t2","agent":"coder","action":"start","workflow":null,"parent":null,"metadata":{}}}`)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "a:coder", seen[2])
	mu.Unlock()
}

func TestTransportDropsUndecodableFrames(t *testing.T) {
	h := newWSHarness(t)
	tr := New(h.url())
	ch := connected(t, tr)

	msgs := make(chan domain.Envelope, 16)
	tr.OnMessage(func(env domain.Envelope) { msgs <- env })

	tr.Connect()
	defer tr.Disconnect()
	waitChange(t, ch, true)

	h.send(t, `{{{not json`)
	h.send(t, `{"type":"error","message":"still alive"}`)

	select {
	case env := <-msgs:
		// The malformed frame was swallowed; only the valid one arrives.
		assert.Equal(t, domain.MessageError, env.Type)
		assert.Equal(t, "still alive", env.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	assert.True(t, tr.IsConnected())
}

func TestTransportReconnectsAfterServerClose(t *testing.T) {
	h := newWSHarness(t)
	mock := clock.NewMock()
	tr := New(h.url(), WithClock(mock))
	ch := connected(t, tr)

	tr.Connect()
	defer tr.Disconnect()
	waitChange(t, ch, true)

	h.closeLatest(t)
	waitChange(t, ch, false)

	// Give handleClose time to arm the reconnect timer, then fire it.
	time.Sleep(50 * time.Millisecond)
	mock.Add(DefaultReconnectDelay)

	waitChange(t, ch, true)
	assert.EqualValues(t, 2, h.accepts.Load())
}

func TestTransportSingleReconnectTimer(t *testing.T) {
	h := newWSHarness(t)
	mock := clock.NewMock()
	tr := New(h.url(), WithClock(mock))
	ch := connected(t, tr)

	tr.Connect()
	defer tr.Disconnect()
	waitChange(t, ch, true)

	h.closeLatest(t)
	waitChange(t, ch, false)
	time.Sleep(50 * time.Millisecond)

	// Advancing well past several delays must produce exactly one redial.
	mock.Add(10 * DefaultReconnectDelay)
	waitChange(t, ch, true)

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 2, h.accepts.Load())
}

func TestTransportDisconnectCancelsPendingReconnect(t *testing.T) {
	h := newWSHarness(t)
	mock := clock.NewMock()
	tr := New(h.url(), WithClock(mock))
	ch := connected(t, tr)

	tr.Connect()
	waitChange(t, ch, true)

	h.closeLatest(t)
	waitChange(t, ch, false)
	time.Sleep(50 * time.Millisecond)

	tr.Disconnect()
	mock.Add(10 * DefaultReconnectDelay)

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, h.accepts.Load())
	assert.False(t, tr.IsConnected())
}

func TestTransportManualCloseDoesNotReconnect(t *testing.T) {
	h := newWSHarness(t)
	mock := clock.NewMock()
	tr := New(h.url(), WithClock(mock))
	ch := connected(t, tr)

	tr.Connect()
	waitChange(t, ch, true)

	tr.Disconnect()
	waitChange(t, ch, false)

	mock.Add(10 * DefaultReconnectDelay)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, h.accepts.Load())
}

func TestTransportDialFailureSchedulesReconnect(t *testing.T) {
	// A server that exists only to produce a dialable URL, then goes away.
	h := newWSHarness(t)
	url := h.url()
	h.srv.Close()

	mock := clock.NewMock()
	tr := New(url, WithClock(mock))
	ch := connected(t, tr)

	tr.Connect()
	defer tr.Disconnect()

	// Dial failure reports disconnected and arms the retry timer.
	waitChange(t, ch, false)
	assert.False(t, tr.IsConnected())

	time.Sleep(50 * time.Millisecond)
	mock.Add(DefaultReconnectDelay)
	waitChange(t, ch, false)
}

func TestTransportSendWhenDisconnected(t *testing.T) {
	tr := New("ws://localhost:0/ws")
	err := tr.Send(domain.Envelope{Type: domain.MessageError})
	assert.ErrorIs(t, err, ErrNotConnected)
}
