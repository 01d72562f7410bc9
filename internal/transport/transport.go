// Package transport owns the reconnecting WebSocket connection to the
// monitor server. It has no knowledge of event semantics: it decodes frames
// into envelopes and fans them out to subscribers, and reports connection
// state transitions on a parallel path.
package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mvidal/wfmon/internal/callbacks"
	"github.com/mvidal/wfmon/internal/domain"
)

// DefaultReconnectDelay is the fixed delay between reconnect attempts.
// Retries are unbounded and the delay does not grow.
const DefaultReconnectDelay = 3 * time.Second

// ErrNotConnected is returned by Send when no socket is open.
var ErrNotConnected = errors.New("transport: not connected")

// Option configures a Transport.
type Option func(*Transport)

// WithClock injects the clock that drives the reconnect timer.
func WithClock(clk clock.Clock) Option {
	return func(t *Transport) { t.clk = clk }
}

// WithLogger sets the logger used for transport-level faults.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(t *Transport) { t.log = log }
}

// WithReconnectDelay overrides the fixed reconnect delay.
func WithReconnectDelay(d time.Duration) Option {
	return func(t *Transport) { t.delay = d }
}

// WithDialer overrides the WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(t *Transport) { t.dialer = d }
}

// Transport maintains a single duplex connection to the monitor server and
// re-establishes it after any non-manual close.
type Transport struct {
	url    string
	clk    clock.Clock
	log    *zap.SugaredLogger
	delay  time.Duration
	dialer *websocket.Dialer

	mu          sync.Mutex
	conn        *websocket.Conn
	dialing     bool
	manualClose bool
	reconnect   *clock.Timer

	messages    callbacks.List[domain.Envelope]
	connChanges callbacks.List[bool]
}

// New creates a transport for the given WebSocket URL. The transport is
// inert until Connect is called.
func New(url string, opts ...Option) *Transport {
	t := &Transport{
		url:    url,
		clk:    clock.New(),
		log:    zap.NewNop().Sugar(),
		delay:  DefaultReconnectDelay,
		dialer: websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Connect establishes the connection asynchronously. It is a no-op when a
// connection is already open or a dial is in flight, and it clears the
// manual-close flag so reconnection resumes.
func (t *Transport) Connect() {
	t.mu.Lock()
	t.manualClose = false
	if t.conn != nil || t.dialing {
		t.mu.Unlock()
		return
	}
	t.dialing = true
	t.cancelReconnectLocked()
	t.mu.Unlock()

	go t.dial()
}

// Disconnect closes the connection and suppresses reconnection. Any pending
// reconnect timer is cancelled. Safe to call when not connected.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.manualClose = true
	t.cancelReconnectLocked()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return
	}
	// Best-effort close handshake; the read pump observes the close and
	// notifies connection subscribers. The deadline keeps a stalled peer
	// from blocking Disconnect.
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
}

// IsConnected reports whether a socket is currently open.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// OnMessage registers a handler for decoded inbound envelopes. Handlers run
// in registration order. The returned function unsubscribes the handler; a
// second call is a no-op.
func (t *Transport) OnMessage(fn func(domain.Envelope)) func() {
	return t.messages.Add(fn)
}

// OnConnectionChange registers a handler for connection state transitions
// (true on open, false on close). Same ordering and unsubscribe semantics as
// OnMessage.
func (t *Transport) OnConnectionChange(fn func(bool)) func() {
	return t.connChanges.Add(fn)
}

// Send writes v as a JSON frame. Returns ErrNotConnected when no socket is
// open.
func (t *Transport) Send(v any) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	return conn.WriteJSON(v)
}

func (t *Transport) dial() {
	conn, _, err := t.dialer.Dial(t.url, nil)

	t.mu.Lock()
	t.dialing = false
	if t.manualClose {
		t.mu.Unlock()
		if err == nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		t.mu.Unlock()
		t.log.Debugw("dial failed", "url", t.url, "error", err)
		t.connChanges.Notify(false)
		t.scheduleReconnect()
		return
	}
	t.conn = conn
	t.mu.Unlock()

	t.connChanges.Notify(true)
	go t.readPump(conn)
}

// readPump reads frames until the connection drops, then routes the close
// through handleClose. Undecodable frames are logged and dropped; they never
// reach subscribers and never affect the connection.
func (t *Transport) readPump(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.log.Debugw("read error", "error", err)
			}
			t.handleClose(conn)
			return
		}

		env, err := domain.DecodeEnvelope(data)
		if err != nil {
			t.log.Debugw("dropping undecodable frame", "error", err)
			continue
		}
		t.messages.Notify(env)
	}
}

func (t *Transport) handleClose(conn *websocket.Conn) {
	t.mu.Lock()
	if t.conn != conn {
		// A stale pump from a previous connection.
		t.mu.Unlock()
		return
	}
	t.conn = nil
	manual := t.manualClose
	t.mu.Unlock()

	conn.Close()
	t.connChanges.Notify(false)
	if !manual {
		t.scheduleReconnect()
	}
}

// scheduleReconnect arms the reconnect timer unless one is already pending.
// At most one timer exists at a time.
func (t *Transport) scheduleReconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.manualClose || t.reconnect != nil {
		return
	}
	t.log.Debugw("scheduling reconnect", "delay", t.delay)
	t.reconnect = t.clk.AfterFunc(t.delay, func() {
		t.mu.Lock()
		t.reconnect = nil
		t.mu.Unlock()
		t.Connect()
	})
}

func (t *Transport) cancelReconnectLocked() {
	if t.reconnect != nil {
		t.reconnect.Stop()
		t.reconnect = nil
	}
}
