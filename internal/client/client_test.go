package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvidal/wfmon/internal/domain"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func healthyMux(t *testing.T) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	return mux
}

func TestClientEvents(t *testing.T) {
	var gotLimit atomic.Value
	mux := healthyMux(t)
	mux.HandleFunc("GET /api/events", func(w http.ResponseWriter, r *http.Request) {
		gotLimit.Store(r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode([]domain.Event{
			{Timestamp: "t1", Agent: "architect", Action: "start", Metadata: map[string]any{}},
			{Timestamp: "t2", Agent: "architect", Action: "end", Metadata: map[string]any{}},
		})
	})
	srv := newTestServer(t, mux)
	c := New(srv.URL)

	t.Run("with limit", func(t *testing.T) {
		events, err := c.Events(context.Background(), 50)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "architect", events[0].Agent)
		assert.Equal(t, "50", gotLimit.Load())
	})

	t.Run("no limit omits the parameter", func(t *testing.T) {
		_, err := c.Events(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, "", gotLimit.Load())
	})
}

func TestClientState(t *testing.T) {
	mux := healthyMux(t)
	mux.HandleFunc("GET /api/state", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.SessionState{
			ActiveAgent: lo.ToPtr("coder"),
			StartedAt:   lo.ToPtr("2026-01-02T15:04:05Z"),
			EventCount:  7,
		})
	})
	srv := newTestServer(t, mux)

	state, err := New(srv.URL).State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "coder", lo.FromPtrOr(state.ActiveAgent, ""))
	assert.Nil(t, state.ActiveWorkflow)
	assert.Equal(t, 7, state.EventCount)
}

func TestClientEmit(t *testing.T) {
	t.Run("posts and returns the stamped event", func(t *testing.T) {
		mux := healthyMux(t)
		mux.HandleFunc("POST /api/events", func(w http.ResponseWriter, r *http.Request) {
			var create domain.EventCreate
			require.NoError(t, json.NewDecoder(r.Body).Decode(&create))
			assert.Equal(t, "coder", create.Agent)
			json.NewEncoder(w).Encode(create.Event())
		})
		srv := newTestServer(t, mux)

		event, err := New(srv.URL).Emit(context.Background(), domain.EventCreate{
			Agent:  "coder",
			Action: domain.ActionStart,
		})
		require.NoError(t, err)
		assert.Equal(t, "coder", event.Agent)
		assert.NotEmpty(t, event.Timestamp)
	})

	t.Run("unreachable server", func(t *testing.T) {
		srv := newTestServer(t, http.NewServeMux())
		url := srv.URL
		srv.Close()

		_, err := New(url).Emit(context.Background(), domain.EventCreate{Agent: "a", Action: "start"})
		assert.ErrorIs(t, err, ErrServerUnavailable)
	})

	t.Run("error status surfaces", func(t *testing.T) {
		mux := healthyMux(t)
		mux.HandleFunc("POST /api/events", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		})
		srv := newTestServer(t, mux)

		_, err := New(srv.URL).Emit(context.Background(), domain.EventCreate{Agent: "a", Action: "start"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
	})
}

func TestClientClear(t *testing.T) {
	var cleared atomic.Bool
	mux := healthyMux(t)
	mux.HandleFunc("DELETE /api/events", func(w http.ResponseWriter, r *http.Request) {
		cleared.Store(true)
		json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
	})
	srv := newTestServer(t, mux)

	require.NoError(t, New(srv.URL).Clear(context.Background()))
	assert.True(t, cleared.Load())
}

func TestClientAvailabilityCache(t *testing.T) {
	var probes atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	srv := newTestServer(t, mux)

	mock := clock.NewMock()
	c := New(srv.URL, WithClock(mock))

	assert.True(t, c.Available(context.Background()))
	assert.True(t, c.Available(context.Background()))
	assert.EqualValues(t, 1, probes.Load(), "second check within the TTL uses the cache")

	mock.Add(availabilityTTL + time.Second)
	assert.True(t, c.Available(context.Background()))
	assert.EqualValues(t, 2, probes.Load(), "expired cache re-probes")
}
