// Package client wraps the monitor server's REST API. The watch core does
// not depend on it; it serves the emit/status/events/clear commands and
// initial-load fallback.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/mvidal/wfmon/internal/domain"
)

const (
	requestTimeout = 5 * time.Second
	probeTimeout   = 500 * time.Millisecond

	// How long a health probe result is trusted before re-checking.
	availabilityTTL = 30 * time.Second
)

// ErrServerUnavailable is returned by Emit when the monitor server did not
// answer a recent health probe.
var ErrServerUnavailable = errors.New("monitor server not running")

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the client logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = log }
}

// WithClock injects the clock used for the availability cache TTL.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clk = clk }
}

// Client is a thin REST client for the monitor server.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.SugaredLogger
	clk     clock.Clock

	mu        sync.Mutex
	available *bool
	lastProbe time.Time
}

// New creates a client for the server at baseURL (e.g. "http://localhost:8765").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		log:     zap.NewNop().Sugar(),
		clk:     clock.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events fetches events from the server, newest last. limit <= 0 fetches
// everything the server retains.
func (c *Client) Events(ctx context.Context, limit int) ([]domain.Event, error) {
	url := c.baseURL + "/api/events"
	if limit > 0 {
		url = fmt.Sprintf("%s?limit=%d", url, limit)
	}
	var events []domain.Event
	if err := c.getJSON(ctx, url, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// State fetches the current session state snapshot.
func (c *Client) State(ctx context.Context) (domain.SessionState, error) {
	var state domain.SessionState
	if err := c.getJSON(ctx, c.baseURL+"/api/state", &state); err != nil {
		return domain.SessionState{}, err
	}
	return state, nil
}

// Emit posts a new event; the server assigns the timestamp and returns the
// created event. A cached health probe guards the call so emitting stays
// cheap while the server is down.
func (c *Client) Emit(ctx context.Context, create domain.EventCreate) (domain.Event, error) {
	if !c.Available(ctx) {
		return domain.Event{}, ErrServerUnavailable
	}

	body, err := json.Marshal(create)
	if err != nil {
		return domain.Event{}, fmt.Errorf("encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/events", bytes.NewReader(body))
	if err != nil {
		return domain.Event{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.markUnavailable()
		return domain.Event{}, fmt.Errorf("emit event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return domain.Event{}, fmt.Errorf("emit event: unexpected status %d", resp.StatusCode)
	}

	var event domain.Event
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return domain.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}

// Clear deletes the server-side event history and resets its state.
func (c *Client) Clear(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/events", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clear events: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Available reports whether the server answered a health probe within the
// cache TTL. The probe uses a short timeout so callers degrade quickly.
func (c *Client) Available(ctx context.Context) bool {
	c.mu.Lock()
	if c.available != nil && c.clk.Now().Sub(c.lastProbe) < availabilityTTL {
		ok := *c.available
		c.mu.Unlock()
		return ok
	}
	c.mu.Unlock()

	ok := c.probe(ctx)

	c.mu.Lock()
	c.available = &ok
	c.lastProbe = c.clk.Now()
	c.mu.Unlock()
	return ok
}

func (c *Client) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debugw("health probe failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (c *Client) markUnavailable() {
	no := false
	c.mu.Lock()
	c.available = &no
	c.lastProbe = c.clk.Now()
	c.mu.Unlock()
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
