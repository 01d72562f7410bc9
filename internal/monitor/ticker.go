package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// TickInterval is the duration ticker period.
const TickInterval = time.Second

// NoDuration is the sentinel shown while no session is active.
const NoDuration = "-"

// TickerOption configures a Ticker.
type TickerOption func(*Ticker)

// WithTickerClock injects the clock that drives the ticker.
func WithTickerClock(clk clock.Clock) TickerOption {
	return func(t *Ticker) { t.clk = clk }
}

// Ticker periodically recomputes the human-readable elapsed time of the
// active session from the store's started-at field. It owns no state of its
// own beyond the last formatted string.
type Ticker struct {
	clk    clock.Clock
	store  *Store
	onTick func(string)

	mu   sync.Mutex
	stop chan struct{}
	last string
}

// NewTicker creates a ticker reading from store. onTick receives the
// formatted duration on every tick; it may be nil.
func NewTicker(store *Store, onTick func(string), opts ...TickerOption) *Ticker {
	t := &Ticker{
		clk:    clock.New(),
		store:  store,
		onTick: onTick,
		last:   NoDuration,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins ticking at TickInterval. A second Start while running is a
// no-op.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return
	}
	t.stop = make(chan struct{})
	go t.run(t.stop)
}

// Stop halts the ticker. Safe to call when not running.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop == nil {
		return
	}
	close(t.stop)
	t.stop = nil
}

// Duration returns the most recently computed duration string.
func (t *Ticker) Duration() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func (t *Ticker) run(stop chan struct{}) {
	ticker := t.clk.Ticker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.tick()
		}
	}
}

func (t *Ticker) tick() {
	d := t.compute()

	t.mu.Lock()
	t.last = d
	t.mu.Unlock()

	if t.onTick != nil {
		t.onTick(d)
	}
}

func (t *Ticker) compute() string {
	startedAt := t.store.State().StartedAt
	if startedAt == nil {
		return NoDuration
	}
	start, err := time.Parse(time.RFC3339Nano, *startedAt)
	if err != nil {
		return NoDuration
	}
	return FormatDuration(t.clk.Now().Sub(start))
}

// FormatDuration renders an elapsed duration as "1h 1m", "1m 30s", or "45s"
// depending on magnitude. Negative durations are clamped to zero.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Seconds())
	switch {
	case secs >= 3600:
		return fmt.Sprintf("%dh %dm", secs/3600, (secs%3600)/60)
	case secs >= 60:
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
