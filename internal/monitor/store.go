// Package monitor holds the client-side event log and the session state
// derived from it, plus the ticker that publishes the elapsed duration.
package monitor

import (
	"sync"

	"go.uber.org/zap"

	"github.com/mvidal/wfmon/internal/callbacks"
	"github.com/mvidal/wfmon/internal/domain"
)

// DefaultCapacity is the bound on the event log. Older events are truncated
// from the front; EventCount keeps counting past the bound.
const DefaultCapacity = 1000

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCapacity overrides the event log bound.
func WithCapacity(n int) StoreOption {
	return func(s *Store) { s.capacity = n }
}

// WithStoreLogger sets the logger used for protocol error notices.
func WithStoreLogger(log *zap.SugaredLogger) StoreOption {
	return func(s *Store) { s.log = log }
}

// WithErrorHandler sets a handler for protocol-level error messages. Error
// messages never mutate the log or the session state; they are surfaced
// here and to the logger only.
func WithErrorHandler(fn func(string)) StoreOption {
	return func(s *Store) { s.onError = fn }
}

// Store owns the bounded event log and the derived session state. Apply is
// the sole mutation entry point; identical message sequences always produce
// identical results.
type Store struct {
	capacity int
	log      *zap.SugaredLogger
	onError  func(string)

	mu      sync.Mutex
	events  []domain.Event
	applied int
	state   domain.SessionState

	subs callbacks.List[struct{}]
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		capacity: DefaultCapacity,
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply folds one envelope into the store. Init messages replace the log
// (and the session state, when a snapshot is supplied) wholesale; event
// messages append and reduce; error messages mutate nothing.
func (s *Store) Apply(msg domain.Envelope) {
	switch msg.Type {
	case domain.MessageInit:
		s.applyInit(msg)
	case domain.MessageEvent:
		if msg.Event == nil {
			return
		}
		s.applyEvent(*msg.Event)
	case domain.MessageError:
		s.log.Warnw("server error notice", "message", msg.Message)
		if s.onError != nil {
			s.onError(msg.Message)
		}
	default:
		s.log.Debugw("ignoring unknown message type", "type", msg.Type)
	}
}

func (s *Store) applyInit(msg domain.Envelope) {
	s.mu.Lock()
	s.events = append([]domain.Event(nil), msg.Events...)
	if msg.State != nil {
		s.state = *msg.State
		s.applied = msg.State.EventCount
	} else {
		s.applied = len(s.events)
	}
	s.mu.Unlock()

	s.subs.Notify(struct{}{})
}

func (s *Store) applyEvent(e domain.Event) {
	s.mu.Lock()
	// EventCount is the ordinal of this event: a monotonic count of every
	// event ever applied. It keeps rising without bound once the log starts
	// truncating, so it is never derivable from the log length.
	s.applied++
	count := s.applied

	s.events = append(s.events, e)
	for len(s.events) > s.capacity {
		s.events = s.events[1:]
	}

	switch e.Action {
	case domain.ActionStart:
		// A new start always preempts whatever was active.
		agent := e.Agent
		ts := e.Timestamp
		s.state.ActiveAgent = &agent
		s.state.ActiveWorkflow = e.Workflow
		s.state.StartedAt = &ts
	case domain.ActionEnd:
		// An end for a non-active agent is recorded but changes nothing.
		if s.state.ActiveAgent != nil && *s.state.ActiveAgent == e.Agent {
			s.state.ActiveAgent = nil
			s.state.ActiveWorkflow = nil
			s.state.StartedAt = nil
		}
	}

	s.state.EventCount = count
	s.mu.Unlock()

	s.subs.Notify(struct{}{})
}

// Reset clears the log and the session state back to empty.
func (s *Store) Reset() {
	s.mu.Lock()
	s.events = nil
	s.applied = 0
	s.state = domain.SessionState{}
	s.mu.Unlock()

	s.subs.Notify(struct{}{})
}

// Events returns a copy of the current log, oldest first.
func (s *Store) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.events...)
}

// State returns the current session state.
func (s *Store) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers a change handler invoked after every mutating Apply
// and after Reset. The returned function unsubscribes; a second call is a
// no-op. Handlers must not call Apply re-entrantly.
func (s *Store) Subscribe(fn func()) func() {
	return s.subs.Add(func(struct{}) { fn() })
}
