package server

import (
	"sync"

	"github.com/mvidal/wfmon/internal/domain"
)

// eventStore is the server-side bounded event history. Unlike the client
// store, its event count is the retained log length; that is what the server
// has always reported in snapshots.
type eventStore struct {
	mu       sync.Mutex
	capacity int
	events   []domain.Event
	state    domain.SessionState
}

func newEventStore(capacity int) *eventStore {
	return &eventStore{capacity: capacity}
}

// Add stamps and stores a new event, updates the derived state, and returns
// the stored event.
func (s *eventStore) Add(create domain.EventCreate) domain.Event {
	event := create.Event()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	for len(s.events) > s.capacity {
		s.events = s.events[1:]
	}

	switch event.Action {
	case domain.ActionStart:
		agent := event.Agent
		ts := event.Timestamp
		s.state.ActiveAgent = &agent
		s.state.ActiveWorkflow = event.Workflow
		s.state.StartedAt = &ts
	case domain.ActionEnd:
		if s.state.ActiveAgent != nil && *s.state.ActiveAgent == event.Agent {
			s.state.ActiveAgent = nil
			s.state.ActiveWorkflow = nil
			s.state.StartedAt = nil
		}
	case domain.ActionError:
		// Agent stays active on error for visibility.
	}
	s.state.EventCount = len(s.events)

	return event
}

// Events returns up to limit most recent events, oldest first. limit <= 0
// returns everything retained.
func (s *eventStore) Events(limit int) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.events
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return append([]domain.Event(nil), events...)
}

// State returns the current derived state.
func (s *eventStore) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Clear drops all events and resets the state.
func (s *eventStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.state = domain.SessionState{}
}
