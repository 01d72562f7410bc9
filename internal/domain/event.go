package domain

import "time"

// Lifecycle actions with reducer semantics. Any other action value is
// accepted, logged, and counted without touching session state.
const (
	ActionStart = "start"
	ActionEnd   = "end"
	ActionError = "error"
)

// Event is one immutable lifecycle notification from an agent/workflow.
// Workflow and parent are nullable on the wire and must round-trip JSON null.
type Event struct {
	Timestamp string         `json:"timestamp"` // ISO8601 timestamp
	Agent     string         `json:"agent"`     // Agent name (architect, coder, ...)
	Action    string         `json:"action"`    // start, end, error, or open string
	Workflow  *string        `json:"workflow"`  // Workflow name, if any
	Parent    *string        `json:"parent"`    // Parent agent for causal nesting
	Metadata  map[string]any `json:"metadata"`  // Opaque, passed through unmodified
}

// EventCreate is the input shape for creating an event; the server assigns
// the timestamp.
type EventCreate struct {
	Agent    string         `json:"agent"`
	Action   string         `json:"action"`
	Workflow *string        `json:"workflow,omitempty"`
	Parent   *string        `json:"parent,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Event stamps the creation input into a full Event.
func (c EventCreate) Event() Event {
	meta := c.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Agent:     c.Agent,
		Action:    c.Action,
		Workflow:  c.Workflow,
		Parent:    c.Parent,
		Metadata:  meta,
	}
}

// SessionState is the derived view of what is happening now. The active
// fields are nil unless a start event is more recent than a matching end for
// the same agent. EventCount is the applied-event ordinal, not the log
// length; the two diverge once the log starts truncating.
type SessionState struct {
	ActiveAgent    *string `json:"active_agent"`
	ActiveWorkflow *string `json:"active_workflow"`
	StartedAt      *string `json:"started_at"`
	EventCount     int     `json:"event_count"`
}
