package domain

import "encoding/json"

// Message envelope types pushed by the monitor server.
const (
	MessageInit  = "init"  // full resync snapshot sent on every fresh connection
	MessageEvent = "event" // one appended event
	MessageError = "error" // human-readable notice, never fatal
)

// Envelope is the WebSocket message envelope; Type discriminates which of
// the payload fields is populated.
type Envelope struct {
	Type    string        `json:"type"`
	Events  []Event       `json:"events,omitempty"`  // init
	State   *SessionState `json:"state,omitempty"`   // init
	Event   *Event        `json:"event,omitempty"`   // event
	Message string        `json:"message,omitempty"` // error
}

// DecodeEnvelope parses a raw frame into an Envelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}
