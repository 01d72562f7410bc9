// Package output renders machine-readable NDJSON lines for commands, so AI
// agents and scripts can consume wfmon without parsing human text.
package output

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/mvidal/wfmon/internal/domain"
)

// SchemaVersion tags every NDJSON line.
const SchemaVersion = 1

// NDJSONWriter writes one JSON object per line. Safe for concurrent use.
type NDJSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewNDJSONWriter creates a writer emitting to w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{enc: json.NewEncoder(w)}
}

func (w *NDJSONWriter) write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(v)
}

// WriteEvent emits one lifecycle event line.
func (w *NDJSONWriter) WriteEvent(e domain.Event) error {
	return w.write(struct {
		Type          string       `json:"type"`
		SchemaVersion int          `json:"schemaVersion"`
		Event         domain.Event `json:"event"`
	}{"event", SchemaVersion, e})
}

// WriteState emits the current session state with the formatted duration and
// connection flag.
func (w *NDJSONWriter) WriteState(s domain.SessionState, duration string, connected bool) error {
	return w.write(struct {
		Type           string  `json:"type"`
		SchemaVersion  int     `json:"schemaVersion"`
		ActiveAgent    *string `json:"active_agent"`
		ActiveWorkflow *string `json:"active_workflow"`
		StartedAt      *string `json:"started_at"`
		EventCount     int     `json:"event_count"`
		Duration       string  `json:"duration"`
		Connected      bool    `json:"connected"`
	}{"state", SchemaVersion, s.ActiveAgent, s.ActiveWorkflow, s.StartedAt, s.EventCount, duration, connected})
}

// WriteConnection emits a connection state transition.
func (w *NDJSONWriter) WriteConnection(connected bool) error {
	return w.write(struct {
		Type          string `json:"type"`
		SchemaVersion int    `json:"schemaVersion"`
		Connected     bool   `json:"connected"`
	}{"connection", SchemaVersion, connected})
}

// WriteNotice emits a server-sent error notice (protocol-level, not fatal).
func (w *NDJSONWriter) WriteNotice(message string) error {
	return w.write(struct {
		Type          string `json:"type"`
		SchemaVersion int    `json:"schemaVersion"`
		Message       string `json:"message"`
	}{"notice", SchemaVersion, message})
}

// WriteError emits a coded command failure, with an optional hint.
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	line := struct {
		Type          string `json:"type"`
		SchemaVersion int    `json:"schemaVersion"`
		Code          string `json:"code"`
		Message       string `json:"message"`
		Hint          string `json:"hint,omitempty"`
	}{Type: "error", SchemaVersion: SchemaVersion, Code: code, Message: message}
	if len(hint) > 0 {
		line.Hint = hint[0]
	}
	return w.write(line)
}

// WriteStatus emits a generic status line ({"type":"status","status":...}).
func (w *NDJSONWriter) WriteStatus(status, message string) error {
	return w.write(struct {
		Type          string `json:"type"`
		SchemaVersion int    `json:"schemaVersion"`
		Status        string `json:"status"`
		Message       string `json:"message,omitempty"`
	}{"status", SchemaVersion, status, message})
}
