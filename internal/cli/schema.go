package cli

import (
	"encoding/json"
	"strings"
)

// SchemaCmd outputs JSON Schema for wfmon NDJSON output types
type SchemaCmd struct {
	Type []string `short:"t" help:"Output types to include (event,state,connection,notice,error,status). Default: all"`
}

// Run executes the schema command
func (c *SchemaCmd) Run(globals *Globals) error {
	schemas := map[string]interface{}{
		"event":      eventSchema(),
		"state":      stateSchema(),
		"connection": connectionSchema(),
		"notice":     noticeSchema(),
		"error":      errorSchema(),
		"status":     statusSchema(),
	}

	typesToOutput := c.Type
	if len(typesToOutput) == 0 {
		typesToOutput = []string{"event", "state", "connection", "notice", "error", "status"}
	}

	out := map[string]interface{}{
		"$schema":     "http://json-schema.org/draft-07/schema#",
		"title":       "wfmon Output Schemas",
		"description": "JSON Schema definitions for all wfmon NDJSON output types",
		"definitions": map[string]interface{}{},
	}

	defs := out["definitions"].(map[string]interface{})
	for _, t := range typesToOutput {
		t = strings.ToLower(strings.TrimSpace(t))
		if schema, ok := schemas[t]; ok {
			defs[t] = schema
		}
	}

	encoder := json.NewEncoder(globals.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func eventSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Event",
		"description": "A single agent lifecycle event",
		"properties": map[string]interface{}{
			"type": map[string]interface{}{
				"type":  "string",
				"const": "event",
			},
			"schemaVersion": map[string]interface{}{
				"type": "integer",
			},
			"event": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"timestamp": map[string]interface{}{
						"type":        "string",
						"format":      "date-time",
						"description": "ISO8601 timestamp assigned by the server",
					},
					"agent": map[string]interface{}{
						"type":        "string",
						"description": "Agent name (architect, coder, ...)",
					},
					"action": map[string]interface{}{
						"type":        "string",
						"description": "start, end, error, or a custom value",
					},
					"workflow": map[string]interface{}{
						"type":        []string{"string", "null"},
						"description": "Workflow name, null when none",
					},
					"parent": map[string]interface{}{
						"type":        []string{"string", "null"},
						"description": "Parent agent for causal nesting, null at the root",
					},
					"metadata": map[string]interface{}{
						"type":        "object",
						"description": "Opaque key-value pairs, passed through unmodified",
					},
				},
				"required": []string{"timestamp", "agent", "action", "workflow", "parent", "metadata"},
			},
		},
		"required": []string{"type", "schemaVersion", "event"},
	}
}

func stateSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Session State",
		"description": "The derived view of what is happening now",
		"properties": map[string]interface{}{
			"type": map[string]interface{}{
				"type":  "string",
				"const": "state",
			},
			"schemaVersion": map[string]interface{}{
				"type": "integer",
			},
			"active_agent": map[string]interface{}{
				"type":        []string{"string", "null"},
				"description": "Agent currently running, null when idle",
			},
			"active_workflow": map[string]interface{}{
				"type":        []string{"string", "null"},
				"description": "Workflow of the active agent",
			},
			"started_at": map[string]interface{}{
				"type":        []string{"string", "null"},
				"format":      "date-time",
				"description": "When the active agent started",
			},
			"event_count": map[string]interface{}{
				"type":        "integer",
				"description": "Running count of applied events",
			},
			"duration": map[string]interface{}{
				"type":        "string",
				"description": "Formatted elapsed time, '-' when idle",
			},
			"connected": map[string]interface{}{
				"type":        "boolean",
				"description": "Whether the stream connection is up",
			},
		},
		"required": []string{"type", "schemaVersion", "active_agent", "active_workflow", "started_at", "event_count", "duration", "connected"},
	}
}

func connectionSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Connection",
		"description": "A stream connection state transition",
		"properties": map[string]interface{}{
			"type": map[string]interface{}{
				"type":  "string",
				"const": "connection",
			},
			"schemaVersion": map[string]interface{}{
				"type": "integer",
			},
			"connected": map[string]interface{}{
				"type":        "boolean",
				"description": "True on connect, false on disconnect",
			},
		},
		"required": []string{"type", "schemaVersion", "connected"},
	}
}

func noticeSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Notice",
		"description": "A server-sent protocol notice, never fatal",
		"properties": map[string]interface{}{
			"type": map[string]interface{}{
				"type":  "string",
				"const": "notice",
			},
			"schemaVersion": map[string]interface{}{
				"type": "integer",
			},
			"message": map[string]interface{}{
				"type":        "string",
				"description": "Human-readable notice text",
			},
		},
		"required": []string{"type", "schemaVersion", "message"},
	}
}

func errorSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Error",
		"description": "A coded command failure",
		"properties": map[string]interface{}{
			"type": map[string]interface{}{
				"type":  "string",
				"const": "error",
			},
			"schemaVersion": map[string]interface{}{
				"type": "integer",
			},
			"code": map[string]interface{}{
				"type":        "string",
				"description": "Error code (e.g., SERVER_OFFLINE, FETCH_FAILED)",
				"enum": []string{
					"SERVER_OFFLINE",
					"EMIT_FAILED",
					"FETCH_FAILED",
					"CLEAR_FAILED",
					"INVALID_WHERE",
					"INVALID_META",
					"MISSING_AGENT",
				},
			},
			"message": map[string]interface{}{
				"type":        "string",
				"description": "Human-readable error description",
			},
			"hint": map[string]interface{}{
				"type":        "string",
				"description": "Suggested remediation, when known",
			},
		},
		"required": []string{"type", "schemaVersion", "code", "message"},
	}
}

func statusSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Status",
		"description": "A generic command status line",
		"properties": map[string]interface{}{
			"type": map[string]interface{}{
				"type":  "string",
				"const": "status",
			},
			"schemaVersion": map[string]interface{}{
				"type": "integer",
			},
			"status": map[string]interface{}{
				"type": "string",
			},
			"message": map[string]interface{}{
				"type": "string",
			},
		},
		"required": []string{"type", "schemaVersion", "status"},
	}
}
