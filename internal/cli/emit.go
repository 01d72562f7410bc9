package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/mvidal/wfmon/internal/client"
	"github.com/mvidal/wfmon/internal/domain"
	"github.com/mvidal/wfmon/internal/output"
)

// EmitCmd posts a lifecycle event to the monitor server.
type EmitCmd struct {
	Agent    string   `short:"a" help:"Agent name (architect, coder, ...)" default:"${config_agent}"`
	Action   string   `help:"Action: start, end, error, or a custom value" required:""`
	Workflow string   `short:"w" help:"Workflow name" default:"${config_workflow}"`
	Parent   string   `help:"Parent agent for causal nesting"`
	Meta     []string `help:"Metadata key=value pair (repeatable)"`
}

// Run executes the emit command
func (c *EmitCmd) Run(globals *Globals) error {
	if c.Agent == "" {
		return outputError(globals, "MISSING_AGENT", "agent is required", "pass --agent or set defaults.agent in wfmon.yaml")
	}

	metadata := map[string]any{}
	for _, pair := range c.Meta {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return outputError(globals, "INVALID_META", fmt.Sprintf("invalid metadata pair: %s", pair))
		}
		metadata[key] = value
	}

	create := domain.EventCreate{
		Agent:    c.Agent,
		Action:   c.Action,
		Workflow: lo.EmptyableToPtr(c.Workflow),
		Parent:   lo.EmptyableToPtr(c.Parent),
		Metadata: metadata,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cl := client.New(globals.Config.BaseURL(), client.WithLogger(globals.Logger()))
	event, err := cl.Emit(ctx, create)
	if err != nil {
		if errors.Is(err, client.ErrServerUnavailable) {
			return outputError(globals, "SERVER_OFFLINE", "monitor server not running", "start one with: wfmon serve")
		}
		return outputError(globals, "EMIT_FAILED", err.Error())
	}

	if globals.OutputFormat() == "ndjson" {
		output.NewNDJSONWriter(globals.Stdout).WriteEvent(event)
		return nil
	}
	if !globals.Quiet {
		fmt.Fprintf(globals.Stdout, "Emitted %s %s at %s\n", event.Agent, event.Action, event.Timestamp)
	}
	return nil
}
