package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/mvidal/wfmon/internal/client"
	"github.com/mvidal/wfmon/internal/monitor"
	"github.com/mvidal/wfmon/internal/output"
)

// StatusCmd shows the monitor server's current session state.
type StatusCmd struct{}

// Run executes the status command
func (c *StatusCmd) Run(globals *Globals) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cl := client.New(globals.Config.BaseURL(), client.WithLogger(globals.Logger()))
	state, err := cl.State(ctx)
	if err != nil {
		return outputError(globals, "FETCH_FAILED", err.Error(), "is the monitor server running?")
	}

	duration := monitor.NoDuration
	if state.StartedAt != nil {
		if start, perr := time.Parse(time.RFC3339Nano, *state.StartedAt); perr == nil {
			duration = monitor.FormatDuration(time.Since(start))
		}
	}

	if globals.OutputFormat() == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).WriteState(state, duration, true)
	}

	fmt.Fprintf(globals.Stdout, "Active agent:    %s\n", lo.FromPtrOr(state.ActiveAgent, "-"))
	fmt.Fprintf(globals.Stdout, "Active workflow: %s\n", lo.FromPtrOr(state.ActiveWorkflow, "-"))
	fmt.Fprintf(globals.Stdout, "Started at:      %s\n", lo.FromPtrOr(state.StartedAt, "-"))
	fmt.Fprintf(globals.Stdout, "Elapsed:         %s\n", duration)
	fmt.Fprintf(globals.Stdout, "Event count:     %d\n", state.EventCount)
	return nil
}
