package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/mvidal/wfmon/internal/client"
	"github.com/mvidal/wfmon/internal/output"
)

// ClearCmd deletes the server-side event history and resets its state.
type ClearCmd struct{}

// Run executes the clear command
func (c *ClearCmd) Run(globals *Globals) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cl := client.New(globals.Config.BaseURL(), client.WithLogger(globals.Logger()))
	if err := cl.Clear(ctx); err != nil {
		return outputError(globals, "CLEAR_FAILED", err.Error(), "is the monitor server running?")
	}

	if globals.OutputFormat() == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).WriteStatus("ok", "events cleared")
	}
	if !globals.Quiet {
		fmt.Fprintln(globals.Stdout, "Events cleared")
	}
	return nil
}
