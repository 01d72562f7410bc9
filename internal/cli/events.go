package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/mvidal/wfmon/internal/client"
	"github.com/mvidal/wfmon/internal/domain"
	"github.com/mvidal/wfmon/internal/filter"
	"github.com/mvidal/wfmon/internal/output"
)

// EventsCmd lists events recorded by the monitor server.
type EventsCmd struct {
	Limit int      `short:"n" help:"Maximum number of events to fetch" default:"${config_limit}"`
	Where []string `short:"W" help:"Filter condition like 'agent=architect' or 'workflow~design' (repeatable, AND logic)"`
}

// Run executes the events command
func (c *EventsCmd) Run(globals *Globals) error {
	where, err := filter.NewWhereFilter(c.Where)
	if err != nil {
		return outputError(globals, "INVALID_WHERE", err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cl := client.New(globals.Config.BaseURL(), client.WithLogger(globals.Logger()))
	events, err := cl.Events(ctx, c.Limit)
	if err != nil {
		return outputError(globals, "FETCH_FAILED", err.Error(), "is the monitor server running?")
	}

	events = lo.Filter(events, func(e domain.Event, _ int) bool {
		return where.Match(&e)
	})

	if globals.OutputFormat() == "ndjson" {
		writer := output.NewNDJSONWriter(globals.Stdout)
		for _, e := range events {
			writer.WriteEvent(e)
		}
		return nil
	}

	if len(events) == 0 {
		fmt.Fprintln(globals.Stdout, "No events recorded")
		return nil
	}

	rows := lo.Map(events, func(e domain.Event, _ int) []string {
		return []string{
			e.Timestamp,
			e.Agent,
			e.Action,
			lo.FromPtrOr(e.Workflow, "-"),
			lo.FromPtrOr(e.Parent, "-"),
		}
	})

	table := tablewriter.NewTable(globals.Stdout)
	table.Header("Timestamp", "Agent", "Action", "Workflow", "Parent")
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
