package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mvidal/wfmon/internal/domain"
	"github.com/mvidal/wfmon/internal/filter"
	"github.com/mvidal/wfmon/internal/monitor"
	"github.com/mvidal/wfmon/internal/output"
	"github.com/mvidal/wfmon/internal/transport"
)

// WatchCmd follows the live event stream and prints events, state changes,
// and connection transitions until interrupted.
type WatchCmd struct {
	ReconnectDelay time.Duration `help:"Delay between reconnect attempts" default:"${config_reconnect_delay}"`
	Capacity       int           `help:"Maximum events retained in memory" default:"${config_capacity}"`
	Where          []string      `short:"W" help:"Only print events matching condition like 'agent=architect' (repeatable, AND logic)"`
	Output         string        `short:"o" help:"Also write the NDJSON stream to this file; '{session}' in the path rotates per connection"`

	where   *filter.WhereFilter
	capture *capture
}

// Run executes the watch command
func (c *WatchCmd) Run(globals *Globals) error {
	where, err := filter.NewWhereFilter(c.Where)
	if err != nil {
		return outputError(globals, "INVALID_WHERE", err.Error())
	}
	c.where = where

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	format := globals.OutputFormat()
	writer := output.NewNDJSONWriter(globals.Stdout)
	log := globals.Logger()

	store := monitor.NewStore(
		monitor.WithCapacity(c.Capacity),
		monitor.WithStoreLogger(log),
		monitor.WithErrorHandler(func(msg string) {
			c.printNotice(globals, format, writer, msg)
		}),
	)

	wsURL := globals.Config.WebSocketURL()
	globals.Debug("Connecting to %s", wsURL)

	tr := transport.New(wsURL,
		transport.WithLogger(log),
		transport.WithReconnectDelay(c.ReconnectDelay),
	)

	ticker := monitor.NewTicker(store, nil)

	// The store handler registers first so the printer always observes
	// post-apply state.
	unsubApply := tr.OnMessage(store.Apply)
	defer unsubApply()
	unsubPrint := tr.OnMessage(func(env domain.Envelope) {
		c.printMessage(globals, format, writer, store, ticker, tr, env)
	})
	defer unsubPrint()
	if c.Output != "" {
		c.capture = newCapture(c.Output)
		defer c.capture.Close()
	}

	unsubConn := tr.OnConnectionChange(func(up bool) {
		if up && c.capture != nil {
			if path, cerr := c.capture.Rotate(); cerr != nil {
				log.Warnw("capture rotation failed", "error", cerr)
			} else {
				globals.Debug("Capturing stream to %s", path)
			}
		}
		c.printConnection(globals, format, writer, up)
	})
	defer unsubConn()

	tr.Connect()
	ticker.Start()
	defer func() {
		ticker.Stop()
		tr.Disconnect()
	}()

	<-ctx.Done()
	globals.Debug("Shutting down watch")
	return nil
}

func (c *WatchCmd) printMessage(globals *Globals, format string, writer *output.NDJSONWriter, store *monitor.Store, ticker *monitor.Ticker, tr *transport.Transport, env domain.Envelope) {
	c.captureMessage(store, ticker, tr, env)

	switch env.Type {
	case domain.MessageInit:
		state := store.State()
		if format == "ndjson" {
			writer.WriteState(state, ticker.Duration(), tr.IsConnected())
			return
		}
		fmt.Fprintf(globals.Stdout, "Synced: %d events\n", len(env.Events))
	case domain.MessageEvent:
		if env.Event == nil {
			return
		}
		// Display filter only; the store applies every event regardless.
		if !c.where.Match(env.Event) {
			return
		}
		if format == "ndjson" {
			writer.WriteEvent(*env.Event)
			writer.WriteState(store.State(), ticker.Duration(), tr.IsConnected())
			return
		}
		c.printEventText(globals, *env.Event)
	case domain.MessageError:
		c.printNotice(globals, format, writer, env.Message)
	}
}

// captureMessage mirrors the unfiltered stream to the capture file. The
// --where display filter does not apply here; the capture is a full record.
func (c *WatchCmd) captureMessage(store *monitor.Store, ticker *monitor.Ticker, tr *transport.Transport, env domain.Envelope) {
	if c.capture == nil {
		return
	}
	w := c.capture.Writer()
	if w == nil {
		return
	}

	switch env.Type {
	case domain.MessageInit:
		w.WriteState(store.State(), ticker.Duration(), tr.IsConnected())
	case domain.MessageEvent:
		if env.Event != nil {
			w.WriteEvent(*env.Event)
		}
	case domain.MessageError:
		w.WriteNotice(env.Message)
	}
	c.capture.Sync()
}

func (c *WatchCmd) printEventText(globals *Globals, e domain.Event) {
	workflow := "-"
	if e.Workflow != nil {
		workflow = *e.Workflow
	}
	fmt.Fprintf(globals.Stdout, "%s  %-14s %-8s %s\n", e.Timestamp, e.Agent, e.Action, workflow)
}

func (c *WatchCmd) printConnection(globals *Globals, format string, writer *output.NDJSONWriter, up bool) {
	if format == "ndjson" {
		writer.WriteConnection(up)
		return
	}
	if globals.Quiet {
		return
	}
	if up {
		fmt.Fprintln(globals.Stdout, "Connected")
	} else {
		fmt.Fprintln(globals.Stdout, "Disconnected, retrying...")
	}
}

func (c *WatchCmd) printNotice(globals *Globals, format string, writer *output.NDJSONWriter, msg string) {
	if format == "ndjson" {
		writer.WriteNotice(msg)
		return
	}
	fmt.Fprintf(globals.Stderr, "Server notice: %s\n", msg)
}
