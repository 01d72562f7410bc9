// Package cli implements the wfmon command tree.
package cli

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/mvidal/wfmon/internal/config"
)

// Version is the wfmon release version, overridable at link time.
var Version = "0.2.0"

// CLI is the top-level kong command tree.
type CLI struct {
	Globals

	Watch      WatchCmd      `cmd:"" help:"Follow the live event stream and print state changes"`
	Emit       EmitCmd       `cmd:"" help:"Emit a lifecycle event to the monitor server"`
	Events     EventsCmd     `cmd:"" help:"List recorded events"`
	Status     StatusCmd     `cmd:"" help:"Show the current monitor state"`
	Clear      ClearCmd      `cmd:"" help:"Clear the server-side event history"`
	Serve      ServeCmd      `cmd:"" help:"Run the monitor server"`
	Schema     SchemaCmd     `cmd:"" help:"Output JSON Schema for NDJSON output types"`
	Completion CompletionCmd `cmd:"" help:"Generate shell completions"`
	Update     UpdateCmd     `cmd:"" help:"Show upgrade instructions"`
	Version    VersionCmd    `cmd:"" help:"Show version information"`
}

// Globals holds flags shared by all commands.
type Globals struct {
	Format  string `help:"Output format: auto, ndjson, or text" enum:"auto,ndjson,text" default:"${config_format}"`
	Quiet   bool   `short:"q" help:"Suppress non-essential output"`
	Verbose bool   `help:"Enable verbose debug logging"`

	Stdout io.Writer      `kong:"-"`
	Stderr io.Writer      `kong:"-"`
	Config *config.Config `kong:"-"`

	logOnce sync.Once
	log     *zap.SugaredLogger
}

// OutputFormat resolves the effective format: "auto" becomes text on a
// terminal and ndjson everywhere else.
func (g *Globals) OutputFormat() string {
	if g.Format != "" && g.Format != "auto" {
		return g.Format
	}
	if f, ok := g.Stdout.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return "text"
	}
	return "ndjson"
}

// Logger returns the shared command logger, built once per process.
func (g *Globals) Logger() *zap.SugaredLogger {
	g.logOnce.Do(func() {
		g.log = newLogger(g)
	})
	return g.log
}

// Debug logs a formatted debug message when --verbose is set.
func (g *Globals) Debug(format string, args ...any) {
	if g == nil || !g.Verbose {
		return
	}
	g.Logger().Debugf(format, args...)
}
