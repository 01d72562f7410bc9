package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mvidal/wfmon/internal/server"
)

// ServeCmd runs the monitor server that agents emit events to and watch
// clients stream from.
type ServeCmd struct {
	Host     string `help:"Listen host" default:"localhost"`
	Port     int    `short:"p" help:"Listen port" default:"${config_port}"`
	Capacity int    `help:"Maximum events retained by the server" default:"1000"`
}

// Run executes the serve command
func (c *ServeCmd) Run(globals *Globals) error {
	srv := server.New(
		server.WithLogger(globals.Logger()),
		server.WithCapacity(c.Capacity),
	)

	addr := fmt.Sprintf("%s:%d", c.Host, c.Port)
	if !globals.Quiet {
		fmt.Fprintf(globals.Stdout, "Monitor server listening on http://%s (ws://%s/ws)\n", addr, addr)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
