package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/mvidal/wfmon/internal/cli"
	"github.com/mvidal/wfmon/internal/config"
)

const quickStart = `wfmon - live monitoring for agent workflows

Quick start:
  wfmon serve                           Start the monitor server
  wfmon watch                           Follow the live event stream
  wfmon emit -a architect --action start -w design-feature

For help:
  wfmon --help                          All commands and flags
`

func main() {
	// Show quick start if no args provided
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Apply config defaults before parsing; CLI flags override them.
	vars := kong.Vars{
		"config_format":          cfg.Format,
		"config_reconnect_delay": cfg.Watch.ReconnectDelay,
		"config_capacity":        strconv.Itoa(cfg.Watch.Capacity),
		"config_agent":           cfg.Defaults.Agent,
		"config_workflow":        cfg.Defaults.Workflow,
		"config_limit":           strconv.Itoa(cfg.Defaults.Limit),
		"config_port":            strconv.Itoa(cfg.Server.Port),
	}

	ctx := kong.Parse(&c,
		kong.Name("wfmon"),
		kong.Description("wfmon: live monitoring client for agent workflow events"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		vars,
	)

	c.Globals.Stdout = os.Stdout
	c.Globals.Stderr = os.Stderr
	c.Globals.Config = cfg

	if err := ctx.Run(&c.Globals); err != nil {
		os.Exit(1)
	}
}
