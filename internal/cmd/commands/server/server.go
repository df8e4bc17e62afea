package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp-forge/workbench/internal/cmd/base"
	"github.com/hashicorp-forge/workbench/internal/config"
	"github.com/hashicorp-forge/workbench/internal/server"
)

type Command struct {
	*base.Command

	flagConfig string
}

func (c *Command) Synopsis() string {
	return "Serve the workspace over HTTP"
}

func (c *Command) Help() string {
	return `Usage: workbench server -config=workbench.hcl

  Starts the workbench server and serves the configured workspace
  directory tree as a REST API until interrupted.

` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet("server")
	f.StringVar(
		&c.flagConfig, "config", "workbench.hcl",
		"Path to the configuration file",
	)
	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	cfg, err := config.Load(c.flagConfig)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error loading configuration: %v", err))
		return 1
	}

	srv, err := server.New(cfg, c.Log.Named("server"), server.Options{})
	if err != nil {
		c.UI.Error(fmt.Sprintf("error building server: %v", err))
		return 1
	}

	if _, err := srv.Start(); err != nil {
		c.UI.Error(fmt.Sprintf("error starting server: %v", err))
		return 1
	}
	c.UI.Info(fmt.Sprintf("Serving %s on %s", cfg.Workspace.Root, srv.Addr()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := srv.Stop(ctx); err != nil {
		c.UI.Error(fmt.Sprintf("error stopping server: %v", err))
		return 1
	}
	return 0
}
