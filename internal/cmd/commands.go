package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/workbench/internal/cmd/base"
	"github.com/hashicorp-forge/workbench/internal/cmd/commands/server"
	"github.com/hashicorp-forge/workbench/internal/cmd/commands/version"
)

// Commands is the mapping of all available CLI commands.
var Commands map[string]cli.CommandFactory

// initCommands initializes the CLI command factories.
func initCommands(log hclog.Logger, ui cli.Ui) {
	baseCommand := &base.Command{
		Log: log,
		UI:  ui,
	}

	Commands = map[string]cli.CommandFactory{
		"server": func() (cli.Command, error) {
			return &server.Command{Command: baseCommand}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: baseCommand}, nil
		},
	}
}
