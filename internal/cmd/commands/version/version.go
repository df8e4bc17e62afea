package version

import (
	"github.com/hashicorp-forge/workbench/internal/cmd/base"
	"github.com/hashicorp-forge/workbench/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the version"
}

func (c *Command) Help() string {
	return `Usage: workbench version

  Prints the version of the workbench binary.`
}

func (c *Command) Run(args []string) int {
	c.UI.Output(version.Version)
	return 0
}
