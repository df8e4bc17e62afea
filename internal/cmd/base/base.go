// Package base contains the pieces shared by all CLI commands.
package base

import (
	"flag"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
)

// Command is embedded by every CLI command and carries the shared
// logger and UI.
type Command struct {
	// Log is the logger for the command.
	Log hclog.Logger

	// UI is the CLI user interface.
	UI cli.Ui
}

// FlagSet wraps a flag.FlagSet so commands can extend it.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet returns a flag set named after the command.
func NewFlagSet(name string) *FlagSet {
	f := flag.NewFlagSet(name, flag.ContinueOnError)
	return &FlagSet{FlagSet: f}
}

// Help returns the usage text for all registered flags.
func (f *FlagSet) Help() string {
	var out string
	f.VisitAll(func(fl *flag.Flag) {
		out += "  -" + fl.Name + "\n      " + fl.Usage + "\n"
	})
	return out
}
