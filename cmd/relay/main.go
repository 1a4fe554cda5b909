// Package main is the entry point for the relay command.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand assembles the command tree.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "relay",
		Short: "Topic based publish/subscribe bus for collaborating scripts",
		Long: `relay runs Lua collaborators on an in-process event bus. Collaborators
subscribe to hierarchical topics, publish events and gather replies to
request events through the will/did protocol.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newMatchCommand())
	root.AddCommand(newConfigCommand())
	return root
}
