package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dshills/relay/internal/event/topic"
)

func newMatchCommand() *cobra.Command {
	var patterns []string

	cmd := &cobra.Command{
		Use:   "match --sub pattern... name",
		Short: "Show which subscriptions an event name reaches, in delivery order",
		Example: `
  # Most specific pattern first
  relay match --sub '' --sub didSave --sub didSave.document-json didSave.document-json-v2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(patterns) == 0 {
				return errors.New("at least one --sub pattern is required")
			}
			return printMatches(cmd, patterns, args[0])
		},
	}

	cmd.Flags().StringArrayVarP(&patterns, "sub", "s", nil, "subscription pattern (repeatable, may be empty)")
	return cmd
}

// printMatches lists the patterns matching name as a table.
func printMatches(cmd *cobra.Command, patterns []string, name string) error {
	idx := topic.NewIndex[string]()
	for _, p := range patterns {
		idx.Insert(p, p)
	}
	matched := idx.Match(name)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tPATTERN\tSEGMENTS\tSUBTOPICS")
	for i, p := range matched {
		weight := topic.ComputeWeight(p)
		display := p
		if display == "" {
			display = `""`
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", i+1, display, weight.Segments, weight.SubTopics)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(matched) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no subscription matches %q\n", name)
	}
	return nil
}
