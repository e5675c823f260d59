package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load the configured rules, taxonomy and dictionary and report problems",
		Long: `Check loads every configured input exactly as extract would and prints
a summary of the rule set together with any loader warnings
(degenerate rules, unbound consequent variables).

Example:
  semrel check --rules rules/wears.rules --taxonomy taxonomy.yaml
  semrel check --strict   # non-zero exit when there are warnings`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.engine(context.Background())
			if err != nil {
				return err
			}
			defer e.Close()

			rs := e.Rules()
			out := cmd.OutOrStdout()
			degenerate := 0
			for _, r := range rs.Rewrites() {
				if r.Degenerate() {
					degenerate++
				}
			}
			fmt.Fprintf(out, "Rule set:   %s\n", rs.Name)
			fmt.Fprintf(out, "Rewrites:   %d (%d degenerate)\n", len(rs.Rewrites()), degenerate)
			fmt.Fprintf(out, "Facts:      %d\n", len(rs.Facts()))
			fmt.Fprintf(out, "Oracle:     %s\n", e.Config().Engine.Oracle)
			fmt.Fprintf(out, "Warnings:   %d\n", len(rs.Warnings))
			for _, w := range rs.Warnings {
				fmt.Fprintf(out, "  - %s\n", w)
			}

			if strict && len(rs.Warnings) > 0 {
				return fmt.Errorf("%d warnings", len(rs.Warnings))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the rule set has warnings")
	return cmd
}
