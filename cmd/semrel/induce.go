package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/semrel/pkg/semrel"
	"github.com/cognicore/semrel/pkg/semrel/induce"
)

func newInduceCmd(a *app) *cobra.Command {
	var (
		outPath     string
		minSupport  int
		minLiterals int
	)
	cmd := &cobra.Command{
		Use:   "induce <examples.yaml>",
		Short: "Propose rules from groups of annotated examples",
		Long: `Induce generalizes every group of examples into its most specific common
form and proposes a rule when the examples agree on the mapped consequent.
Proposed rules are recorded in the store and written in rule file notation.

Example:
  semrel induce examples.yaml --taxonomy taxonomy.yaml --out induced.rules`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := induce.LoadGroups(args[0])
			if err != nil {
				return err
			}

			ctx := context.Background()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			suggs, err := e.Induce(ctx, groups, semrel.InduceOptions{
				Thresholds: induce.Thresholds{MinSupport: minSupport, MinLiterals: minLiterals},
			})
			if err != nil {
				return err
			}

			if outPath != "" {
				exp := &induce.RuleExporter{Writer: induce.FileWriter{Path: outPath}}
				if err := exp.Export(ctx, suggs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rules to %s\n", len(suggs), outPath)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), induce.Render(suggs))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write rules to this file instead of stdout")
	cmd.Flags().IntVar(&minSupport, "min-support", 2, "minimum examples per group")
	cmd.Flags().IntVar(&minLiterals, "min-literals", 1, "minimum literals in an induced antecedent")
	return cmd
}
