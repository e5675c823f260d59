package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/semrel/pkg/semrel/ontology"
)

func newRulesCmd(a *app) *cobra.Command {
	var minConfidence float64
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List induced rules recorded in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			rules, err := e.InducedRules(ctx, minConfidence)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range rules {
				fmt.Fprintf(out, "; %s: support %d confidence %.2f\n%s\n", r.Group, r.Support, r.Confidence, r.Rule)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "hide rules below this confidence")
	return cmd
}

func newReplayCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run stored extractions against the current rules and taxonomy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := e.Replay(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d, updated %d, errors %d\n", res.Processed, res.Updated, res.Errors)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "number of most recent extractions to replay")
	return cmd
}

func newTaxonomyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Inspect and extend the stored taxonomy",
	}

	add := &cobra.Command{
		Use:   "add <relation> <child> <parent>",
		Short: "Persist a subclass, instance or subAttribute fact",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			return e.AddEdge(ctx, ontology.Edge{Relation: args[0], Child: args[1], Parent: args[2]})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the stored taxonomy facts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			edges, err := e.StoredEdges(ctx)
			if err != nil {
				return err
			}
			for _, edge := range edges {
				fmt.Fprintf(cmd.OutOrStdout(), "%s(%s, %s)\n", edge.Relation, edge.Child, edge.Parent)
			}
			return nil
		},
	}

	is := &cobra.Command{
		Use:   "is <child> <parent>",
		Short: "Report whether child is a subclass or instance of parent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			o := e.Ontology()
			ok, err := o.IsSubclass(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				if ok, err = o.IsInstance(ctx, args[0], args[1]); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}

	cmd.AddCommand(add, list, is)
	return cmd
}
