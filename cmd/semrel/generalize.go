package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cognicore/semrel/pkg/semrel/generalize"
)

func parseMode(s string) (generalize.Mode, error) {
	switch s {
	case generalize.Greedy.String():
		return generalize.Greedy, nil
	case generalize.MostSpecific.String(), "best":
		return generalize.MostSpecific, nil
	}
	return 0, fmt.Errorf("unknown mode %q (want greedy or most-specific)", s)
}

func newGeneralizeCmd(a *app) *cobra.Command {
	var (
		mode     string
		showMaps bool
	)
	cmd := &cobra.Command{
		Use:   "generalize [file]",
		Short: "Find the common form of several sentences",
		Long: `Generalize reads one sentence per line and prints the CNF they all share,
with tokens replaced by variables and differing classes replaced by their
closest common ancestor.

Example:
  semrel generalize pairs.txt --taxonomy taxonomy.yaml --mode most-specific`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMode(mode)
			if err != nil {
				return err
			}
			sents, err := readSentences(inputArg(args), cmd.InOrStdin())
			if err != nil {
				return err
			}
			inputs, err := parseSentences(sents)
			if err != nil {
				return err
			}

			ctx := context.Background()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			g, err := e.Generalize(ctx, inputs, m)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, g.CNF.String())
			if !showMaps {
				return nil
			}
			for k, mp := range g.Maps {
				keys := make([]string, 0, len(mp))
				for from := range mp {
					keys = append(keys, from)
				}
				sort.Strings(keys)
				fmt.Fprintf(out, "line %d:\n", sents[k].line)
				for _, from := range keys {
					fmt.Fprintf(out, "  %s -> %s\n", from, mp[from])
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", generalize.MostSpecific.String(), "pairing strategy: greedy or most-specific")
	cmd.Flags().BoolVar(&showMaps, "maps", false, "print each input's term mapping")
	return cmd
}
