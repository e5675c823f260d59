package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

// extractRecord is the JSON line written per sentence.
type extractRecord struct {
	ID        string   `json:"id,omitempty"`
	Line      int      `json:"line"`
	Relations []string `json:"relations"`
	Formulas  []string `json:"formulas,omitempty"`
	Facts     string   `json:"facts"`
	Passes    int      `json:"passes"`
	Warnings  []string `json:"warnings,omitempty"`
}

func newExtractCmd(a *app) *cobra.Command {
	var (
		source  string
		asJSON  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract relations from sentences in clause notation",
		Long: `Extract reads one sentence per line, each a comma-separated list of
dependency facts, and applies the configured rules to it. Input comes from
the file argument or stdin.

Example:
  echo "nsubj(wears-2,Robert-1), dobj(wears-2,shirt-4), sumo(Shirt,shirt-4)" | \
    semrel extract --rules wears.rules --taxonomy taxonomy.yaml
  semrel extract sentences.txt --json --store semrel.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			sents, err := readSentences(inputArg(args), cmd.InOrStdin())
			if err != nil {
				return err
			}
			facts, err := parseSentences(sents)
			if err != nil {
				return err
			}

			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			extracted := 0
			for i, f := range facts {
				res, err := e.Extract(ctx, fmt.Sprintf("%s:%d", source, sents[i].line), f)
				if err != nil {
					return fmt.Errorf("line %d: %w", sents[i].line, err)
				}
				if !res.NoExtraction() {
					extracted++
				}

				rec := extractRecord{
					ID:        res.ID,
					Line:      sents[i].line,
					Relations: []string{},
					Formulas:  res.Formulas,
					Facts:     res.Facts.String(),
					Passes:    res.Passes,
				}
				for _, l := range res.Relations {
					rec.Relations = append(rec.Relations, l.String())
				}
				for _, w := range res.Warnings {
					rec.Warnings = append(rec.Warnings, w.String())
				}

				if asJSON {
					if err := enc.Encode(rec); err != nil {
						return err
					}
					continue
				}
				if res.NoExtraction() {
					fmt.Fprintf(out, "line %d: no extraction\n", rec.Line)
					continue
				}
				for _, r := range rec.Relations {
					fmt.Fprintf(out, "line %d: %s\n", rec.Line, r)
				}
				for _, fm := range rec.Formulas {
					fmt.Fprintf(out, "line %d: formula %s\n", rec.Line, fm)
				}
			}

			a.logger.Info("extraction complete",
				slog.Int("sentences", len(facts)),
				slog.Int("extracted", extracted))
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "stdin", "label stored with each extraction")
	cmd.Flags().BoolVar(&asJSON, "json", false, "write one JSON object per sentence")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall extraction timeout")
	return cmd
}
