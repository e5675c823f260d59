// Package maintenance keeps stored extractions in step with the current rule
// set and taxonomy.
package maintenance

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
	"github.com/cognicore/semrel/pkg/semrel/interpret"
	"github.com/cognicore/semrel/pkg/semrel/store"
)

// Replayer re-interprets stored extractions after rule or taxonomy updates.
type Replayer struct {
	Store       store.Store
	Interpreter *interpret.Interpreter
	Logger      *slog.Logger
}

// Result summarizes the replay run.
type Result struct {
	Processed int
	Updated   int
	Errors    int
}

// Replay re-runs the latest limit extractions and rewrites those whose
// relations or formulas changed. Per-record failures are counted, not
// returned.
func (r *Replayer) Replay(ctx context.Context, limit int) (Result, error) {
	var res Result
	if r.Store == nil || r.Interpreter == nil {
		return res, errors.New("replayer: invalid configuration")
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	recs, err := r.Store.ListExtractions(ctx, limit)
	if err != nil {
		return res, err
	}
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Processed++

		facts, err := cnf.ParseCNF(rec.Input)
		if err != nil {
			logger.Warn("stored input no longer parses", slog.String("id", rec.ID), slog.String("error", err.Error()))
			res.Errors++
			continue
		}
		out, err := r.Interpreter.Interpret(ctx, facts)
		if err != nil {
			res.Errors++
			continue
		}

		rels := make([]string, len(out.Relations))
		for i, l := range out.Relations {
			rels[i] = l.String()
		}
		if slices.Equal(rels, rec.Relations) && slices.Equal(out.Formulas, rec.Formulas) {
			continue
		}

		rec.Facts = out.Facts.String()
		rec.Relations = rels
		rec.Formulas = out.Formulas
		rec.Passes = out.Passes
		if _, err := r.Store.SaveExtraction(ctx, rec); err != nil {
			res.Errors++
			continue
		}
		logger.Debug("extraction updated", slog.String("id", rec.ID), slog.Int("relations", len(rels)))
		res.Updated++
	}
	return res, nil
}
