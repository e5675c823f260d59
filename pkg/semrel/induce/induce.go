// Package induce proposes new rules from groups of annotated examples that
// share a known consequent.
package induce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
	"github.com/cognicore/semrel/pkg/semrel/generalize"
)

// Example is one annotated sentence and the relations it should yield.
type Example struct {
	Facts      cnf.CNF
	Consequent cnf.CNF
}

// Group collects examples expected to share one rule.
type Group struct {
	Name     string
	Examples []Example
}

// Suggestion is a candidate rule.
type Suggestion struct {
	Group      string
	Antecedent cnf.CNF
	RHS        cnf.CNF
	Support    int
	Confidence float64
}

// Rule renders the suggestion in rule file notation.
func (s Suggestion) Rule() string {
	return fmt.Sprintf("%s ==> (%s).", s.Antecedent, s.RHS)
}

// Reviewer optionally approves a rule suggestion.
type Reviewer interface {
	ApproveRule(ctx context.Context, sugg Suggestion) (bool, error)
}

// Thresholds control sensitivity.
type Thresholds struct {
	MinSupport  int // examples per group
	MinLiterals int // literals in the induced antecedent
}

// Inducer generalizes example groups into rules.
type Inducer struct {
	Generalizer *generalize.Generalizer
	Thresholds  Thresholds
	Reviewer    Reviewer // optional
	Logger      *slog.Logger
}

// Run returns one suggestion per group whose examples agree on a consequent
// under their most specific common form.
func (in *Inducer) Run(ctx context.Context, groups []Group) ([]Suggestion, error) {
	if in.Generalizer == nil {
		return nil, errors.New("rule induction: nil generalizer")
	}
	logger := in.Logger
	if logger == nil {
		logger = slog.Default()
	}
	th := in.thresholdsOrDefault()

	var suggestions []Suggestion
	for _, grp := range groups {
		if len(grp.Examples) < th.MinSupport {
			logger.Debug("group skipped: not enough examples", slog.String("group", grp.Name), slog.Int("examples", len(grp.Examples)))
			continue
		}
		sugg, ok, err := in.induce(ctx, grp, th)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", grp.Name, err)
		}
		if !ok {
			logger.Debug("group skipped: no agreeing rule", slog.String("group", grp.Name))
			continue
		}
		suggestions = append(suggestions, sugg)
	}

	if in.Reviewer == nil {
		return suggestions, nil
	}

	var approved []Suggestion
	for _, sugg := range suggestions {
		ok, err := in.Reviewer.ApproveRule(ctx, sugg)
		if err != nil {
			return nil, err
		}
		if ok {
			approved = append(approved, sugg)
		}
	}
	return approved, nil
}

func (in *Inducer) induce(ctx context.Context, grp Group, th Thresholds) (Suggestion, bool, error) {
	facts := make([]cnf.CNF, len(grp.Examples))
	for k, ex := range grp.Examples {
		facts[k] = ex.Facts
	}
	lifted := generalize.LiftTokens(facts)

	gen, err := in.Generalizer.MostSpecificForm(ctx, lifted)
	if err != nil {
		return Suggestion{}, false, err
	}
	if gen.CNF.Len() < th.MinLiterals {
		return Suggestion{}, false, nil
	}

	var rhs cnf.CNF
	for k, ex := range grp.Examples {
		mapped, ok := gen.MapCNF(k, ex.Consequent.LiftTokens(fmt.Sprintf("_%d", k)))
		if !ok {
			return Suggestion{}, false, nil
		}
		if k == 0 {
			rhs = mapped
			continue
		}
		if !mapped.Equal(rhs) {
			return Suggestion{}, false, nil
		}
	}
	if rhs.Empty() || !covered(gen.CNF, rhs) {
		return Suggestion{}, false, nil
	}

	return Suggestion{
		Group:      grp.Name,
		Antecedent: gen.CNF,
		RHS:        rhs,
		Support:    len(grp.Examples),
		Confidence: confidence(gen.CNF, facts, th),
	}, true, nil
}

// covered reports whether every consequent variable occurs in the antecedent.
func covered(ante, rhs cnf.CNF) bool {
	bound := make(map[string]bool)
	for _, v := range ante.Vars() {
		bound[v] = true
	}
	for _, v := range rhs.Vars() {
		if !bound[v] {
			return false
		}
	}
	return true
}

// confidence blends support with how much of the average example the
// antecedent keeps.
func confidence(ante cnf.CNF, facts []cnf.CNF, th Thresholds) float64 {
	total := 0
	for _, f := range facts {
		total += f.Len()
	}
	kept := 0.0
	if total > 0 {
		kept = float64(ante.Len()) / (float64(total) / float64(len(facts)))
	}
	if kept > 1 {
		kept = 1
	}
	support := 1 - math.Exp(-float64(len(facts))/float64(th.MinSupport))
	return 0.6*support + 0.4*kept
}

func (in *Inducer) thresholdsOrDefault() Thresholds {
	th := in.Thresholds
	if th.MinSupport == 0 {
		th.MinSupport = 2
	}
	if th.MinLiterals == 0 {
		th.MinLiterals = 1
	}
	return th
}
