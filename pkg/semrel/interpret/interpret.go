// Package interpret runs a rule set over per-sentence fact bases: coverage
// pre-filter, unification, consequent instantiation and rewriting, repeated
// until no rule fires or the pass limit is reached.
package interpret

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
	"github.com/cognicore/semrel/pkg/semrel/internalerr"
	"github.com/cognicore/semrel/pkg/semrel/rules"
	"github.com/cognicore/semrel/pkg/semrel/subst"
	"github.com/cognicore/semrel/pkg/semrel/unify"
)

// DefaultMaxPasses bounds the rewrite loop.
const DefaultMaxPasses = 10

// Options configures an Interpreter.
type Options struct {
	Rules           *rules.RuleSet
	Unifier         *unify.Unifier
	Spans           *SpanConsolidator
	MaxPasses       int
	AllowDegenerate bool
	Logger          *slog.Logger
}

// Interpreter applies a rule set. It holds no per-sentence state and is safe
// for concurrent use when its unifier is.
type Interpreter struct {
	rules           *rules.RuleSet
	unifier         *unify.Unifier
	spans           *SpanConsolidator
	maxPasses       int
	allowDegenerate bool
	logger          *slog.Logger
}

// New validates opts and builds an Interpreter.
func New(opts Options) (*Interpreter, error) {
	if opts.Rules == nil {
		return nil, fmt.Errorf("interpreter needs a rule set: %w", internalerr.ErrInvalidConfig)
	}
	if opts.Unifier == nil {
		opts.Unifier = unify.New(unify.Options{Logger: opts.Logger})
	}
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = DefaultMaxPasses
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Interpreter{
		rules:           opts.Rules,
		unifier:         opts.Unifier,
		spans:           opts.Spans,
		maxPasses:       opts.MaxPasses,
		allowDegenerate: opts.AllowDegenerate,
		logger:          opts.Logger,
	}, nil
}

// Firing records one rule application.
type Firing struct {
	Rule       *rules.Rule
	Pass       int
	Branch     int
	Bindings   *subst.Subst
	Relations  []cnf.Literal
	Formula    string
	Unbound    []string
	Degenerate bool
	Duplicate  bool // every relation or formula was already produced by an earlier firing
}

// Result is the outcome of interpreting one sentence.
type Result struct {
	Input        cnf.CNF
	Facts        cnf.CNF   // primary fact base after rewriting
	Alternatives []cnf.CNF // fact bases branched by optional rules
	Relations    []cnf.Literal
	Formulas     []string
	Firings      []Firing
	Warnings     []internalerr.BindingCoverageWarning
	Passes       int
}

// NoExtraction reports that no rule fired.
func (r Result) NoExtraction() bool { return len(r.Firings) == 0 }

// Err returns ErrNoExtraction when no rule fired.
func (r Result) Err() error {
	if r.NoExtraction() {
		return internalerr.ErrNoExtraction
	}
	return nil
}

// branch is one fact base under rewriting.
type branch struct {
	facts   cnf.CNF
	fired   map[string]bool // rule ID plus bindings
	stopped bool
}

func newBranch(facts cnf.CNF, fired map[string]bool) *branch {
	b := &branch{facts: facts, fired: make(map[string]bool, len(fired))}
	for k := range fired {
		b.fired[k] = true
	}
	return b
}

// run holds the state of a single Interpret call.
type run struct {
	in       *Interpreter
	res      Result
	relSeen  map[string]bool
	formSeen map[string]bool
	warned   map[string]bool
}

// Interpret rewrites one sentence. Annotator spans, when given, are merged
// together with dictionary spans before any rule runs.
func (in *Interpreter) Interpret(ctx context.Context, facts cnf.CNF, spans ...Span) (Result, error) {
	if in.spans != nil || len(spans) > 0 {
		facts = in.spans.Consolidate(facts, spans)
	}
	r := &run{
		in:       in,
		res:      Result{Input: facts},
		relSeen:  make(map[string]bool),
		formSeen: make(map[string]bool),
		warned:   make(map[string]bool),
	}
	base := facts.Merge(cnf.FromLiterals(in.rules.Facts()...))
	branches := []*branch{newBranch(base, nil)}
	rewrites := in.rules.Rewrites()

	for pass := 1; pass <= in.maxPasses; pass++ {
		r.res.Passes = pass
		progress := false
		for bi, n := 0, len(branches); bi < n; bi++ {
			b := branches[bi]
			if b.stopped {
				continue
			}
			alts, fired, err := r.pass(ctx, pass, bi, b, rewrites)
			if err != nil {
				return Result{}, err
			}
			progress = progress || fired
			for _, alt := range alts {
				if !hasBranch(branches, alt.facts) {
					branches = append(branches, alt)
				}
			}
		}
		if !progress {
			break
		}
	}

	r.res.Facts = branches[0].facts
	for _, b := range branches[1:] {
		r.res.Alternatives = append(r.res.Alternatives, b.facts)
	}
	in.logger.Debug("sentence interpreted",
		slog.Int("firings", len(r.res.Firings)),
		slog.Int("relations", len(r.res.Relations)),
		slog.Int("passes", r.res.Passes))
	return r.res, nil
}

// InterpretAll interprets sentences in order.
func (in *Interpreter) InterpretAll(ctx context.Context, sentences []cnf.CNF) ([]Result, error) {
	out := make([]Result, 0, len(sentences))
	for i, s := range sentences {
		res, err := in.Interpret(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("sentence %d: %w", i, err)
		}
		out = append(out, res)
	}
	return out, nil
}

func hasBranch(branches []*branch, c cnf.CNF) bool {
	for _, b := range branches {
		if b.facts.Equal(c) {
			return true
		}
	}
	return false
}

// maxFiringsPerRule caps how often one rule may fire on a fact base within a
// single pass.
const maxFiringsPerRule = 256

// pass runs every rule, in order, over one fact base. A rule keeps firing
// while it finds matches it has not fired on before.
func (r *run) pass(ctx context.Context, pass, bi int, b *branch, rewrites []*rules.Rule) ([]*branch, bool, error) {
	var alts []*branch
	progress := false
	preds, terms := b.facts.Preds(), b.facts.Terms()

	for _, rule := range rewrites {
		if !rule.Covers(preds, terms) {
			continue
		}
		fired, err := r.fire(ctx, pass, bi, b, rule, &alts)
		if err != nil {
			return nil, false, err
		}
		progress = progress || fired
		if b.stopped {
			break
		}
		preds, terms = b.facts.Preds(), b.facts.Terms()
	}
	return alts, progress, nil
}

// fire applies one rule to a fact base until it runs out of unfired matches.
// The match cursor is only restarted when a rewrite changes the facts.
func (r *run) fire(ctx context.Context, pass, bi int, b *branch, rule *rules.Rule, alts *[]*branch) (bool, error) {
	cur := r.cursor(ctx, rule, b)
	defer func() { cur.stop() }()

	fired := false
	for n := 0; n < maxFiringsPerRule; n++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		m, ok, err := cur.next()
		if err != nil || !ok {
			return fired, err
		}
		fired = true

		f := r.record(rule, pass, bi, m)
		rewritten := b.facts.Without(m.Consumed(rule.Antecedent)).Merge(cnf.FromLiterals(f.Relations...))
		changed := false
		switch rule.Op {
		case rules.OpRewrite:
			changed = !rewritten.Equal(b.facts)
			b.facts = rewritten
		case rules.OpOptional:
			*alts = append(*alts, newBranch(rewritten, b.fired))
		}
		if rule.RHS.Kind == rules.RHSStop {
			b.stopped = true
			return true, nil
		}
		if changed {
			if !rule.Covers(b.facts.Preds(), b.facts.Terms()) {
				return true, nil
			}
			cur.stop()
			cur = r.cursor(ctx, rule, b)
		}
	}
	return fired, nil
}

// cursor walks the matches of one rule against a fact base, skipping
// bindings that already fired on the branch.
type cursor struct {
	r    *run
	rule *rules.Rule
	b    *branch
	pull func() (unify.Match, error, bool)
	stop func()
}

func (r *run) cursor(ctx context.Context, rule *rules.Rule, b *branch) *cursor {
	pull, stop := iter.Pull2(r.in.unifier.Matches(ctx, rule.Antecedent, b.facts))
	return &cursor{r: r, rule: rule, b: b, pull: pull, stop: stop}
}

// next returns the next unfired match and marks it fired.
func (c *cursor) next() (unify.Match, bool, error) {
	in := c.r.in
	for {
		m, err, ok := c.pull()
		if !ok {
			return unify.Match{}, false, nil
		}
		switch {
		case errors.Is(err, internalerr.ErrStepBudgetExceeded):
			in.logger.Warn("rule skipped: step budget exceeded",
				slog.String("rule", c.rule.ID), slog.Int("steps", m.Steps))
			return unify.Match{}, false, nil
		case err != nil:
			return unify.Match{}, false, fmt.Errorf("rule %s: %w", c.rule.ID, err)
		}
		if m.Degenerate && !in.allowDegenerate {
			if !c.r.warned[c.rule.ID] {
				c.r.warned[c.rule.ID] = true
				in.logger.Warn("degenerate match ignored", slog.String("rule", c.rule.ID))
			}
			return unify.Match{}, false, nil
		}
		key := c.rule.ID + " " + m.Subst.String()
		if c.b.fired[key] {
			continue
		}
		c.b.fired[key] = true
		return m, true, nil
	}
}

// record instantiates the consequent and appends the firing to the result.
func (r *run) record(rule *rules.Rule, pass, bi int, m unify.Match) Firing {
	inst := rule.RHS.Instantiate(m.Subst)
	f := Firing{
		Rule:       rule,
		Pass:       pass,
		Branch:     bi,
		Bindings:   m.Subst,
		Relations:  inst.Relations,
		Formula:    inst.Formula,
		Unbound:    inst.Unbound,
		Degenerate: m.Degenerate,
	}

	produced := len(inst.Relations) > 0 || inst.Formula != ""
	fresh := false
	for _, rel := range inst.Relations {
		k := rel.Key()
		if r.relSeen[k] {
			continue
		}
		r.relSeen[k] = true
		r.res.Relations = append(r.res.Relations, rel)
		fresh = true
	}
	if inst.Formula != "" && !r.formSeen[inst.Formula] {
		r.formSeen[inst.Formula] = true
		r.res.Formulas = append(r.res.Formulas, inst.Formula)
		fresh = true
	}
	f.Duplicate = produced && !fresh

	if len(inst.Unbound) > 0 {
		w := internalerr.BindingCoverageWarning{Rule: rule.ID, Line: rule.Line, Vars: inst.Unbound}
		r.res.Warnings = append(r.res.Warnings, w)
		r.in.logger.Warn("unbound consequent variables", slog.String("rule", rule.ID), slog.Any("vars", inst.Unbound))
	}
	r.in.logger.Debug("rule fired",
		slog.String("rule", rule.ID),
		slog.String("bindings", m.Subst.String()),
		slog.Int("pass", pass),
		slog.Bool("duplicate", f.Duplicate))

	r.res.Firings = append(r.res.Firings, f)
	return f
}
