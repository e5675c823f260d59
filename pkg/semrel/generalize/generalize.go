// Package generalize computes the most specific common pattern shared by
// several annotated sentences (anti-unification). The result is a CNF in rule
// notation that can serve as a rule antecedent.
//
// Inputs are expected to have their tokens lifted to variables first, see
// LiftTokens. Two literals generalize when their predicates and polarity
// agree and every argument pair generalizes:
//
//   - equal constants, tokens or quoted strings pass through;
//   - differing classes in the class position of a type literal become their
//     least common ancestor, unless that ancestor is excluded;
//   - a variable, or a pair of differing tokens or quoted strings, becomes a
//     fresh variable that stands for that pair only;
//   - anything else fails.
//
// Literals with no counterpart are dropped.
package generalize

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
	"github.com/cognicore/semrel/pkg/semrel/internalerr"
	"github.com/cognicore/semrel/pkg/semrel/ontology"
)

// Defaults.
var (
	DefaultIgnorePredicates = []string{"number", "tense"}
	DefaultExcludeAncestors = []string{"Entity"}
	DefaultTypePredicates   = []string{"typeOf", "sumo", "sumoInstance"}
)

// DefaultMaxSteps bounds the MostSpecificForm search for one pair of inputs.
const DefaultMaxSteps = 100000

// Mode selects the pairing strategy.
type Mode int

const (
	// Greedy takes the first compatible counterpart of each literal.
	Greedy Mode = iota
	// MostSpecific searches for the pairing with the most literals and, among
	// those, the deepest classes.
	MostSpecific
)

func (m Mode) String() string {
	if m == MostSpecific {
		return "most-specific"
	}
	return "greedy"
}

// Options configures a Generalizer.
type Options struct {
	Oracle           ontology.Oracle
	TypePredicates   []string
	IgnorePredicates []string
	ExcludeAncestors []string
	MaxSteps         int
	Logger           *slog.Logger
}

// Generalizer anti-unifies CNFs against an ontology.
type Generalizer struct {
	oracle    ontology.Oracle
	typePreds map[string]bool
	ignore    map[string]bool
	exclude   map[string]bool
	maxSteps  int
	logger    *slog.Logger
}

// New builds a Generalizer. A nil oracle knows no classes, so differing
// classes never generalize.
func New(opts Options) *Generalizer {
	if opts.Oracle == nil {
		opts.Oracle = ontology.NewTaxonomy()
	}
	if opts.TypePredicates == nil {
		opts.TypePredicates = DefaultTypePredicates
	}
	if opts.IgnorePredicates == nil {
		opts.IgnorePredicates = DefaultIgnorePredicates
	}
	if opts.ExcludeAncestors == nil {
		opts.ExcludeAncestors = DefaultExcludeAncestors
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Generalizer{
		oracle:    opts.Oracle,
		typePreds: toSet(opts.TypePredicates),
		ignore:    toSet(opts.IgnorePredicates),
		exclude:   toSet(opts.ExcludeAncestors),
		maxSteps:  opts.MaxSteps,
		logger:    opts.Logger,
	}
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, s := range items {
		out[s] = true
	}
	return out
}

// Generalization is a common CNF plus, for every input, the mapping from the
// input's terms (by their string form) to the terms that replaced them.
type Generalization struct {
	CNF  cnf.CNF
	Maps []map[string]cnf.Term
}

// MapTerm translates a term of input k into the generalized CNF.
func (g Generalization) MapTerm(k int, t cnf.Term) (cnf.Term, bool) {
	if k < 0 || k >= len(g.Maps) {
		return cnf.Term{}, false
	}
	out, ok := g.Maps[k][t.String()]
	return out, ok
}

// MapCNF translates every term of c, an expression over input k, into the
// generalized CNF. Ground terms without a counterpart are kept; a variable
// without one makes the translation fail.
func (g Generalization) MapCNF(k int, c cnf.CNF) (cnf.CNF, bool) {
	ok := true
	out := c.Map(func(t cnf.Term) cnf.Term {
		m, found := g.MapTerm(k, t)
		switch {
		case found:
			return m
		case t.IsVar():
			ok = false
		}
		return t
	})
	return out, ok
}

// LiftTokens turns the tokens of every input into variables. Input k gets the
// suffix "_k" so variable names never collide across inputs.
func LiftTokens(inputs []cnf.CNF) []cnf.CNF {
	out := make([]cnf.CNF, len(inputs))
	for k, in := range inputs {
		out[k] = in.LiftTokens(fmt.Sprintf("_%d", k))
	}
	return out
}

// Generalize anti-unifies two CNFs.
func (g *Generalizer) Generalize(ctx context.Context, a, b cnf.CNF, mode Mode) (Generalization, error) {
	la, lb := g.relevant(a), g.relevant(b)

	var (
		out []cnf.Literal
		p   *pairing
		err error
	)
	switch mode {
	case MostSpecific:
		out, p, err = g.mostSpecific(ctx, la, lb)
	default:
		out, p, err = g.greedy(ctx, la, lb)
	}
	if err != nil {
		return Generalization{}, err
	}

	res := Generalization{
		CNF:  cnf.FromLiterals(out...).Dedup(),
		Maps: []map[string]cnf.Term{p.mapA, p.mapB},
	}
	g.logger.Debug("generalized pair",
		slog.String("mode", mode.String()),
		slog.Int("left", len(la)),
		slog.Int("right", len(lb)),
		slog.Int("common", res.CNF.Len()))
	return res, nil
}

// FindOneCommonCNF reduces the inputs pairwise, left to right, with the
// greedy pairing.
func (g *Generalizer) FindOneCommonCNF(ctx context.Context, inputs []cnf.CNF) (Generalization, error) {
	return g.reduce(ctx, inputs, Greedy)
}

// MostSpecificForm reduces the inputs pairwise, left to right, keeping at
// every step the pairing with the most literals and the deepest classes.
func (g *Generalizer) MostSpecificForm(ctx context.Context, inputs []cnf.CNF) (Generalization, error) {
	return g.reduce(ctx, inputs, MostSpecific)
}

func (g *Generalizer) reduce(ctx context.Context, inputs []cnf.CNF, mode Mode) (Generalization, error) {
	if len(inputs) == 0 {
		return Generalization{}, fmt.Errorf("generalize: no inputs: %w", internalerr.ErrInvalidInput)
	}

	acc := Generalization{
		CNF:  cnf.FromLiterals(g.relevant(inputs[0])...),
		Maps: []map[string]cnf.Term{identity(inputs[0])},
	}
	for k := 1; k < len(inputs); k++ {
		if err := ctx.Err(); err != nil {
			return Generalization{}, err
		}
		step, err := g.Generalize(ctx, acc.CNF, inputs[k], mode)
		if err != nil {
			return Generalization{}, fmt.Errorf("generalize input %d: %w", k, err)
		}

		maps := make([]map[string]cnf.Term, 0, k+1)
		for _, m := range acc.Maps {
			composed := make(map[string]cnf.Term, len(m))
			for src, mid := range m {
				if t, ok := step.Maps[0][mid.String()]; ok {
					composed[src] = t
				}
			}
			maps = append(maps, composed)
		}
		acc = Generalization{CNF: step.CNF, Maps: append(maps, step.Maps[1])}
	}
	return acc, nil
}

// relevant drops the literals whose predicates never take part.
func (g *Generalizer) relevant(c cnf.CNF) []cnf.Literal {
	var out []cnf.Literal
	for _, l := range c.Literals() {
		if g.ignore[l.Pred] || l.Proc {
			continue
		}
		out = append(out, l)
	}
	return out
}

func identity(c cnf.CNF) map[string]cnf.Term {
	out := make(map[string]cnf.Term)
	for _, l := range c.Literals() {
		out[l.Arg1.String()] = l.Arg1
		out[l.Arg2.String()] = l.Arg2
	}
	return out
}
