// Package unify matches rule antecedents against per-sentence fact bases.
//
// Structural clauses are tried in file order, then procedure clauses in file
// order, so procedures see the bindings made by the structural clauses. The
// search is a depth-first backtracking walk over persistent substitutions.
// A fact literal may satisfy several pattern clauses.
package unify

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sort"
	"strings"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
	"github.com/cognicore/semrel/pkg/semrel/internalerr"
	"github.com/cognicore/semrel/pkg/semrel/ontology"
	"github.com/cognicore/semrel/pkg/semrel/procedures"
	"github.com/cognicore/semrel/pkg/semrel/subst"
)

// DefaultMaxSteps bounds the number of literal comparisons per Unify call.
const DefaultMaxSteps = 10000

// DefaultTypePredicates are the predicates whose first argument is an
// ontology class compared by subsumption.
var DefaultTypePredicates = []string{"typeOf", "sumo", "sumoInstance"}

// Options configures a Unifier.
type Options struct {
	Oracle         ontology.Oracle
	Procedures     *procedures.Registry
	TypePredicates []string
	MaxSteps       int
	Logger         *slog.Logger
}

// Unifier is safe for concurrent use when its oracle is.
type Unifier struct {
	oracle    ontology.Oracle
	procs     *procedures.Registry
	typePreds map[string]bool
	maxSteps  int
	logger    *slog.Logger
}

// New builds a Unifier, filling defaults for unset options.
func New(opts Options) *Unifier {
	if opts.Oracle == nil {
		opts.Oracle = ontology.NewTaxonomy()
	}
	if opts.Procedures == nil {
		opts.Procedures = procedures.Default()
	}
	if opts.TypePredicates == nil {
		opts.TypePredicates = DefaultTypePredicates
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	tp := make(map[string]bool, len(opts.TypePredicates))
	for _, p := range opts.TypePredicates {
		tp[p] = true
	}
	return &Unifier{
		oracle:    opts.Oracle,
		procs:     opts.Procedures,
		typePreds: tp,
		maxSteps:  opts.MaxSteps,
		logger:    opts.Logger,
	}
}

// IsTypePredicate reports whether pred is configured as a type predicate.
func (u *Unifier) IsTypePredicate(pred string) bool { return u.typePreds[pred] }

// Oracle returns the ontology oracle used for subsumption.
func (u *Unifier) Oracle() ontology.Oracle { return u.oracle }

// Procedures returns the procedure registry.
func (u *Unifier) Procedures() *procedures.Registry { return u.procs }

// Binding records which fact satisfied a pattern clause. Fact is -1 for a
// procedure clause.
type Binding struct {
	Clause   int
	Disjunct int
	Fact     int
}

// Match is one consistent assignment of pattern clauses to facts.
type Match struct {
	Subst      *subst.Subst
	Bindings   []Binding // indexed by pattern clause
	Degenerate bool      // empty pattern or empty fact base
	Steps      int
}

// Consumed returns the fact clauses matched by literals not marked to be
// preserved.
func (m Match) Consumed(pattern cnf.CNF) map[int]bool {
	out := make(map[int]bool)
	for _, b := range m.Bindings {
		if b.Fact < 0 {
			continue
		}
		if pattern.Clauses[b.Clause].Disjuncts[b.Disjunct].Preserve {
			continue
		}
		out[b.Fact] = true
	}
	return out
}

// Unify returns the first match of pattern against facts, or
// ErrUnificationFailure.
func (u *Unifier) Unify(ctx context.Context, pattern, facts cnf.CNF) (Match, error) {
	ms, err := u.UnifyAll(ctx, pattern, facts, 1)
	if err != nil {
		return Match{}, err
	}
	return ms[0], nil
}

// UnifyAll enumerates up to limit matches in search order. A limit of zero
// or less means no limit.
func (u *Unifier) UnifyAll(ctx context.Context, pattern, facts cnf.CNF, limit int) ([]Match, error) {
	var out []Match
	for m, err := range u.Matches(ctx, pattern, facts) {
		if err != nil {
			if len(out) > 0 && errors.Is(err, internalerr.ErrStepBudgetExceeded) {
				u.logger.Warn("unification step budget exhausted",
					slog.Int("steps", m.Steps), slog.Int("matches", len(out)))
				return out, nil
			}
			return nil, err
		}
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if len(out) == 0 {
		return nil, internalerr.ErrUnificationFailure
	}
	return out, nil
}

// Matches yields matches lazily in search order. The search only advances
// when the consumer asks for the next match, and the step budget covers the
// whole enumeration. A failure ends the sequence with a zero Match carrying
// the step count and the error. An empty pattern or fact base yields a
// single degenerate match.
func (u *Unifier) Matches(ctx context.Context, pattern, facts cnf.CNF) iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) {
		if pattern.Empty() || facts.Empty() {
			yield(Match{Degenerate: true}, nil)
			return
		}
		s := &search{
			u:        u,
			ctx:      ctx,
			pattern:  pattern,
			facts:    facts,
			order:    clauseOrder(pattern),
			bindings: make([]Binding, len(pattern.Clauses)),
			emit:     func(m Match) bool { return yield(m, nil) },
		}
		if _, err := s.solve(0, subst.Empty()); err != nil {
			yield(Match{Steps: s.steps}, err)
		}
	}
}

// clauseOrder puts procedure clauses after structural ones, keeping file
// order within each group.
func clauseOrder(pattern cnf.CNF) []int {
	order := make([]int, len(pattern.Clauses))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return !pattern.Clauses[order[a]].IsProcedure() && pattern.Clauses[order[b]].IsProcedure()
	})
	return order
}

type search struct {
	u        *Unifier
	ctx      context.Context
	pattern  cnf.CNF
	facts    cnf.CNF
	order    []int
	bindings []Binding
	steps    int
	emit     func(Match) bool // false stops the search
}

func (s *search) step() error {
	s.steps++
	if s.steps > s.u.maxSteps {
		return internalerr.ErrStepBudgetExceeded
	}
	if s.steps%256 == 0 {
		return s.ctx.Err()
	}
	return nil
}

// solve extends sub to pattern clause order[k] onwards. It reports true when
// the search should stop.
func (s *search) solve(k int, sub *subst.Subst) (bool, error) {
	if k == len(s.order) {
		return !s.emit(Match{
			Subst:    sub,
			Bindings: append([]Binding(nil), s.bindings...),
			Steps:    s.steps,
		}), nil
	}
	ci := s.order[k]
	for di, lit := range s.pattern.Clauses[ci].Disjuncts {
		if lit.Proc {
			if err := s.step(); err != nil {
				return true, err
			}
			next, ok, err := s.u.callProcedure(s.ctx, lit, sub)
			if err != nil {
				return true, err
			}
			if !ok {
				continue
			}
			s.bindings[ci] = Binding{Clause: ci, Disjunct: di, Fact: -1}
			if stop, err := s.solve(k+1, next); stop || err != nil {
				return stop, err
			}
			continue
		}
		for fi, fc := range s.facts.Clauses {
			for _, fact := range fc.Disjuncts {
				if err := s.step(); err != nil {
					return true, err
				}
				next, ok, err := s.u.matchLiteral(s.ctx, lit, fact, sub)
				if err != nil {
					return true, err
				}
				if !ok {
					continue
				}
				s.bindings[ci] = Binding{Clause: ci, Disjunct: di, Fact: fi}
				if stop, err := s.solve(k+1, next); stop || err != nil {
					return stop, err
				}
			}
		}
	}
	return false, nil
}

func (u *Unifier) callProcedure(ctx context.Context, lit cnf.Literal, sub *subst.Subst) (*subst.Subst, bool, error) {
	out, err := u.procs.Call(ctx, sub.ApplyLiteral(lit), u.oracle)
	if err != nil {
		return nil, false, err
	}
	switch out.Status {
	case procedures.Succeed:
		return sub, true, nil
	case procedures.SucceedWithBindings:
		names := make([]string, 0, len(out.Bindings))
		for n := range out.Bindings {
			names = append(names, n)
		}
		sort.Strings(names)
		next := sub
		for _, n := range names {
			if next, err = next.Bind(n, out.Bindings[n]); err != nil {
				return nil, false, nil
			}
		}
		return next, true, nil
	}
	return nil, false, nil
}

// matchLiteral unifies a pattern literal with one fact literal.
func (u *Unifier) matchLiteral(ctx context.Context, p, f cnf.Literal, sub *subst.Subst) (*subst.Subst, bool, error) {
	if p.Pred != f.Pred || p.Negated != f.Negated {
		return nil, false, nil
	}
	classPos := u.typePreds[p.Pred]
	next, ok, err := u.matchTerm(ctx, p.Arg1, f.Arg1, sub, classPos)
	if err != nil || !ok {
		return nil, false, err
	}
	return u.matchTerm(ctx, p.Arg2, f.Arg2, next, false)
}

// matchTerm unifies a pattern argument with a fact argument. classPos marks
// the class argument of a type literal, where a pattern class subsumes its
// subclasses.
func (u *Unifier) matchTerm(ctx context.Context, p, f cnf.Term, sub *subst.Subst, classPos bool) (*subst.Subst, bool, error) {
	p, f = sub.Walk(p), sub.Walk(f)
	if p == f {
		return sub, true, nil
	}
	switch {
	case p.IsVar():
		if f.Kind == cnf.KindWord {
			return nil, false, nil
		}
		next, err := sub.Bind(p.Name, f)
		return next, err == nil, nil
	case f.IsVar():
		if p.Kind == cnf.KindWord {
			return nil, false, nil
		}
		next, err := sub.Bind(f.Name, p)
		return next, err == nil, nil
	case p.Kind == cnf.KindWord:
		return sub, wordMatches(p, f), nil
	case f.Kind == cnf.KindWord:
		return sub, wordMatches(f, p), nil
	case p.Kind == cnf.KindConst && f.Kind == cnf.KindConst:
		ok, err := u.subsumes(ctx, p.Name, f.Name, classPos)
		if err != nil || !ok {
			return nil, false, err
		}
		return sub, true, nil
	}
	return nil, false, nil
}

func wordMatches(pattern, t cnf.Term) bool {
	if t.Kind != cnf.KindToken && t.Kind != cnf.KindConst {
		return false
	}
	return strings.EqualFold(pattern.Name, t.Name)
}

// subsumes reports whether the pattern class covers the fact class. Outside
// type literals both names must be known ontology terms.
func (u *Unifier) subsumes(ctx context.Context, pattern, fact string, classPos bool) (bool, error) {
	if !classPos {
		for _, name := range [2]string{pattern, fact} {
			known, err := u.oracle.Contains(ctx, name)
			if err != nil || !known {
				return false, err
			}
		}
	}
	return u.oracle.IsSubclass(ctx, fact, pattern)
}
