package generalize

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
	"github.com/cognicore/semrel/pkg/semrel/internalerr"
)

// greedy pairs each literal of a with the first compatible unused literal of b.
func (g *Generalizer) greedy(ctx context.Context, a, b []cnf.Literal) ([]cnf.Literal, *pairing, error) {
	p := newPairing()
	used := make([]bool, len(b))
	var out []cnf.Literal
	for _, la := range a {
		for j, lb := range b {
			if used[j] {
				continue
			}
			l, np, ok, err := g.literal(ctx, la, lb, p)
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				continue
			}
			used[j] = true
			p = np
			out = append(out, l)
			break
		}
	}
	return out, p, nil
}

// score orders candidate generalizations: more literals first, then deeper
// classes.
type score struct {
	literals int
	depth    int
}

func (s score) better(o score) bool {
	if s.literals != o.literals {
		return s.literals > o.literals
	}
	return s.depth > o.depth
}

// bnb is a branch-and-bound search over literal pairings.
type bnb struct {
	g      *Generalizer
	ctx    context.Context
	a, b   []cnf.Literal
	used   []bool
	cur    []cnf.Literal
	steps  int
	depths map[string]int

	best        []cnf.Literal
	bestPairing *pairing
	bestScore   score
}

// mostSpecific explores pairings depth first, trying counterparts in order
// before dropping a literal, and keeps the first pairing with the best score.
// The greedy result seeds the search, so running out of steps still returns
// a valid generalization.
func (g *Generalizer) mostSpecific(ctx context.Context, a, b []cnf.Literal) ([]cnf.Literal, *pairing, error) {
	seed, seedPairing, err := g.greedy(ctx, a, b)
	if err != nil {
		return nil, nil, err
	}
	s := &bnb{
		g:           g,
		ctx:         ctx,
		a:           a,
		b:           b,
		used:        make([]bool, len(b)),
		depths:      make(map[string]int),
		best:        seed,
		bestPairing: seedPairing,
	}
	if s.bestScore, err = s.score(seed); err != nil {
		return nil, nil, err
	}

	err = s.search(0, newPairing(), 0)
	switch {
	case errors.Is(err, internalerr.ErrStepBudgetExceeded):
		g.logger.Warn("generalization step budget exhausted, keeping best so far",
			slog.Int("steps", s.steps), slog.Int("literals", len(s.best)))
	case err != nil:
		return nil, nil, err
	}
	return s.best, s.bestPairing, nil
}

func (s *bnb) score(lits []cnf.Literal) (score, error) {
	sc := score{literals: len(lits)}
	for _, l := range lits {
		d, err := s.classDepth(l)
		if err != nil {
			return score{}, err
		}
		sc.depth += d
	}
	return sc, nil
}

func (s *bnb) classDepth(l cnf.Literal) (int, error) {
	if !s.g.typePreds[l.Pred] || l.Arg1.Kind != cnf.KindConst {
		return 0, nil
	}
	if d, ok := s.depths[l.Arg1.Name]; ok {
		return d, nil
	}
	d, err := s.g.oracle.Depth(s.ctx, l.Arg1.Name)
	if err != nil {
		return 0, err
	}
	s.depths[l.Arg1.Name] = d
	return d, nil
}

func (s *bnb) search(i int, p *pairing, depth int) error {
	s.steps++
	if s.steps > s.g.maxSteps {
		return internalerr.ErrStepBudgetExceeded
	}
	if s.steps%256 == 0 {
		if err := s.ctx.Err(); err != nil {
			return err
		}
	}

	if i == len(s.a) {
		sc := score{literals: len(s.cur), depth: depth}
		if sc.better(s.bestScore) {
			s.best = append([]cnf.Literal(nil), s.cur...)
			s.bestPairing = p
			s.bestScore = sc
		}
		return nil
	}
	// Even pairing every remaining literal cannot reach the best count.
	if len(s.cur)+len(s.a)-i < s.bestScore.literals {
		return nil
	}

	for j, lb := range s.b {
		if s.used[j] {
			continue
		}
		l, np, ok, err := s.g.literal(s.ctx, s.a[i], lb, p)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		d, err := s.classDepth(l)
		if err != nil {
			return err
		}
		s.used[j] = true
		s.cur = append(s.cur, l)
		err = s.search(i+1, np, depth+d)
		s.cur = s.cur[:len(s.cur)-1]
		s.used[j] = false
		if err != nil {
			return err
		}
	}
	return s.search(i+1, p, depth)
}
