package generalize

import (
	"context"
	"fmt"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
)

// pairing is the term correspondence built while generalizing two CNFs.
// Terms that turn into variables pair one to one.
type pairing struct {
	ab, ba map[string]string
	vars   map[[2]string]cnf.Term
	mapA   map[string]cnf.Term
	mapB   map[string]cnf.Term
	next   int
}

func newPairing() *pairing {
	return &pairing{
		ab:   make(map[string]string),
		ba:   make(map[string]string),
		vars: make(map[[2]string]cnf.Term),
		mapA: make(map[string]cnf.Term),
		mapB: make(map[string]cnf.Term),
	}
}

func (p *pairing) clone() *pairing {
	out := &pairing{
		ab:   make(map[string]string, len(p.ab)),
		ba:   make(map[string]string, len(p.ba)),
		vars: make(map[[2]string]cnf.Term, len(p.vars)),
		mapA: make(map[string]cnf.Term, len(p.mapA)),
		mapB: make(map[string]cnf.Term, len(p.mapB)),
		next: p.next,
	}
	for k, v := range p.ab {
		out.ab[k] = v
	}
	for k, v := range p.ba {
		out.ba[k] = v
	}
	for k, v := range p.vars {
		out.vars[k] = v
	}
	for k, v := range p.mapA {
		out.mapA[k] = v
	}
	for k, v := range p.mapB {
		out.mapB[k] = v
	}
	return out
}

// note records what a and b became. The first mapping of a term wins.
func (p *pairing) note(a, b, t cnf.Term) {
	if _, ok := p.mapA[a.String()]; !ok {
		p.mapA[a.String()] = t
	}
	if _, ok := p.mapB[b.String()]; !ok {
		p.mapB[b.String()] = t
	}
}

// pair links a and b. A term already linked to something else fails. keep
// is the generalized term for a new link; the zero Term asks for a fresh
// variable.
func (p *pairing) pair(a, b, keep cnf.Term) (cnf.Term, bool) {
	ka, kb := a.String(), b.String()
	if have, ok := p.ab[ka]; ok {
		if have != kb {
			return cnf.Term{}, false
		}
		return p.vars[[2]string{ka, kb}], true
	}
	if _, ok := p.ba[kb]; ok {
		return cnf.Term{}, false
	}
	t := keep
	if t == (cnf.Term{}) {
		p.next++
		t = cnf.Var(fmt.Sprintf("V%d", p.next))
	}
	p.ab[ka] = kb
	p.ba[kb] = ka
	p.vars[[2]string{ka, kb}] = t
	p.note(a, b, t)
	return t, true
}

// term generalizes one argument pair. classPos marks the class argument of a
// type literal.
func (g *Generalizer) term(ctx context.Context, a, b cnf.Term, classPos bool, p *pairing) (cnf.Term, bool, error) {
	switch {
	case a.Kind == cnf.KindConst && b.Kind == cnf.KindConst:
		if a.Name == b.Name {
			p.note(a, b, a)
			return a, true, nil
		}
		if !classPos {
			return cnf.Term{}, false, nil
		}
		lca, ok, err := g.oracle.CommonAncestor(ctx, a.Name, b.Name)
		if err != nil {
			return cnf.Term{}, false, fmt.Errorf("common ancestor of %s and %s: %w", a.Name, b.Name, err)
		}
		if !ok || g.exclude[lca] {
			return cnf.Term{}, false, nil
		}
		t := cnf.Const(lca)
		p.note(a, b, t)
		return t, true, nil

	case a.IsVar() || b.IsVar():
		t, ok := p.pair(a, b, cnf.Term{})
		return t, ok, nil

	case a.Kind == cnf.KindConst || b.Kind == cnf.KindConst:
		return cnf.Term{}, false, nil

	case a == b:
		t, ok := p.pair(a, b, a)
		return t, ok, nil
	}
	t, ok := p.pair(a, b, cnf.Term{})
	return t, ok, nil
}

// literal generalizes la against lb on a copy of p.
func (g *Generalizer) literal(ctx context.Context, la, lb cnf.Literal, p *pairing) (cnf.Literal, *pairing, bool, error) {
	if la.Pred != lb.Pred || la.Negated != lb.Negated {
		return cnf.Literal{}, nil, false, nil
	}
	np := p.clone()
	a1, ok, err := g.term(ctx, la.Arg1, lb.Arg1, g.typePreds[la.Pred], np)
	if err != nil || !ok {
		return cnf.Literal{}, nil, false, err
	}
	a2, ok, err := g.term(ctx, la.Arg2, lb.Arg2, false, np)
	if err != nil || !ok {
		return cnf.Literal{}, nil, false, err
	}
	return cnf.Literal{Pred: la.Pred, Arg1: a1, Arg2: a2, Negated: la.Negated}, np, true, nil
}
