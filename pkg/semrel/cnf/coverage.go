package cnf

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Preds returns every predicate name in c.
func (c CNF) Preds() mapset.Set[string] {
	out := mapset.NewSet[string]()
	for _, l := range c.Literals() {
		out.Add(l.Pred)
	}
	return out
}

// Terms returns the lower-cased forms of every non-variable argument in c.
func (c CNF) Terms() mapset.Set[string] {
	out := mapset.NewSet[string]()
	for _, l := range c.Literals() {
		addTerm(out, l.Arg1)
		addTerm(out, l.Arg2)
	}
	return out
}

// Coverage returns the predicates and terms a pattern needs to find in a fact
// base before it can possibly match. Only unit clauses contribute, since a
// disjunction can be satisfied by either side. Procedures, negated literals
// and predicates for which ignore returns true are skipped. Constants are
// left out of the term set because a class can match one of its subclasses.
func (c CNF) Coverage(ignore func(pred string) bool) (preds, terms mapset.Set[string]) {
	preds = mapset.NewSet[string]()
	terms = mapset.NewSet[string]()
	for _, cl := range c.Clauses {
		if len(cl.Disjuncts) != 1 {
			continue
		}
		l := cl.Disjuncts[0]
		if l.Proc || l.Negated || (ignore != nil && ignore(l.Pred)) {
			continue
		}
		preds.Add(l.Pred)
		for _, t := range [2]Term{l.Arg1, l.Arg2} {
			if t.Kind != KindConst {
				addTerm(terms, t)
			}
		}
	}
	return preds, terms
}

func addTerm(set mapset.Set[string], t Term) {
	if f := t.Form(); f != "" {
		set.Add(f)
	}
}
