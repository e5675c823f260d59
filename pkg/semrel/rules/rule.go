// Package rules holds rewrite rules and the rule file loader.
//
// Rule file format:
//
//	; comment
//	nsubj(wears*,?A), dobj(wears*,?O), sumo(Clothing,?O) ==> (wears(?A,?O)).
//	+nsubj(?V,?A), {isSubclass(?C,Process)}, sumo(?C,?V) ?=> {(agent ?V ?A)}.
//	det(?X,the*) ==> !.
//	punct(?X,?Y) ==> stop.
//	/- isa(Robert,Human).
//
// "==>" consumes the matched facts not marked with '+', "?=>" asserts the
// consequent into a new alternative fact base and "/-" asserts a permanent
// fact.
package rules

import (
	"fmt"
	"regexp"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
	"github.com/cognicore/semrel/pkg/semrel/subst"
)

// Op is the rule operator.
type Op int

const (
	OpRewrite Op = iota
	OpOptional
	OpFact
)

func (o Op) String() string {
	switch o {
	case OpOptional:
		return "?=>"
	case OpFact:
		return "/-"
	}
	return "==>"
}

// RHSKind is the form of a consequent.
type RHSKind int

const (
	RHSRelations RHSKind = iota
	RHSFormula
	RHSEmpty
	RHSStop
)

// RHS is a rule consequent.
type RHS struct {
	Kind      RHSKind
	Relations cnf.CNF
	Formula   string
}

func (r RHS) String() string {
	switch r.Kind {
	case RHSFormula:
		return "{" + r.Formula + "}"
	case RHSEmpty:
		return "!"
	case RHSStop:
		return "stop"
	}
	return "(" + r.Relations.String() + ")"
}

var formulaVar = regexp.MustCompile(`\?[A-Za-z0-9_][A-Za-z0-9_\-]*`)

// Vars lists the variables the consequent refers to, in order.
func (r RHS) Vars() []string {
	switch r.Kind {
	case RHSRelations:
		return r.Relations.Vars()
	case RHSFormula:
		seen := make(map[string]bool)
		var out []string
		for _, m := range formulaVar.FindAllString(r.Formula, -1) {
			name := m[1:]
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
		return out
	}
	return nil
}

// Instantiation is a consequent with bindings applied.
type Instantiation struct {
	Relations []cnf.Literal
	Formula   string
	Unbound   []string
}

// Instantiate applies s to the consequent. Variables without a binding are
// left in place and reported in Unbound.
func (r RHS) Instantiate(s *subst.Subst) Instantiation {
	var inst Instantiation
	unbound := make(map[string]bool)
	note := func(name string) {
		if !unbound[name] {
			unbound[name] = true
			inst.Unbound = append(inst.Unbound, name)
		}
	}
	switch r.Kind {
	case RHSRelations:
		for _, lit := range r.Relations.Literals() {
			out := s.ApplyLiteral(lit)
			out.Preserve, out.Proc = false, false
			for _, t := range [2]cnf.Term{out.Arg1, out.Arg2} {
				if t.IsVar() {
					note(t.Name)
				}
			}
			inst.Relations = append(inst.Relations, out)
		}
	case RHSFormula:
		inst.Formula = formulaVar.ReplaceAllStringFunc(r.Formula, func(m string) string {
			v := s.Walk(cnf.Var(m[1:]))
			if v.IsVar() {
				note(m[1:])
				return m
			}
			return v.String()
		})
	}
	return inst
}

// Rule is one entry of a rule file. Rules are immutable after loading.
type Rule struct {
	ID         string
	File       string
	Line       int
	Antecedent cnf.CNF
	Op         Op
	RHS        RHS
	Fact       cnf.Literal // OpFact only

	preds mapset.Set[string]
	terms mapset.Set[string]
}

func (r *Rule) String() string {
	if r.Op == OpFact {
		return "/- " + r.Fact.String() + "."
	}
	return fmt.Sprintf("%s %s %s.", r.Antecedent, r.Op, r.RHS)
}

// Degenerate reports a rewrite rule with no antecedent clauses. Such a rule
// would match any fact base.
func (r *Rule) Degenerate() bool {
	return r.Op != OpFact && r.Antecedent.Empty()
}

// Covers is the cheap pre-filter run before unification: every predicate
// and term the antecedent needs must occur in the fact base.
func (r *Rule) Covers(preds, terms mapset.Set[string]) bool {
	return r.preds.IsSubset(preds) && r.terms.IsSubset(terms)
}

// Coverage returns copies of the predicate and term sets used by Covers.
func (r *Rule) Coverage() (preds, terms []string) {
	preds = r.preds.ToSlice()
	terms = r.terms.ToSlice()
	sort.Strings(preds)
	sort.Strings(terms)
	return preds, terms
}

// unboundConsequentVars lists consequent variables the antecedent never binds.
// Variables bound by procedures such as classOf count as bound.
func (r *Rule) unboundConsequentVars() []string {
	bound := make(map[string]bool)
	for _, v := range r.Antecedent.Vars() {
		bound[v] = true
	}
	var out []string
	for _, v := range r.RHS.Vars() {
		if !bound[v] {
			out = append(out, v)
		}
	}
	return out
}
