package cnf

import (
	"sort"
	"strings"
)

// Literal is a two-argument predicate, possibly negated.
type Literal struct {
	Pred     string
	Arg1     Term
	Arg2     Term
	Negated  bool
	Preserve bool // rule antecedents only: match without consuming
	Proc     bool // procedural attachment evaluated by the unifier
}

// NewLiteral builds a positive literal.
func NewLiteral(pred string, arg1, arg2 Term) Literal {
	return Literal{Pred: pred, Arg1: arg1, Arg2: arg2}
}

func (l Literal) String() string {
	var b strings.Builder
	if l.Preserve {
		b.WriteByte('+')
	}
	if l.Proc {
		b.WriteByte('{')
	}
	if l.Negated {
		b.WriteByte('~')
	}
	b.WriteString(l.Pred)
	b.WriteByte('(')
	b.WriteString(l.Arg1.String())
	b.WriteByte(',')
	b.WriteString(l.Arg2.String())
	b.WriteByte(')')
	if l.Proc {
		b.WriteByte('}')
	}
	return b.String()
}

// Key identifies the fact a literal asserts, ignoring rule-only markers.
func (l Literal) Key() string {
	l.Preserve = false
	l.Proc = false
	return l.String()
}

// WithArgs returns a copy of l with new arguments.
func (l Literal) WithArgs(arg1, arg2 Term) Literal {
	l.Arg1 = arg1
	l.Arg2 = arg2
	return l
}

// Map applies f to both arguments.
func (l Literal) Map(f func(Term) Term) Literal {
	return l.WithArgs(f(l.Arg1), f(l.Arg2))
}

// IsGround reports whether neither argument is a variable or word pattern.
func (l Literal) IsGround() bool {
	return l.Arg1.IsGround() && l.Arg2.IsGround()
}

// Clause is an ordered disjunction of literals.
type Clause struct {
	Disjuncts []Literal
}

// Unit wraps a single literal.
func Unit(l Literal) Clause {
	return Clause{Disjuncts: []Literal{l}}
}

func (c Clause) String() string {
	if len(c.Disjuncts) == 1 {
		return c.Disjuncts[0].String()
	}
	parts := make([]string, len(c.Disjuncts))
	for i, d := range c.Disjuncts {
		parts[i] = d.String()
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

// IsProcedure reports whether the clause is a single procedural attachment.
func (c Clause) IsProcedure() bool {
	return len(c.Disjuncts) == 1 && c.Disjuncts[0].Proc
}

// Map applies f to every argument of every disjunct.
func (c Clause) Map(f func(Term) Term) Clause {
	out := Clause{Disjuncts: make([]Literal, len(c.Disjuncts))}
	for i, d := range c.Disjuncts {
		out.Disjuncts[i] = d.Map(f)
	}
	return out
}

func (c Clause) sorted() Clause {
	out := Clause{Disjuncts: append([]Literal(nil), c.Disjuncts...)}
	sort.SliceStable(out.Disjuncts, func(i, j int) bool {
		return out.Disjuncts[i].String() < out.Disjuncts[j].String()
	})
	return out
}

// CNF is an ordered conjunction of clauses. Values are treated as immutable:
// every method returns a new CNF.
type CNF struct {
	Clauses []Clause
}

// FromLiterals builds a CNF of unit clauses.
func FromLiterals(lits ...Literal) CNF {
	out := CNF{Clauses: make([]Clause, len(lits))}
	for i, l := range lits {
		out.Clauses[i] = Unit(l)
	}
	return out
}

// Len returns the number of clauses.
func (c CNF) Len() int { return len(c.Clauses) }

// Empty reports whether c has no clauses.
func (c CNF) Empty() bool { return len(c.Clauses) == 0 }

func (c CNF) String() string {
	parts := make([]string, len(c.Clauses))
	for i, cl := range c.Clauses {
		parts[i] = cl.String()
	}
	return strings.Join(parts, ", ")
}

// Literals flattens every disjunct in order.
func (c CNF) Literals() []Literal {
	var out []Literal
	for _, cl := range c.Clauses {
		out = append(out, cl.Disjuncts...)
	}
	return out
}

// Sorted returns a canonical ordering for comparison in tests and dedup.
func (c CNF) Sorted() CNF {
	out := CNF{Clauses: make([]Clause, len(c.Clauses))}
	for i, cl := range c.Clauses {
		out.Clauses[i] = cl.sorted()
	}
	sort.SliceStable(out.Clauses, func(i, j int) bool {
		return out.Clauses[i].String() < out.Clauses[j].String()
	})
	return out
}

// Equal compares two CNFs ignoring clause and disjunct order.
func (c CNF) Equal(o CNF) bool {
	return c.Sorted().String() == o.Sorted().String()
}

// Map applies f to every argument.
func (c CNF) Map(f func(Term) Term) CNF {
	out := CNF{Clauses: make([]Clause, len(c.Clauses))}
	for i, cl := range c.Clauses {
		out.Clauses[i] = cl.Map(f)
	}
	return out
}

// Merge appends the clauses of o not already present in c.
func (c CNF) Merge(o CNF) CNF {
	seen := make(map[string]bool, len(c.Clauses))
	out := CNF{Clauses: make([]Clause, 0, len(c.Clauses)+len(o.Clauses))}
	for _, cl := range append(append([]Clause(nil), c.Clauses...), o.Clauses...) {
		k := cl.String()
		if seen[k] {
			continue
		}
		seen[k] = true
		out.Clauses = append(out.Clauses, cl)
	}
	return out
}

// Dedup drops repeated clauses, keeping the first occurrence.
func (c CNF) Dedup() CNF {
	return CNF{}.Merge(c)
}

// Without drops the clauses at the given indexes.
func (c CNF) Without(drop map[int]bool) CNF {
	out := CNF{Clauses: make([]Clause, 0, len(c.Clauses))}
	for i, cl := range c.Clauses {
		if !drop[i] {
			out.Clauses = append(out.Clauses, cl)
		}
	}
	return out
}

// Vars lists variable names in order of first occurrence.
func (c CNF) Vars() []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range c.Literals() {
		for _, t := range [2]Term{l.Arg1, l.Arg2} {
			if t.IsVar() && !seen[t.Name] {
				seen[t.Name] = true
				out = append(out, t.Name)
			}
		}
	}
	return out
}

// LiftTokens turns every token into a variable named after it. The suffix
// keeps names from different inputs apart.
func (c CNF) LiftTokens(suffix string) CNF {
	return c.Map(func(t Term) Term {
		if t.Kind != KindToken {
			return t
		}
		return Var(t.String() + suffix)
	})
}
