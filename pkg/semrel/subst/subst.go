// Package subst implements persistent variable substitutions. Every Bind
// returns a new substitution sharing structure with its parent, so a
// backtracking search keeps an old pointer to undo bindings.
package subst

import (
	"strings"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
	"github.com/cognicore/semrel/pkg/semrel/internalerr"
)

// Subst maps variable names to terms. The nil *Subst is the empty
// substitution.
type Subst struct {
	parent *Subst
	name   string
	value  cnf.Term
	size   int
}

// Empty returns the empty substitution.
func Empty() *Subst { return nil }

// Len returns the number of bindings.
func (s *Subst) Len() int {
	if s == nil {
		return 0
	}
	return s.size
}

// Lookup returns the direct binding of name.
func (s *Subst) Lookup(name string) (cnf.Term, bool) {
	for n := s; n != nil; n = n.parent {
		if n.name == name {
			return n.value, true
		}
	}
	return cnf.Term{}, false
}

// Walk follows variable bindings until reaching an unbound variable or a
// non-variable term.
func (s *Subst) Walk(t cnf.Term) cnf.Term {
	for steps := 0; t.IsVar() && steps <= s.Len(); steps++ {
		v, ok := s.Lookup(t.Name)
		if !ok {
			return t
		}
		t = v
	}
	return t
}

// Bind returns s extended with name -> t. Re-binding a variable to an
// equivalent value returns s unchanged; a different value fails with a
// BindingConflictError. Binding a variable to a term that resolves to
// itself fails with ErrOccursCheck.
func (s *Subst) Bind(name string, t cnf.Term) (*Subst, error) {
	resolved := s.Walk(t)
	if resolved.IsVar() && resolved.Name == name {
		return nil, internalerr.ErrOccursCheck
	}
	if have, ok := s.Lookup(name); ok {
		have = s.Walk(have)
		if have == resolved {
			return s, nil
		}
		if have.IsVar() {
			return s.Bind(have.Name, resolved)
		}
		return nil, &internalerr.BindingConflictError{Var: name, Have: have.String(), Want: resolved.String()}
	}
	return &Subst{parent: s, name: name, value: t, size: s.Len() + 1}, nil
}

// Apply resolves t fully under s.
func (s *Subst) Apply(t cnf.Term) cnf.Term {
	return s.Walk(t)
}

// ApplyLiteral resolves both arguments of l.
func (s *Subst) ApplyLiteral(l cnf.Literal) cnf.Literal {
	return l.Map(s.Walk)
}

// ApplyCNF resolves every argument of c.
func (s *Subst) ApplyCNF(c cnf.CNF) cnf.CNF {
	return c.Map(s.Walk)
}

// Vars lists bound variables in insertion order.
func (s *Subst) Vars() []string {
	out := make([]string, s.Len())
	i := len(out) - 1
	for n := s; n != nil; n = n.parent {
		out[i] = n.name
		i--
	}
	return out
}

// Map returns every variable resolved to its final value.
func (s *Subst) Map() map[string]cnf.Term {
	out := make(map[string]cnf.Term, s.Len())
	for _, v := range s.Vars() {
		out[v] = s.Walk(cnf.Var(v))
	}
	return out
}

// Compose returns the substitution that applies s and then o: every value of
// s is resolved through o, then the bindings of o not already in s are
// added. Incompatible overlap fails with a BindingConflictError.
func (s *Subst) Compose(o *Subst) (*Subst, error) {
	var out *Subst
	var err error
	for _, v := range s.Vars() {
		val, _ := s.Lookup(v)
		if out, err = out.Bind(v, o.Walk(s.Walk(val))); err != nil {
			return nil, err
		}
	}
	for _, v := range o.Vars() {
		val, _ := o.Lookup(v)
		if out, err = out.Bind(v, o.Walk(val)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// String renders bindings in insertion order, e.g. {?X=wears-2, ?Y=Robert-1}.
func (s *Subst) String() string {
	vars := s.Vars()
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = "?" + v + "=" + s.Walk(cnf.Var(v)).String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
