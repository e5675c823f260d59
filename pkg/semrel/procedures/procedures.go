// Package procedures holds the built-in procedural attachments that rule
// antecedents may call, e.g. {isSubclass(?C,Clothing)}.
package procedures

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
	"github.com/cognicore/semrel/pkg/semrel/internalerr"
	"github.com/cognicore/semrel/pkg/semrel/ontology"
)

// Status is the result of evaluating a procedure.
type Status int

const (
	Fail Status = iota
	Succeed
	SucceedWithBindings
)

func (s Status) String() string {
	switch s {
	case Succeed:
		return "succeed"
	case SucceedWithBindings:
		return "succeed-with-bindings"
	}
	return "fail"
}

// Outcome carries a procedure result. Bindings is only set for
// SucceedWithBindings.
type Outcome struct {
	Status   Status
	Bindings map[string]cnf.Term
}

// Procedure evaluates a literal whose arguments have already been resolved
// against the current bindings.
type Procedure func(ctx context.Context, lit cnf.Literal, oracle ontology.Oracle) (Outcome, error)

// Registry maps procedure names to implementations. Lookups are safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	procs map[string]Procedure
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{procs: make(map[string]Procedure)}
}

// Default returns a registry holding the built-in procedures.
func Default() *Registry {
	r := NewRegistry()
	r.Register("isSubclass", IsSubclass)
	r.Register("isInstanceOf", IsInstanceOf)
	r.Register("isChildOf", IsChildOf)
	r.Register("isSubAttribute", IsSubAttribute)
	r.Register("different", Different)
	r.Register("classOf", ClassOf)
	r.Register("isCELTclass", IsCategory)
	return r
}

// Register adds or replaces a procedure.
func (r *Registry) Register(name string, p Procedure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs[name] = p
}

// Lookup returns the named procedure.
func (r *Registry) Lookup(name string) (Procedure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.procs[name]
	return p, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.procs))
	for n := range r.procs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Call evaluates lit with the procedure named by its predicate. A negated
// literal inverts Fail and Succeed; it never produces bindings.
func (r *Registry) Call(ctx context.Context, lit cnf.Literal, oracle ontology.Oracle) (Outcome, error) {
	p, ok := r.Lookup(lit.Pred)
	if !ok {
		return Outcome{}, &internalerr.ProcedureNotFoundError{Name: lit.Pred}
	}
	out, err := p(ctx, lit, oracle)
	if err != nil {
		return Outcome{}, err
	}
	if lit.Negated {
		if out.Status == Fail {
			return Outcome{Status: Succeed}, nil
		}
		return Outcome{Status: Fail}, nil
	}
	return out, nil
}
