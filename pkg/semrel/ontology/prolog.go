package ontology

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ichiban/prolog"

	"github.com/cognicore/semrel/pkg/semrel/internalerr"
)

const prologProgram = `
:- dynamic(subclass/2).
:- dynamic(instance/2).
:- dynamic(sub_attribute/2).

ancestor(X, Y) :- subclass(X, Y).
ancestor(X, Z) :- subclass(X, Y), ancestor(Y, Z).

attr_ancestor(X, Y) :- sub_attribute(X, Y).
attr_ancestor(X, Z) :- sub_attribute(X, Y), attr_ancestor(Y, Z).

known(X) :- subclass(X, _).
known(X) :- subclass(_, X).
known(X) :- instance(X, _).
known(X) :- instance(_, X).
known(X) :- sub_attribute(X, _).
known(X) :- sub_attribute(_, X).
`

// PrologOracle keeps the taxonomy as Prolog facts and answers closure
// queries with the Prolog engine. Edges that would close a cycle are
// rejected so the recursive rules always terminate.
type PrologOracle struct {
	mu sync.Mutex
	p  *prolog.Interpreter
}

// NewPrologOracle creates an empty Prolog-backed oracle.
func NewPrologOracle() (*PrologOracle, error) {
	p := prolog.New(nil, nil)
	if err := p.Exec(prologProgram); err != nil {
		return nil, fmt.Errorf("bootstrap prolog taxonomy: %w", err)
	}
	return &PrologOracle{p: p}, nil
}

func prologRelation(rel string) (fact, closure string, err error) {
	switch rel {
	case RelSubclass:
		return "subclass", "ancestor", nil
	case RelInstance:
		return "instance", "", nil
	case RelSubAttribute:
		return "sub_attribute", "attr_ancestor", nil
	}
	return "", "", fmt.Errorf("unknown relation %q: %w", rel, internalerr.ErrInvalidInput)
}

// Add asserts one edge.
func (o *PrologOracle) Add(e Edge) error {
	fact, closure, err := prologRelation(e.Relation)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if closure != "" {
		if e.Child == e.Parent {
			return fmt.Errorf("%s(%s, %s) is a cycle: %w", e.Relation, e.Child, e.Parent, internalerr.ErrInvalidInput)
		}
		cyc, err := o.holds(closure+"(?, ?).", e.Parent, e.Child)
		if err != nil {
			return err
		}
		if cyc {
			return fmt.Errorf("%s(%s, %s) closes a cycle: %w", e.Relation, e.Child, e.Parent, internalerr.ErrInvalidInput)
		}
	}
	dup, err := o.holds(fact+"(?, ?).", e.Child, e.Parent)
	if err != nil || dup {
		return err
	}
	if err := o.p.Exec("assertz("+fact+"(?, ?)).", e.Child, e.Parent); err != nil {
		return fmt.Errorf("assert %s: %w", fact, err)
	}
	return nil
}

// holds runs a ground query. Callers hold o.mu.
func (o *PrologOracle) holds(query string, args ...interface{}) (bool, error) {
	sol := o.p.QuerySolution(query, args...)
	if err := sol.Err(); err != nil {
		if errors.Is(err, prolog.ErrNoSolutions) {
			return false, nil
		}
		return false, fmt.Errorf("prolog query %s: %w", query, err)
	}
	return true, nil
}

// collect returns every binding of Result. Callers hold o.mu.
func (o *PrologOracle) collect(query string, args ...interface{}) ([]string, error) {
	sols, err := o.p.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("prolog query %s: %w", query, err)
	}
	defer sols.Close()

	var out []string
	for sols.Next() {
		var s struct {
			Result string
		}
		if err := sols.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan %s: %w", query, err)
		}
		out = append(out, s.Result)
	}
	return out, sols.Err()
}

func (o *PrologOracle) ground(ctx context.Context, query string, args ...interface{}) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.holds(query, args...)
}

func (o *PrologOracle) list(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.collect(query, args...)
}

// IsSubclass asks ancestor(child, parent).
func (o *PrologOracle) IsSubclass(ctx context.Context, child, parent string) (bool, error) {
	if child == parent {
		return true, nil
	}
	return o.ground(ctx, "ancestor(?, ?).", child, parent)
}

// IsInstance asks whether one of term's classes is parent or below it.
func (o *PrologOracle) IsInstance(ctx context.Context, term, class string) (bool, error) {
	if ok, err := o.ground(ctx, "instance(?, ?).", term, class); err != nil || ok {
		return ok, err
	}
	return o.ground(ctx, "instance(?, C), ancestor(C, ?).", term, class)
}

// IsSubAttribute asks attr_ancestor(attr, parent).
func (o *PrologOracle) IsSubAttribute(ctx context.Context, attr, parent string) (bool, error) {
	if attr == parent {
		return true, nil
	}
	return o.ground(ctx, "attr_ancestor(?, ?).", attr, parent)
}

// ClassesOf lists instance(term, Result).
func (o *PrologOracle) ClassesOf(ctx context.Context, term string) ([]string, error) {
	return o.list(ctx, "instance(?, Result).", term)
}

func (o *PrologOracle) superclasses(ctx context.Context, term string) ([]string, error) {
	return o.list(ctx, "subclass(?, Result).", term)
}

func (o *PrologOracle) generalisations(ctx context.Context, term string) ([]string, error) {
	classes, err := o.ClassesOf(ctx, term)
	if err != nil {
		return nil, err
	}
	supers, err := o.superclasses(ctx, term)
	if err != nil {
		return nil, err
	}
	return append(classes, supers...), nil
}

// CommonAncestor returns the deepest class above both a and b.
func (o *PrologOracle) CommonAncestor(ctx context.Context, a, b string) (string, bool, error) {
	return commonAncestor(ctx, a, b, o.generalisations)
}

// Depth returns the longest subclass chain above class.
func (o *PrologOracle) Depth(ctx context.Context, class string) (int, error) {
	return depth(ctx, class, o.superclasses)
}

// Contains asks known(term).
func (o *PrologOracle) Contains(ctx context.Context, term string) (bool, error) {
	return o.ground(ctx, "known(?).", term)
}

var _ Oracle = (*PrologOracle)(nil)
