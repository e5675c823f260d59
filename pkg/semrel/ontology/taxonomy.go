package ontology

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Taxonomy is an in-memory class hierarchy. It is safe for concurrent use.
type Taxonomy struct {
	mu    sync.RWMutex
	facts map[string]map[string][]string // relation → child → [parents]
	terms map[string]bool
}

// NewTaxonomy creates an empty taxonomy.
func NewTaxonomy() *Taxonomy {
	return &Taxonomy{
		facts: make(map[string]map[string][]string),
		terms: make(map[string]bool),
	}
}

// LoadRules loads facts from a simple text format
// Format:
//
//	subclass(Shirt, Clothing)
//	instance(Robert, Human)
//	subAttribute(Red, ColorAttribute)
//	# or ; comments
func (t *Taxonomy) LoadRules(rules string) error {
	return LoadText(t, rules)
}

// Add asserts one edge.
func (t *Taxonomy) Add(e Edge) error {
	if err := e.Validate(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.facts[e.Relation] == nil {
		t.facts[e.Relation] = make(map[string][]string)
	}
	t.terms[e.Child] = true
	t.terms[e.Parent] = true

	// Avoid duplicates
	for _, p := range t.facts[e.Relation][e.Child] {
		if p == e.Parent {
			return nil
		}
	}
	t.facts[e.Relation][e.Child] = append(t.facts[e.Relation][e.Child], e.Parent)
	return nil
}

// AddSubclass asserts subclass(child, parent).
func (t *Taxonomy) AddSubclass(child, parent string) error {
	return t.Add(Edge{Relation: RelSubclass, Child: child, Parent: parent})
}

// AddInstance asserts instance(term, class).
func (t *Taxonomy) AddInstance(term, class string) error {
	return t.Add(Edge{Relation: RelInstance, Child: term, Parent: class})
}

// Edges returns every asserted fact, ordered by relation then child.
func (t *Taxonomy) Edges() []Edge {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Edge
	for _, rel := range []string{RelSubclass, RelInstance, RelSubAttribute} {
		children := make([]string, 0, len(t.facts[rel]))
		for c := range t.facts[rel] {
			children = append(children, c)
		}
		sort.Strings(children)
		for _, c := range children {
			for _, p := range t.facts[rel][c] {
				out = append(out, Edge{Relation: rel, Child: c, Parent: p})
			}
		}
	}
	return out
}

func (t *Taxonomy) direct(relation, term string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.facts[relation][term]...)
}

func (t *Taxonomy) superclasses(_ context.Context, term string) ([]string, error) {
	return t.direct(RelSubclass, term), nil
}

func (t *Taxonomy) superAttributes(_ context.Context, term string) ([]string, error) {
	return t.direct(RelSubAttribute, term), nil
}

// generalisations walks both instance and subclass edges.
func (t *Taxonomy) generalisations(_ context.Context, term string) ([]string, error) {
	return append(t.direct(RelInstance, term), t.direct(RelSubclass, term)...), nil
}

// IsSubclass checks subclass(child, parent) with transitive closure.
func (t *Taxonomy) IsSubclass(ctx context.Context, child, parent string) (bool, error) {
	return reaches(ctx, child, parent, t.superclasses)
}

// IsInstance checks whether term is an instance of class or a subclass of it.
func (t *Taxonomy) IsInstance(ctx context.Context, term, class string) (bool, error) {
	for _, c := range t.direct(RelInstance, term) {
		ok, err := t.IsSubclass(ctx, c, class)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// IsSubAttribute checks subAttribute(attr, parent) with transitive closure.
func (t *Taxonomy) IsSubAttribute(ctx context.Context, attr, parent string) (bool, error) {
	return reaches(ctx, attr, parent, t.superAttributes)
}

// ClassesOf returns the direct classes of term.
func (t *Taxonomy) ClassesOf(_ context.Context, term string) ([]string, error) {
	return t.direct(RelInstance, term), nil
}

// CommonAncestor returns the deepest class above both a and b.
func (t *Taxonomy) CommonAncestor(ctx context.Context, a, b string) (string, bool, error) {
	return commonAncestor(ctx, a, b, t.generalisations)
}

// Depth returns the longest subclass chain above class.
func (t *Taxonomy) Depth(ctx context.Context, class string) (int, error) {
	return depth(ctx, class, t.superclasses)
}

// Contains reports whether term appears in any fact.
func (t *Taxonomy) Contains(_ context.Context, term string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.terms[term], nil
}

// parseEdge parses "relation(child, parent)" format
func parseEdge(line string) (Edge, error) {
	line = strings.TrimSuffix(line, ".")

	openParen := strings.Index(line, "(")
	if openParen == -1 {
		return Edge{}, fmt.Errorf("missing '(': %s", line)
	}
	closeParen := strings.LastIndex(line, ")")
	if closeParen == -1 || closeParen < openParen {
		return Edge{}, fmt.Errorf("missing ')': %s", line)
	}

	parts := strings.Split(line[openParen+1:closeParen], ",")
	if len(parts) != 2 {
		return Edge{}, fmt.Errorf("expected 2 arguments, got %d: %s", len(parts), line)
	}

	return Edge{
		Relation: strings.TrimSpace(line[:openParen]),
		Child:    strings.TrimSpace(parts[0]),
		Parent:   strings.TrimSpace(parts[1]),
	}, nil
}

var _ Oracle = (*Taxonomy)(nil)
