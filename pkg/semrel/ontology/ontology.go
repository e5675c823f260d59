// Package ontology defines the class hierarchy oracle consulted during
// unification and anti-unification, with in-memory, Prolog-backed and
// caching implementations.
package ontology

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/cognicore/semrel/pkg/semrel/internalerr"
)

// Oracle answers subsumption questions about ontology classes.
// Implementations may be remote, so every call takes a context and may fail.
type Oracle interface {
	// IsSubclass reports whether child equals parent or is a transitive
	// subclass of it.
	IsSubclass(ctx context.Context, child, parent string) (bool, error)

	// IsInstance reports whether term is an instance of class or of one of
	// its subclasses.
	IsInstance(ctx context.Context, term, class string) (bool, error)

	// IsSubAttribute reports whether attr equals parent or is a transitive
	// sub-attribute of it.
	IsSubAttribute(ctx context.Context, attr, parent string) (bool, error)

	// ClassesOf returns the direct classes of an instance term.
	ClassesOf(ctx context.Context, term string) ([]string, error)

	// CommonAncestor returns the most specific class subsuming both a and b.
	CommonAncestor(ctx context.Context, a, b string) (string, bool, error)

	// Depth is the length of the longest subclass chain from class to a root.
	// Unknown classes have depth 0.
	Depth(ctx context.Context, class string) (int, error)

	// Contains reports whether term is known to the ontology.
	Contains(ctx context.Context, term string) (bool, error)
}

// Relation names understood by the taxonomy loaders.
const (
	RelSubclass     = "subclass"
	RelInstance     = "instance"
	RelSubAttribute = "subAttribute"
)

// Edge is one asserted taxonomy fact.
type Edge struct {
	Relation string
	Child    string
	Parent   string
}

// Validate checks that e names a known relation and two non-empty terms.
func (e Edge) Validate() error {
	switch e.Relation {
	case RelSubclass, RelInstance, RelSubAttribute:
	default:
		return fmt.Errorf("unknown relation %q: %w", e.Relation, internalerr.ErrInvalidInput)
	}
	if e.Child == "" || e.Parent == "" {
		return fmt.Errorf("empty term in %s(%s, %s): %w", e.Relation, e.Child, e.Parent, internalerr.ErrInvalidInput)
	}
	return nil
}

// Writer accepts taxonomy facts. Taxonomy and PrologOracle implement it.
type Writer interface {
	Add(e Edge) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(e Edge) error

func (f WriterFunc) Add(e Edge) error { return f(e) }

// Load asserts every edge into w, stopping at the first failure.
func Load(w Writer, edges []Edge) error {
	for _, e := range edges {
		if err := w.Add(e); err != nil {
			return fmt.Errorf("add %s(%s, %s): %w", e.Relation, e.Child, e.Parent, err)
		}
	}
	return nil
}

// LoadText asserts facts written one per line as relation(child, parent).
// Blank lines and lines starting with '#' or ';' are skipped.
func LoadText(w Writer, text string) error {
	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		edge, err := parseEdge(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		if err := w.Add(edge); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}

	return scanner.Err()
}
