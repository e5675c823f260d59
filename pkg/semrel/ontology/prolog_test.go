package ontology

import (
	"context"
	"errors"
	"testing"

	"github.com/cognicore/semrel/pkg/semrel/internalerr"
)

func newPrologFixture(t *testing.T) *PrologOracle {
	t.Helper()
	o, err := NewPrologOracle()
	if err != nil {
		t.Fatalf("NewPrologOracle failed: %v", err)
	}
	// Reuse the text fixture through the in-memory loader.
	tax := newFixture(t)
	if err := Load(o, tax.Edges()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return o
}

func TestPrologOracleAgreesWithTaxonomy(t *testing.T) {
	ctx := context.Background()
	tax := newFixture(t)
	pl := newPrologFixture(t)

	pairs := [][2]string{
		{"Shirt", "Clothing"},
		{"Shirt", "Entity"},
		{"Clothing", "Shirt"},
		{"Kicking", "Process"},
		{"Human", "Artifact"},
	}
	for _, p := range pairs {
		want, _ := tax.IsSubclass(ctx, p[0], p[1])
		got, err := pl.IsSubclass(ctx, p[0], p[1])
		if err != nil {
			t.Fatalf("IsSubclass(%s, %s): %v", p[0], p[1], err)
		}
		if got != want {
			t.Errorf("IsSubclass(%s, %s) = %v, want %v", p[0], p[1], got, want)
		}
	}

	anc, ok, err := pl.CommonAncestor(ctx, "Kicking", "Pushing")
	if err != nil || !ok || anc != "Impelling" {
		t.Errorf("CommonAncestor(Kicking, Pushing) = %q, %v, %v", anc, ok, err)
	}

	if ok, _ := pl.IsInstance(ctx, "Robert", "Animal"); !ok {
		t.Error("Expected Robert to be an instance of Animal")
	}
	if ok, _ := pl.IsSubAttribute(ctx, "Crimson", "ColorAttribute"); !ok {
		t.Error("Expected Crimson to be a sub-attribute of ColorAttribute")
	}
	if ok, _ := pl.Contains(ctx, "Shirt"); !ok {
		t.Error("Expected Shirt to be known")
	}
	if ok, _ := pl.Contains(ctx, "Spaceship"); ok {
		t.Error("Spaceship should be unknown")
	}
}

func TestPrologOracleRejectsCycles(t *testing.T) {
	o, err := NewPrologOracle()
	if err != nil {
		t.Fatalf("NewPrologOracle failed: %v", err)
	}
	if err := o.Add(Edge{Relation: RelSubclass, Child: "A", Parent: "B"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	err = o.Add(Edge{Relation: RelSubclass, Child: "B", Parent: "A"})
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for a cycle, got %v", err)
	}
}
