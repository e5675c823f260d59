// Package storetest holds behaviour checks shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/semrel/pkg/semrel/ontology"
	"github.com/cognicore/semrel/pkg/semrel/store"
)

// Run exercises a store implementation. open must return an empty store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("Extractions", func(t *testing.T) { testExtractions(t, open(t)) })
	t.Run("Rules", func(t *testing.T) { testRules(t, open(t)) })
	t.Run("Taxonomy", func(t *testing.T) { testTaxonomy(t, open(t)) })
}

func testExtractions(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i, rel := range []string{"wears(Robert-1,shirt-4)", "agent(kicked-3,Ann-1)", "owns(Bob-1,car-3)"} {
		id, err := st.SaveExtraction(ctx, store.Extraction{
			Source:    "doc-1",
			Input:     "nsubj(x-1,y-2)",
			Facts:     rel,
			Relations: []string{rel},
			Passes:    2,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		require.NotEmpty(t, id)
		ids = append(ids, id)
	}

	got, ok, err := st.GetExtraction(ctx, ids[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "doc-1", got.Source)
	assert.Equal(t, []string{"wears(Robert-1,shirt-4)"}, got.Relations)
	assert.Empty(t, got.Formulas)
	assert.Equal(t, 2, got.Passes)
	assert.True(t, got.CreatedAt.Equal(base), "CreatedAt = %v", got.CreatedAt)

	_, ok, err = st.GetExtraction(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := st.ListExtractions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].ID, "newest first")
	assert.Equal(t, ids[1], list[1].ID)

	// Caller-supplied IDs are kept and overwrite.
	_, err = st.SaveExtraction(ctx, store.Extraction{ID: ids[0], Facts: "replaced(a-1,b-2)"})
	require.NoError(t, err)
	got, _, _ = st.GetExtraction(ctx, ids[0])
	assert.Equal(t, "replaced(a-1,b-2)", got.Facts)
}

func testRules(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	rule := "typeOf(Impelling,?V1), nsubj(?V1,?V2) ==> (agent(?V1,?V2))."
	require.NoError(t, st.UpsertRule(ctx, store.RuleRecord{Rule: rule, Group: "agent", Support: 2, Confidence: 0.5}))
	require.NoError(t, st.UpsertRule(ctx, store.RuleRecord{Rule: "p(?A,?B) ==> (q(?A,?B)).", Group: "q", Support: 3, Confidence: 0.9}))
	require.NoError(t, st.UpsertRule(ctx, store.RuleRecord{Rule: "r(?A,?B) ==> (s(?A,?B)).", Group: "s", Support: 2, Confidence: 0.1}))

	// Re-inducing a rule updates its evidence.
	require.NoError(t, st.UpsertRule(ctx, store.RuleRecord{Rule: rule, Group: "agent", Support: 4, Confidence: 0.8}))

	rules, err := st.ListRules(ctx, 0.3)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "p(?A,?B) ==> (q(?A,?B)).", rules[0].Rule)
	assert.Equal(t, rule, rules[1].Rule)
	assert.Equal(t, 4, rules[1].Support)
	assert.InDelta(t, 0.8, rules[1].Confidence, 1e-9)
	assert.False(t, rules[1].UpdatedAt.IsZero())

	all, err := st.ListRules(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func testTaxonomy(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	edges := []ontology.Edge{
		{Relation: ontology.RelSubclass, Child: "Shirt", Parent: "Clothing"},
		{Relation: ontology.RelSubclass, Child: "Clothing", Parent: "WearableItem"},
		{Relation: ontology.RelInstance, Child: "Robert", Parent: "Human"},
	}
	for _, e := range edges {
		require.NoError(t, st.AddEdge(ctx, e))
	}
	require.NoError(t, st.AddEdge(ctx, edges[0]), "duplicate edges are ignored")
	assert.Error(t, st.AddEdge(ctx, ontology.Edge{Relation: "likes", Child: "a", Parent: "b"}))

	got, err := st.Edges(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	o := st.Ontology()
	ok, err := o.IsSubclass(ctx, "Shirt", "WearableItem")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = o.IsInstance(ctx, "Robert", "Human")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = o.IsSubclass(ctx, "Shirt", "Hat")
	require.NoError(t, err)
	assert.False(t, ok)

	// The view sees edges added after it was taken.
	require.NoError(t, st.AddEdge(ctx, ontology.Edge{Relation: ontology.RelSubclass, Child: "Hat", Parent: "Clothing"}))
	anc, found, err := o.CommonAncestor(ctx, "Shirt", "Hat")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Clothing", anc)

	d, err := o.Depth(ctx, "Shirt")
	require.NoError(t, err)
	assert.Equal(t, 2, d)
}
