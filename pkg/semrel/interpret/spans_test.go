package interpret

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
)

func toks(forms ...string) []cnf.Token {
	out := make([]cnf.Token, len(forms))
	for i, f := range forms {
		out[i] = cnf.Token{Form: f, Index: i + 1}
	}
	return out
}

func TestFindLongestMatch(t *testing.T) {
	c := NewSpanConsolidator([]DictEntry{
		{Canonical: "New York"},
		{Canonical: "New York City", Variants: []string{"NYC"}},
		{Canonical: "machine learning"},
	})

	spans := c.Find(toks("I", "love", "New", "York", "City", "and", "Machine", "Learning"))
	assert.Equal(t, []Span{
		{Start: 3, End: 5, Form: "New_York_City", Source: SpanDictionary},
		{Start: 7, End: 8, Form: "machine_learning", Source: SpanDictionary},
	}, spans)
}

func TestFindNeedsConsecutiveTokens(t *testing.T) {
	c := NewSpanConsolidator([]DictEntry{{Canonical: "New York"}})
	tokens := []cnf.Token{{Form: "New", Index: 1}, {Form: "York", Index: 3}}
	assert.Empty(t, c.Find(tokens))
}

func TestConsolidateAnnotatedSpans(t *testing.T) {
	facts := cnf.MustParseCNF("compound(York-2,New-1), prep_in(lives-4,York-2)")

	var c *SpanConsolidator
	out := c.Consolidate(facts, []Span{{Start: 1, End: 2, Source: SpanNER}})
	assert.Equal(t, "prep_in(lives-4,New_York-1)", out.String())
}

func TestConsolidateDictionaryWins(t *testing.T) {
	c := NewSpanConsolidator([]DictEntry{{Canonical: "New York"}})
	facts := cnf.MustParseCNF("compound(York-2,New-1), compound(City-3,York-2), nsubj(lives-4,City-3)")

	out := c.Consolidate(facts, []Span{{Start: 2, End: 3, Source: SpanNER}})
	assert.Equal(t, "compound(City-3,New_York-1), nsubj(lives-4,City-3)", out.String())
}

func TestConsolidateDedups(t *testing.T) {
	c := NewSpanConsolidator([]DictEntry{{Canonical: "George Washington"}})
	facts := cnf.MustParseCNF("sumo(Human,George-1), sumo(Human,Washington-2)")

	out := c.Consolidate(facts, nil)
	assert.Equal(t, "sumo(Human,George_Washington-1)", out.String())
}

func TestConsolidateWithoutSpans(t *testing.T) {
	c := NewSpanConsolidator(nil)
	facts := cnf.MustParseCNF("nsubj(reads-2,Robert-1)")
	assert.Equal(t, facts, c.Consolidate(facts, nil))
}
