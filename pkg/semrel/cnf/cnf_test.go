package cnf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/semrel/pkg/semrel/internalerr"
)

func TestParseToken(t *testing.T) {
	tests := []struct {
		in      string
		form    string
		index   int
		ok      bool
		printed string // defaults to in
	}{
		{"Robert-1", "Robert", 1, true, ""},
		{"ROOT-0", "ROOT", 0, true, ""},
		{"New-York-3", "New-York", 3, true, ""},
		{"3,000-12", "3,000", 12, true, `"3,000"-12`},
		{"Human", "", 0, false, ""},
		{"-LRB-", "", 0, false, ""},
		{"-5", "", 0, false, ""},
		{"e-mail", "", 0, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			tok, ok := ParseToken(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, Token{Form: tt.form, Index: tt.index}, tok)
				printed := tt.printed
				if printed == "" {
					printed = tt.in
				}
				assert.Equal(t, printed, tok.String())
			}
		})
	}
}

func TestParseTermKinds(t *testing.T) {
	assert.Equal(t, KindVar, ParseTerm("?X").Kind)
	assert.Equal(t, "X", ParseTerm("?X").Name)
	assert.Equal(t, KindWord, ParseTerm("wears*").Kind)
	assert.Equal(t, "wears", ParseTerm("wears*").Name)
	assert.Equal(t, KindToken, ParseTerm("wears-2").Kind)
	assert.Equal(t, KindConst, ParseTerm("Clothing").Kind)
	assert.Equal(t, KindQuoted, ParseTerm(`"red hat"`).Kind)
	assert.Equal(t, "?", ParseTerm("?").Name, "a lone question mark is a constant")
}

func TestParseCNFRoundTrip(t *testing.T) {
	inputs := []string{
		"nsubj(wears-2,Robert-1), dobj(wears-2,shirt-4)",
		"+nsubj(?V,?A), (dobj(?V,?O) | iobj(?V,?O)), {isSubclass(?T,Clothing)}",
		"~det(?X,the-1), sumo(Human,Robert-1)",
		`name(?X,"Robert Smith"), root(ROOT-0,wears*)`,
		"nmod:in(sat-2,mat-5)",
		`nummod(dollars-6,"3,000"-5), compound("New York"-2,City-3)`,
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			c, err := ParseCNF(in)
			require.NoError(t, err)
			assert.Equal(t, in, c.String())

			again, err := ParseCNF(c.String())
			require.NoError(t, err)
			assert.True(t, c.Equal(again))
		})
	}
}

func TestTokenFormsWithDelimitersRoundTrip(t *testing.T) {
	forms := []string{"3,000", "(", ")", "a|b", "New York", "?", "!", `say "hi"`, "", "New-York"}
	for _, form := range forms {
		t.Run(form, func(t *testing.T) {
			lit := NewLiteral("nummod", Tok("dollars", 6), Tok(form, 5))
			c, err := ParseCNF(lit.String())
			require.NoError(t, err)
			require.Len(t, c.Literals(), 1)
			assert.Equal(t, lit, c.Literals()[0])
		})
	}

	assert.Equal(t, `"3,000"-5`, Tok("3,000", 5).String())
	assert.Equal(t, "New-York-3", Tok("New-York", 3).String())

	// A quoted string without an index stays a quoted constant.
	c, err := ParseCNF(`name(?X,"3,000")`)
	require.NoError(t, err)
	assert.Equal(t, KindQuoted, c.Literals()[0].Arg2.Kind)
}

func TestParseCNFOptionalCommasAndComments(t *testing.T) {
	src := `; annotator output
nsubj(wears-2,Robert-1)
dobj(wears-2,shirt-4)
# trailing comment
.`
	c, err := ParseCNF(src)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestParseMarkers(t *testing.T) {
	lit, err := ParseLiteral("-nsubj(?X,?Y)")
	require.NoError(t, err)
	assert.True(t, lit.Negated)
	assert.Equal(t, "nsubj", lit.Pred)

	lit, err = ParseLiteral("+{different(?X,?Y)}")
	require.NoError(t, err)
	assert.True(t, lit.Proc)
	assert.True(t, lit.Preserve)
}

func TestParseIsProcedureCallback(t *testing.T) {
	p := NewParser("isSubclass(?X,Animal), nsubj(?A,?B)", "")
	p.IsProcedure = func(pred string) bool { return pred == "isSubclass" }
	c, err := p.ParseCNF()
	require.NoError(t, err)
	require.Len(t, c.Clauses, 2)
	assert.True(t, c.Clauses[0].IsProcedure())
	assert.False(t, c.Clauses[1].IsProcedure())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		reason string
	}{
		{"one argument", "nsubj(wears-2)", "expected 2 arguments, got 1"},
		{"three arguments", "nsubj(a,b,c)", "expected 2 arguments, got 3"},
		{"unbalanced", "nsubj(a,b", "unbalanced parentheses"},
		{"unbalanced disjunction", "(nsubj(a,b) | dobj(a,b)", "unbalanced parentheses"},
		{"missing predicate", "(,b)", "expected predicate, got ','"},
		{"unterminated quote", `name(a,"bob)`, "unterminated quoted string"},
		{"trailing garbage", "nsubj(a,b) )", "unexpected ')'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCNF(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, internalerr.ErrMalformedClause))

			var mce *internalerr.MalformedClauseError
			require.True(t, errors.As(err, &mce))
			assert.Equal(t, tt.reason, mce.Reason)
			assert.Equal(t, 1, mce.Line)
		})
	}
}

func TestParseErrorLine(t *testing.T) {
	_, err := ParseCNF("nsubj(a,b),\ndobj(a,b),\niobj(a)")
	var mce *internalerr.MalformedClauseError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, 3, mce.Line)
}

func TestCNFSetOperations(t *testing.T) {
	a := MustParseCNF("nsubj(wears-2,Robert-1), dobj(wears-2,shirt-4)")
	b := MustParseCNF("dobj(wears-2,shirt-4), sumo(Shirt,shirt-4)")

	merged := a.Merge(b)
	assert.Equal(t, "nsubj(wears-2,Robert-1), dobj(wears-2,shirt-4), sumo(Shirt,shirt-4)", merged.String())

	assert.Equal(t, "dobj(wears-2,shirt-4)", a.Without(map[int]bool{0: true}).String())
	assert.True(t, a.Equal(MustParseCNF("dobj(wears-2,shirt-4), nsubj(wears-2,Robert-1)")))
	assert.False(t, a.Equal(b))
}

func TestCNFVarsAndLift(t *testing.T) {
	c := MustParseCNF("nsubj(?V,?A), dobj(?V,shirt-4)")
	assert.Equal(t, []string{"V", "A"}, c.Vars())

	lifted := MustParseCNF("nsubj(wears-2,Robert-1), sumo(Human,Robert-1)").LiftTokens("_0")
	assert.Equal(t, "nsubj(?wears-2_0,?Robert-1_0), sumo(Human,?Robert-1_0)", lifted.String())
}

func TestCoverageSkipsProceduresAndIgnored(t *testing.T) {
	c := MustParseCNF("nsubj(wears*,?A), sumo(Clothing,?O), {isSubclass(?C,Clothing)}, (dobj(?V,?O) | iobj(?V,?O))")
	preds, terms := c.Coverage(func(p string) bool { return p == "sumo" })

	assert.True(t, preds.Equal(newSet("nsubj")))
	assert.True(t, terms.Equal(newSet("wears")))
}

func TestFactTermsAreLowerCased(t *testing.T) {
	c := MustParseCNF("nsubj(Wears-2,Robert-1), sumo(Human,Robert-1)")
	assert.True(t, c.Terms().Contains("wears", "robert", "human"))
	assert.True(t, c.Preds().Contains("nsubj", "sumo"))
}
