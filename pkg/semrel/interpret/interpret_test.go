package interpret

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
	"github.com/cognicore/semrel/pkg/semrel/internalerr"
	"github.com/cognicore/semrel/pkg/semrel/ontology"
	"github.com/cognicore/semrel/pkg/semrel/procedures"
	"github.com/cognicore/semrel/pkg/semrel/rules"
	"github.com/cognicore/semrel/pkg/semrel/unify"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newInterpreter(t *testing.T, src string, opts Options) *Interpreter {
	t.Helper()
	tax := ontology.NewTaxonomy()
	require.NoError(t, tax.LoadRules(`
subclass(Shirt, Clothing)
subclass(Clothing, WearableItem)
subclass(Human, Animal)
`))
	rs, err := rules.ParseString("test.rules", src, rules.Options{Logger: quiet})
	require.NoError(t, err)

	opts.Rules = rs
	opts.Logger = quiet
	if opts.Unifier == nil {
		opts.Unifier = unify.New(unify.Options{Oracle: tax, Logger: quiet})
	}
	in, err := New(opts)
	require.NoError(t, err)
	return in
}

func literals(ls []cnf.Literal) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.String()
	}
	return out
}

func TestNewRequiresRules(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestInterpretWears(t *testing.T) {
	in := newInterpreter(t, "nsubj(wears*,?A), dobj(wears*,?O), +sumo(Clothing,?O) ==> (wears(?A,?O)).", Options{})

	res, err := in.Interpret(context.Background(),
		cnf.MustParseCNF("nsubj(wears-2,Robert-1), dobj(wears-2,shirt-4), sumo(Shirt,shirt-4)"))
	require.NoError(t, err)
	require.NoError(t, res.Err())

	assert.Equal(t, []string{"wears(Robert-1,shirt-4)"}, literals(res.Relations))
	assert.Equal(t, "sumo(Shirt,shirt-4), wears(Robert-1,shirt-4)", res.Facts.String())
	require.Len(t, res.Firings, 1)
	assert.Equal(t, "test.rules:1", res.Firings[0].Rule.ID)
	assert.Equal(t, "{?A=Robert-1, ?O=shirt-4}", res.Firings[0].Bindings.String())
	assert.Equal(t, 2, res.Passes)
	assert.Empty(t, res.Alternatives)
}

func TestInterpretWearsWithTypeChecks(t *testing.T) {
	src := "dobj(?V,?I), nsubj(?V,?A), typeOf(?TA,?A), isSubclass(?TA,Animal), " +
		"typeOf(?TI,?I), isSubclass(?TI,WearableItem) ==> (wears(?A,?I))."
	in := newInterpreter(t, src, Options{})

	res, err := in.Interpret(context.Background(), cnf.MustParseCNF(
		"nsubj(wears-2,Robert-1), typeOf(Human,Robert-1), dobj(wears-2,shirt-4), "+
			"typeOf(Shirt,shirt-4), typeOf(WearableItem,shirt-4)"))
	require.NoError(t, err)

	assert.Equal(t, []string{"wears(Robert-1,shirt-4)"}, literals(res.Relations))
	require.Len(t, res.Firings, 1)
	assert.Equal(t, "Shirt", res.Firings[0].Bindings.Walk(cnf.Var("TI")).String())
}

func TestInterpretNoExtraction(t *testing.T) {
	in := newInterpreter(t, "nsubj(wears*,?A), dobj(wears*,?O) ==> (wears(?A,?O)).", Options{})

	facts := cnf.MustParseCNF("nsubj(reads-2,Robert-1), dobj(reads-2,book-4)")
	res, err := in.Interpret(context.Background(), facts)
	require.NoError(t, err)
	assert.True(t, res.NoExtraction())
	assert.ErrorIs(t, res.Err(), internalerr.ErrNoExtraction)
	assert.True(t, res.Facts.Equal(facts))
	assert.Equal(t, 1, res.Passes)
}

func TestInterpretOptionalBranches(t *testing.T) {
	in := newInterpreter(t, "+nsubj(?V,?A) ?=> (agent(?V,?A)).", Options{})

	facts := cnf.MustParseCNF("nsubj(reads-2,Robert-1)")
	res, err := in.Interpret(context.Background(), facts)
	require.NoError(t, err)

	assert.True(t, res.Facts.Equal(facts), "primary fact base is untouched")
	require.Len(t, res.Alternatives, 1)
	assert.Equal(t, "nsubj(reads-2,Robert-1), agent(reads-2,Robert-1)", res.Alternatives[0].String())
	assert.Equal(t, []string{"agent(reads-2,Robert-1)"}, literals(res.Relations))
	assert.Len(t, res.Firings, 1)
}

func TestInterpretRulesRunOnBranches(t *testing.T) {
	src := `+nsubj(?V,?A) ?=> (agent(?V,?A)).
agent(?V,?A) ==> (doer(?A,?V)).`
	in := newInterpreter(t, src, Options{})

	res, err := in.Interpret(context.Background(), cnf.MustParseCNF("nsubj(reads-2,Robert-1)"))
	require.NoError(t, err)

	require.Len(t, res.Alternatives, 1)
	assert.Equal(t, "nsubj(reads-2,Robert-1), doer(Robert-1,reads-2)", res.Alternatives[0].String())
	assert.Equal(t, []string{"agent(reads-2,Robert-1)", "doer(Robert-1,reads-2)"}, literals(res.Relations))
	assert.Equal(t, 1, res.Firings[1].Branch)
}

func TestInterpretStop(t *testing.T) {
	src := `punct(?X,?Y) ==> stop.
nsubj(?V,?A) ==> (agent(?V,?A)).`
	in := newInterpreter(t, src, Options{})

	res, err := in.Interpret(context.Background(), cnf.MustParseCNF("punct(reads-2,comma-3), nsubj(reads-2,Robert-1)"))
	require.NoError(t, err)
	require.Len(t, res.Firings, 1)
	assert.Equal(t, "test.rules:1", res.Firings[0].Rule.ID)
	assert.Empty(t, res.Relations)
	assert.Equal(t, "nsubj(reads-2,Robert-1)", res.Facts.String())
}

func TestInterpretDeleteFiresOnEveryMatch(t *testing.T) {
	in := newInterpreter(t, "det(?X,the*) ==> !.", Options{})

	res, err := in.Interpret(context.Background(),
		cnf.MustParseCNF("det(shirt-4,the-3), det(hat-7,the-6), nsubj(wears-2,Robert-1)"))
	require.NoError(t, err)
	assert.Len(t, res.Firings, 2)
	assert.Equal(t, "nsubj(wears-2,Robert-1)", res.Facts.String())
	assert.Empty(t, res.Relations)
}

func TestInterpretFlagsDuplicates(t *testing.T) {
	src := `+nsubj(?V,?A) ==> (agent(?V,?A)).
+nsubj(?V,?A) ==> (agent(?V,?A)).`
	in := newInterpreter(t, src, Options{})

	res, err := in.Interpret(context.Background(), cnf.MustParseCNF("nsubj(reads-2,Robert-1)"))
	require.NoError(t, err)
	require.Len(t, res.Firings, 2)
	assert.False(t, res.Firings[0].Duplicate)
	assert.True(t, res.Firings[1].Duplicate)
	assert.Len(t, res.Relations, 1)
}

func TestInterpretFormula(t *testing.T) {
	in := newInterpreter(t, "+nsubj(?V,?A), +sumo(Animal,?A) ==> {(agent ?V ?A)}.", Options{})

	facts := cnf.MustParseCNF("nsubj(reads-2,Robert-1), sumo(Human,Robert-1)")
	res, err := in.Interpret(context.Background(), facts)
	require.NoError(t, err)
	assert.Equal(t, []string{"(agent reads-2 Robert-1)"}, res.Formulas)
	assert.Empty(t, res.Relations)
	assert.True(t, res.Facts.Equal(facts))
}

func TestInterpretUnboundWarning(t *testing.T) {
	in := newInterpreter(t, "nsubj(?V,?A) ==> (agent(?V,?Z)).", Options{})

	res, err := in.Interpret(context.Background(), cnf.MustParseCNF("nsubj(reads-2,Robert-1)"))
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, []string{"Z"}, res.Warnings[0].Vars)
	assert.Equal(t, "test.rules:1", res.Warnings[0].Rule)
}

func TestInterpretDegenerate(t *testing.T) {
	src := "==> (always(a,b))."
	facts := cnf.MustParseCNF("nsubj(reads-2,Robert-1)")

	res, err := newInterpreter(t, src, Options{}).Interpret(context.Background(), facts)
	require.NoError(t, err)
	assert.True(t, res.NoExtraction())

	res, err = newInterpreter(t, src, Options{AllowDegenerate: true}).Interpret(context.Background(), facts)
	require.NoError(t, err)
	require.Len(t, res.Firings, 1)
	assert.True(t, res.Firings[0].Degenerate)
	assert.Equal(t, []string{"always(a,b)"}, literals(res.Relations))
}

func TestInterpretPermanentFacts(t *testing.T) {
	src := `/- isa(Robert,Human).
+isa(?X,Human) ==> (person(?X,yes)).`
	in := newInterpreter(t, src, Options{})

	res, err := in.Interpret(context.Background(), cnf.MustParseCNF("nsubj(reads-2,Robert-1)"))
	require.NoError(t, err)
	assert.Equal(t, []string{"person(Robert,yes)"}, literals(res.Relations))
}

func TestInterpretTerminatesOnCycles(t *testing.T) {
	src := `a(?X,?Y) ==> (b(?X,?Y)).
b(?X,?Y) ==> (a(?X,?Y)).`
	in := newInterpreter(t, src, Options{MaxPasses: 3})

	res, err := in.Interpret(context.Background(), cnf.MustParseCNF("a(x-1,y-2)"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Passes, "repeat firings with the same bindings are not progress")
	assert.Equal(t, "a(x-1,y-2)", res.Facts.String())
	assert.Len(t, res.Firings, 2)
}

func TestInterpretEnumeratesMatchesOncePerPass(t *testing.T) {
	calls := 0
	procs := procedures.Default()
	procs.Register("seen", func(context.Context, cnf.Literal, ontology.Oracle) (procedures.Outcome, error) {
		calls++
		return procedures.Outcome{Status: procedures.Succeed}, nil
	})
	rs, err := rules.ParseString("test.rules", "+nsubj(?V,?A), seen(?V,?A) ==> {(agent ?V ?A)}.",
		rules.Options{Procedures: procs, Logger: quiet})
	require.NoError(t, err)
	in, err := New(Options{
		Rules:   rs,
		Unifier: unify.New(unify.Options{Procedures: procs, Logger: quiet}),
		Logger:  quiet,
	})
	require.NoError(t, err)

	const n = 12
	facts := make([]cnf.Literal, n)
	for i := range facts {
		facts[i] = cnf.NewLiteral("nsubj", cnf.Tok(fmt.Sprintf("v%d", i), 2*i+1), cnf.Tok(fmt.Sprintf("a%d", i), 2*i+2))
	}
	res, err := in.Interpret(context.Background(), cnf.FromLiterals(facts...))
	require.NoError(t, err)
	assert.Len(t, res.Firings, n)
	assert.Len(t, res.Formulas, n)
	assert.Equal(t, 2, res.Passes)
	assert.Equal(t, 2*n, calls, "each pass walks the matches once")
}

func TestInterpretCancelled(t *testing.T) {
	in := newInterpreter(t, "nsubj(?V,?A) ==> (agent(?V,?A)).", Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := in.Interpret(ctx, cnf.MustParseCNF("nsubj(reads-2,Robert-1)"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInterpretAll(t *testing.T) {
	in := newInterpreter(t, "nsubj(?V,?A) ==> (agent(?V,?A)).", Options{})

	res, err := in.InterpretAll(context.Background(), []cnf.CNF{
		cnf.MustParseCNF("nsubj(reads-2,Robert-1)"),
		cnf.MustParseCNF("dobj(reads-2,book-4)"),
	})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.False(t, res[0].NoExtraction())
	assert.True(t, res[1].NoExtraction())
}

func TestInterpretConsolidatesSpans(t *testing.T) {
	in := newInterpreter(t, "nsubj(?V,?A) ==> (agent(?V,?A)).", Options{
		Spans: NewSpanConsolidator([]DictEntry{{Canonical: "George Washington"}}),
	})

	res, err := in.Interpret(context.Background(),
		cnf.MustParseCNF("compound(Washington-2,George-1), nsubj(crossed-3,Washington-2)"))
	require.NoError(t, err)
	assert.Equal(t, "nsubj(crossed-3,George_Washington-1)", res.Input.String())
	assert.Equal(t, []string{"agent(crossed-3,George_Washington-1)"}, literals(res.Relations))
}
