package generalize

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
	"github.com/cognicore/semrel/pkg/semrel/internalerr"
	"github.com/cognicore/semrel/pkg/semrel/ontology"
	"github.com/cognicore/semrel/pkg/semrel/unify"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const motions = `
subclass(Kicking, Impelling)
subclass(Pushing, Impelling)
subclass(Impelling, Motion)
subclass(Motion, Process)
subclass(Reading, Process)
subclass(Process, Physical)
subclass(Physical, Entity)
`

func newGeneralizer(t *testing.T, taxonomy string, opts Options) *Generalizer {
	t.Helper()
	tax := ontology.NewTaxonomy()
	require.NoError(t, tax.LoadRules(taxonomy))
	opts.Oracle = tax
	opts.Logger = quiet
	return New(opts)
}

var (
	kicks  = cnf.MustParseCNF("typeOf(Kicking,kicks-2), nsubj(kicks-2,John-1), dobj(kicks-2,cart-4)")
	pushes = cnf.MustParseCNF("typeOf(Pushing,pushes-2), nsubj(pushes-2,Susan-1), dobj(pushes-2,wagon-4)")
	reads  = cnf.MustParseCNF("typeOf(Reading,reads-2), nsubj(reads-2,Mary-1), dobj(reads-2,book-4)")
)

func TestLiftTokens(t *testing.T) {
	lifted := LiftTokens([]cnf.CNF{kicks, pushes})
	assert.Equal(t, "typeOf(Kicking,?kicks-2_0), nsubj(?kicks-2_0,?John-1_0), dobj(?kicks-2_0,?cart-4_0)", lifted[0].String())
	assert.Equal(t, "typeOf(Pushing,?pushes-2_1), nsubj(?pushes-2_1,?Susan-1_1), dobj(?pushes-2_1,?wagon-4_1)", lifted[1].String())
}

func TestSharedAncestor(t *testing.T) {
	g := newGeneralizer(t, motions, Options{})
	for _, mode := range []Mode{Greedy, MostSpecific} {
		t.Run(mode.String(), func(t *testing.T) {
			in := LiftTokens([]cnf.CNF{kicks, pushes})
			res, err := g.Generalize(context.Background(), in[0], in[1], mode)
			require.NoError(t, err)
			assert.Equal(t, "typeOf(Impelling,?V1), nsubj(?V1,?V2), dobj(?V1,?V3)", res.CNF.String())

			v, ok := res.MapTerm(0, cnf.Var("kicks-2_0"))
			require.True(t, ok)
			assert.Equal(t, "?V1", v.String())
			v, ok = res.MapTerm(1, cnf.Var("wagon-4_1"))
			require.True(t, ok)
			assert.Equal(t, "?V3", v.String())
		})
	}
}

func TestNoSharedAncestorDropsTypeLiteral(t *testing.T) {
	g := newGeneralizer(t, "subclass(Kicking, Entity)\nsubclass(Pushing, Entity)", Options{})
	in := LiftTokens([]cnf.CNF{kicks, pushes})

	res, err := g.MostSpecificForm(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "nsubj(?V1,?V2), dobj(?V1,?V3)", res.CNF.String())

	res, err = New(Options{Logger: quiet}).FindOneCommonCNF(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "nsubj(?V1,?V2), dobj(?V1,?V3)", res.CNF.String(), "unknown classes have no ancestor")
}

func TestExactClassIsKept(t *testing.T) {
	g := newGeneralizer(t, motions, Options{})
	other := cnf.MustParseCNF("typeOf(Kicking,kicked-3), nsubj(kicked-3,Ann-1)")

	res, err := g.MostSpecificForm(context.Background(), LiftTokens([]cnf.CNF{kicks, other}))
	require.NoError(t, err)
	assert.Equal(t, "typeOf(Kicking,?V1), nsubj(?V1,?V2)", res.CNF.String())
}

func TestIdempotence(t *testing.T) {
	g := newGeneralizer(t, motions, Options{})
	in := LiftTokens([]cnf.CNF{kicks})[0]

	res, err := g.Generalize(context.Background(), in, in, MostSpecific)
	require.NoError(t, err)
	require.Equal(t, in.Len(), res.CNF.Len())

	renamed, ok := res.MapCNF(0, in)
	require.True(t, ok)
	assert.True(t, renamed.Equal(res.CNF), "got %s", res.CNF)
}

func TestMostSpecificFindsLargerPairing(t *testing.T) {
	g := newGeneralizer(t, motions, Options{})
	a := cnf.MustParseCNF("p(?a,?b), q(?b,?c)")
	b := cnf.MustParseCNF("p(?x,?y), p(?u,?w), q(?w,?z)")

	greedy, err := g.Generalize(context.Background(), a, b, Greedy)
	require.NoError(t, err)
	assert.Equal(t, "p(?V1,?V2)", greedy.CNF.String())

	best, err := g.Generalize(context.Background(), a, b, MostSpecific)
	require.NoError(t, err)
	assert.Equal(t, "p(?V1,?V2), q(?V2,?V3)", best.CNF.String())
}

func TestMostSpecificPrefersDeeperClass(t *testing.T) {
	g := newGeneralizer(t, motions, Options{})
	a := cnf.MustParseCNF("typeOf(Kicking,?k)")
	b := cnf.MustParseCNF("typeOf(Reading,?r), typeOf(Pushing,?p)")

	greedy, err := g.Generalize(context.Background(), a, b, Greedy)
	require.NoError(t, err)
	assert.Equal(t, "typeOf(Process,?V1)", greedy.CNF.String())

	best, err := g.Generalize(context.Background(), a, b, MostSpecific)
	require.NoError(t, err)
	assert.Equal(t, "typeOf(Impelling,?V1)", best.CNF.String())
}

func TestStepBudgetKeepsGreedyResult(t *testing.T) {
	g := newGeneralizer(t, motions, Options{MaxSteps: 1})
	a := cnf.MustParseCNF("p(?a,?b), q(?b,?c)")
	b := cnf.MustParseCNF("p(?x,?y), p(?u,?w), q(?w,?z)")

	res, err := g.Generalize(context.Background(), a, b, MostSpecific)
	require.NoError(t, err)
	assert.Equal(t, "p(?V1,?V2)", res.CNF.String())
}

func TestIgnoredPredicates(t *testing.T) {
	g := newGeneralizer(t, motions, Options{})
	a := cnf.MustParseCNF("nsubj(?v,?s), tense(?v,PAST), number(?s,SINGULAR)")
	b := cnf.MustParseCNF("nsubj(?w,?t), tense(?w,PAST), number(?t,SINGULAR)")

	res, err := g.Generalize(context.Background(), a, b, Greedy)
	require.NoError(t, err)
	assert.Equal(t, "nsubj(?V1,?V2)", res.CNF.String())
}

func TestDifferingConstantsDoNotGeneralize(t *testing.T) {
	g := newGeneralizer(t, motions, Options{})
	res, err := g.Generalize(context.Background(),
		cnf.MustParseCNF("likes(?x,Tea)"), cnf.MustParseCNF("likes(?y,Coffee)"), Greedy)
	require.NoError(t, err)
	assert.True(t, res.CNF.Empty())

	res, err = g.Generalize(context.Background(),
		cnf.MustParseCNF("likes(?x,Tea)"), cnf.MustParseCNF("likes(?y,Tea)"), Greedy)
	require.NoError(t, err)
	assert.Equal(t, "likes(?V1,Tea)", res.CNF.String())
}

func TestNoCommonLiteralIsNotAnError(t *testing.T) {
	g := newGeneralizer(t, motions, Options{})
	in := LiftTokens([]cnf.CNF{
		cnf.MustParseCNF("nsubj(sleeps-2,Ann-1)"),
		cnf.MustParseCNF("dobj(reads-2,book-4)"),
	})
	res, err := g.FindOneCommonCNF(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, res.CNF.Empty())
}

func TestNoInputs(t *testing.T) {
	g := newGeneralizer(t, motions, Options{})
	_, err := g.MostSpecificForm(context.Background(), nil)
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func TestMonotonicity(t *testing.T) {
	ctx := context.Background()
	tax := ontology.NewTaxonomy()
	require.NoError(t, tax.LoadRules(motions))
	g := New(Options{Oracle: tax, Logger: quiet})

	in := LiftTokens([]cnf.CNF{kicks, pushes, reads})
	two, err := g.MostSpecificForm(ctx, in[:2])
	require.NoError(t, err)
	three, err := g.MostSpecificForm(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, "typeOf(Process,?V1), nsubj(?V1,?V2), dobj(?V1,?V3)", three.CNF.String())
	require.Len(t, three.Maps, 3)
	for k, name := range []string{"kicks-2_0", "pushes-2_1", "reads-2_2"} {
		v, ok := three.MapTerm(k, cnf.Var(name))
		require.True(t, ok, name)
		assert.Equal(t, "?V1", v.String())
	}

	// The three-way form must match the two-way form read as ground facts.
	ground := two.CNF.Map(func(t cnf.Term) cnf.Term {
		if t.IsVar() {
			return cnf.Tok(t.Name, 0)
		}
		return t
	})
	u := unify.New(unify.Options{Oracle: tax, Logger: quiet})
	_, err = u.Unify(ctx, three.CNF, ground)
	assert.NoError(t, err)
}
