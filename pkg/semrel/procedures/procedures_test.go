package procedures

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
	"github.com/cognicore/semrel/pkg/semrel/internalerr"
	"github.com/cognicore/semrel/pkg/semrel/ontology"
)

func newOracle(t *testing.T) ontology.Oracle {
	t.Helper()
	tax := ontology.NewTaxonomy()
	require.NoError(t, tax.LoadRules(`
subclass(Clothing, WearableItem)
subclass(WearableItem, Artifact)
subclass(Shirt, Clothing)
instance(Robert, Human)
subclass(Human, Animal)
subAttribute(Crimson, Red)
`))
	return tax
}

func call(t *testing.T, r *Registry, o ontology.Oracle, src string) Outcome {
	t.Helper()
	lit, err := cnf.ParseLiteral(src)
	require.NoError(t, err)
	out, err := r.Call(context.Background(), lit, o)
	require.NoError(t, err)
	return out
}

func TestBuiltins(t *testing.T) {
	r := Default()
	o := newOracle(t)

	tests := []struct {
		src  string
		want Status
	}{
		{"isChildOf(Clothing,Artifact)", Succeed},
		{"isChildOf(Robert,Animal)", Succeed},
		{"isChildOf(Artifact,Clothing)", Fail},
		{"isSubclass(Shirt,Artifact)", Succeed},
		{"isSubclass(Shirt,Shirt)", Succeed},
		{"isSubclass(Human,Artifact)", Fail},
		{"isSubclass(?X,Artifact)", Fail},
		{"isInstanceOf(Robert,Animal)", Succeed},
		{"isInstanceOf(Human,Animal)", Fail},
		{"isSubAttribute(Crimson,Red)", Succeed},
		{"different(Robert-1,shirt-4)", Succeed},
		{"different(Robert-1,Robert-1)", Fail},
		{"different(?X,shirt-4)", Fail},
		{"~isSubclass(Human,Artifact)", Succeed},
		{"classOf(Animal,Robert-1)", Succeed},
		{"classOf(Artifact,Robert-1)", Fail},
		{"classOf(?C,Nobody-3)", Fail},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, call(t, r, o, tt.src).Status)
		})
	}
}

func TestClassOfBindsVariable(t *testing.T) {
	out := call(t, Default(), newOracle(t), "classOf(?C,Robert-1)")
	assert.Equal(t, SucceedWithBindings, out.Status)
	assert.Equal(t, cnf.Const("Human"), out.Bindings["C"])
}

func TestUnknownProcedure(t *testing.T) {
	lit := cnf.NewLiteral("isFriendOf", cnf.Const("A"), cnf.Const("B"))
	_, err := Default().Call(context.Background(), lit, newOracle(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalerr.ErrProcedureNotFound))

	var pnf *internalerr.ProcedureNotFoundError
	require.True(t, errors.As(err, &pnf))
	assert.Equal(t, "isFriendOf", pnf.Name)
}

func TestRegisterCustom(t *testing.T) {
	r := NewRegistry()
	r.Register("always", func(context.Context, cnf.Literal, ontology.Oracle) (Outcome, error) {
		return Outcome{Status: Succeed}, nil
	})
	assert.True(t, r.Has("always"))
	assert.False(t, r.Has("isSubclass"))
	assert.Equal(t, []string{"always"}, r.Names())
}

func TestIsCategory(t *testing.T) {
	tax := ontology.NewTaxonomy()
	require.NoError(t, tax.LoadRules(`
subclass(Man, Human)
subclass(Year, TimeMeasure)
subclass(Day, TimeMeasure)
instance(Wednesday, Day)
subclass(Walking, Process)
subclass(Number, Quantity)
subclass(Shirt, Clothing)
`))
	r := Default()

	tests := []struct {
		src  string
		want Status
	}{
		{"isCELTclass(Man,Person)", Succeed},
		{"isCELTclass(Year,Time)", Succeed},
		{"isCELTclass(Wednesday,Time)", Succeed},
		{"isCELTclass(Walking,Time)", Succeed},
		{"isCELTclass(Number,Time)", Fail},
		{"isCELTclass(Man,Time)", Fail},
		{"isCELTclass(Shirt,Clothing)", Succeed},
		{"isCELTclass(?X,Person)", Fail},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, call(t, r, tax, tt.src).Status)
		})
	}
}
