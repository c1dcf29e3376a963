package egglog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDeclareSortRejectsDuplicates(t *testing.T) {
	g := New(&recordingEngine{})
	require.NoError(t, g.DeclareSort("Math"))
	require.ErrorIs(t, g.DeclareSort("Math"), ErrDuplicateSort)
	require.ErrorIs(t, g.DeclareSort(SortInt), ErrDuplicateSort, "builtins are already declared")
}

func TestDeclareConstructorValidation(t *testing.T) {
	g := New(&recordingEngine{})
	require.NoError(t, g.DeclareSort("Math"))

	err := g.DeclareConstructor(Variant{Name: "Num", Sort: "Nope", ArgSorts: []string{SortInt}})
	require.ErrorIs(t, err, ErrUnknownSort)

	err = g.DeclareConstructor(Variant{Name: "Num", Sort: "Math", ArgSorts: []string{"Nope"}})
	require.ErrorIs(t, err, ErrUnknownSort)

	require.NoError(t, g.DeclareConstructor(Variant{Name: "Num", Sort: "Math", ArgSorts: []string{SortInt}}))
	err = g.DeclareConstructor(Variant{Name: "Num", Sort: "Math", ArgSorts: []string{SortInt}})
	require.ErrorIs(t, err, ErrDuplicateVariant)
}

func TestDeclareFunctionValidation(t *testing.T) {
	g := New(&recordingEngine{})
	require.NoError(t, g.DeclareSort("Matrix"))

	err := g.DeclareFunction(FunctionDecl{Name: "nrows", ArgSorts: []string{"Tensor"}, OutSort: SortInt})
	require.ErrorIs(t, err, ErrUnknownSort)

	require.NoError(t, g.DeclareFunction(FunctionDecl{Name: "nrows", ArgSorts: []string{"Matrix"}, OutSort: SortInt}))
	err = g.DeclareFunction(FunctionDecl{Name: "nrows", ArgSorts: []string{"Matrix"}, OutSort: SortInt})
	require.ErrorIs(t, err, ErrDuplicateVariant)
}

func TestDefineRejectsFreeVariables(t *testing.T) {
	g, _ := newMathGraph(t)
	x := g.Registry().MustVar("x", "Math")
	e := g.Registry().MustCall("Add", x, g.Registry().MustCall("Num", 1))

	_, err := g.Define("bad", e, 0)
	require.ErrorIs(t, err, ErrFreeVariable)
}

func TestDefineCreatesReferenceableConstant(t *testing.T) {
	g, eng := newMathGraph(t)

	ten, err := g.Define("ten", g.Registry().MustCall("Num", 10), 0)
	require.NoError(t, err)
	require.Equal(t, "Math", ten.Sort())
	require.Equal(t, "ten", ten.String(), "define references serialize as bare names")

	// The defined name resolves through the builder like any symbol.
	ref, err := g.Call("ten")
	require.NoError(t, err)
	require.True(t, ten.Equal(ref))

	// A define reference is ground: defining on top of it must work.
	_, err = g.Define("tenPlusTen", g.Registry().MustCall("Add", ten, ref), 0)
	require.NoError(t, err)

	require.Contains(t, eng.commands, "(define ten (Num 10))")

	_, err = g.Define("ten", g.Registry().MustCall("Num", 11), 0)
	require.ErrorIs(t, err, ErrDuplicateVariant)
}

func TestVarRebindDifferentSortFails(t *testing.T) {
	g, _ := newMathGraph(t)
	_, err := g.Var("x", "Math")
	require.NoError(t, err)
	_, err = g.Var("x", "Math")
	require.NoError(t, err, "rebinding to the same sort is allowed")
	_, err = g.Var("x", SortInt)
	require.ErrorIs(t, err, ErrSortMismatch)

	_, err = g.Var("y", "Nope")
	require.ErrorIs(t, err, ErrUnknownSort)
}

func TestVarCannotShadowDeclaredSymbols(t *testing.T) {
	g, _ := newMathGraph(t)
	r := g.Registry()

	_, err := g.Define("ten", r.MustCall("Num", 10), 0)
	require.NoError(t, err)

	// A pattern variable named like the define would serialize identically
	// to the constant and be treated as ground.
	_, err = g.Var("ten", "Math")
	require.ErrorIs(t, err, ErrDuplicateVariant)

	_, err = g.Var("Num", "Math")
	require.ErrorIs(t, err, ErrDuplicateVariant)
}

func TestDeclarationsCommitInOrder(t *testing.T) {
	eng := &recordingEngine{}
	g := New(eng)

	require.NoError(t, g.DeclareSort("Math"))
	require.NoError(t, g.DeclareConstructor(Variant{Name: "Num", Sort: "Math", ArgSorts: []string{SortInt}, Cost: 2}))
	require.NoError(t, g.Relation("seen", "Math"))
	_, err := g.Constant("origin", "Math")
	require.NoError(t, err)

	want := []string{
		"(sort Math)",
		"(function Num (i64) Math :cost 2)",
		"(relation seen (Math))",
		"(function origin () Math)",
	}
	if diff := cmp.Diff(want, eng.commands); diff != "" {
		t.Fatalf("committed program mismatch (-want +got):\n%s", diff)
	}
}

func TestFailedDeclarationIsNotRecorded(t *testing.T) {
	eng := &recordingEngine{}
	g := New(eng)
	require.NoError(t, g.DeclareSort("Math"))

	eng.failWith = ErrFactNotEqual // any engine-side failure
	err := g.DeclareConstructor(Variant{Name: "Num", Sort: "Math", ArgSorts: []string{SortInt}})
	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)

	// The registry must not keep a symbol the engine rejected: the same
	// declaration succeeds once the engine recovers.
	require.NoError(t, g.DeclareConstructor(Variant{Name: "Num", Sort: "Math", ArgSorts: []string{SortInt}}))
	_, err = g.Call("Num", 1)
	require.NoError(t, err)
}

func TestConstantIsNullaryCall(t *testing.T) {
	g, _ := newMathGraph(t)
	origin, err := g.Constant("origin", "Math")
	require.NoError(t, err)
	require.Equal(t, ExprCall, origin.Kind())
	require.Equal(t, "(origin)", origin.String())

	viaCall, err := g.Call("origin")
	require.NoError(t, err)
	require.True(t, origin.Equal(viaCall))
}
