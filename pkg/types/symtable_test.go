package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableGlobalDefineAndLookup(t *testing.T) {
	tbl := NewTable()
	require.True(t, tbl.Define("x", Number, false))
	require.False(t, tbl.Define("x", Text, false), "redefinition in the same scope must fail")

	ty, ok := tbl.Lookup("x")
	require.True(t, ok)
	require.Equal(t, Number, ty)

	_, ok = tbl.Lookup("nope")
	require.False(t, ok)
}

func TestTableFunctionScopeShadowsGlobal(t *testing.T) {
	tbl := NewTable()
	tbl.Define("x", Number, false)

	tbl.EnterFunction()
	tbl.Define("x", Text, false)
	ty, ok := tbl.Lookup("x")
	require.True(t, ok)
	require.Equal(t, Text, ty, "local x shadows the global x")

	tbl.ExitFunction()
	ty, ok = tbl.Lookup("x")
	require.True(t, ok)
	require.Equal(t, Number, ty, "global x is visible again once the function scope is gone")
}

func TestTableNestedBlockScopeIsTornDownOnExit(t *testing.T) {
	tbl := NewTable()
	tbl.EnterFunction()
	tbl.Define("outer", Number, false)

	tbl.EnterScope()
	tbl.Define("inner", Text, false)
	_, ok := tbl.Lookup("inner")
	require.True(t, ok)
	tbl.ExitScope()

	_, ok = tbl.Lookup("inner")
	require.False(t, ok, "inner falls out of scope once its block ends")
	_, ok = tbl.Lookup("outer")
	require.True(t, ok, "outer survives the nested block's teardown")
}

func TestTableStructAndFunctionRegistries(t *testing.T) {
	tbl := NewTable()
	require.True(t, tbl.DefineStruct(&StructDef{
		Name:       "point",
		FieldNames: []string{"x", "y"},
		FieldTypes: map[string]Type{"x": Number, "y": Number},
	}))
	require.False(t, tbl.DefineStruct(&StructDef{Name: "point"}), "duplicate structure names must be rejected")

	def, ok := tbl.Struct("point")
	require.True(t, ok)
	require.Equal(t, []string{"x", "y"}, def.FieldNames)

	require.True(t, tbl.DefineFunction(&FunctionSig{
		Name:       "distance",
		ParamNames: []string{"a", "b"},
		ParamTypes: []Type{Structure("point"), Structure("point")},
		ReturnType: Number,
	}))
	require.False(t, tbl.DefineFunction(&FunctionSig{Name: "distance"}))

	sig, ok := tbl.Function("distance")
	require.True(t, ok)
	require.Equal(t, Number, sig.ReturnType)
}

func TestTableInFunction(t *testing.T) {
	tbl := NewTable()
	require.False(t, tbl.InFunction())
	tbl.EnterFunction()
	require.True(t, tbl.InFunction())
	tbl.ExitFunction()
	require.False(t, tbl.InFunction())
}
