package symtable_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoil-lang/hoil/lang/symtable"
	"github.com/hoil-lang/hoil/lang/types"
)

func TestInsertAndLookup(t *testing.T) {
	mod := symtable.NewScope(nil)
	require.NoError(t, mod.Insert(&symtable.Entry{Name: "f", Kind: symtable.FunctionSym, Type: types.VoidType}))

	e, ok := mod.Lookup("f")
	require.True(t, ok)
	require.Equal(t, symtable.FunctionSym, e.Kind)
}

func TestInsertDuplicateInSameScopeFails(t *testing.T) {
	mod := symtable.NewScope(nil)
	require.NoError(t, mod.Insert(&symtable.Entry{Name: "x", Kind: symtable.GlobalSym}))
	err := mod.Insert(&symtable.Entry{Name: "x", Kind: symtable.GlobalSym})
	require.Error(t, err)
	require.Contains(t, err.Error(), "already declared")
}

func TestChildScopeCanShadowParent(t *testing.T) {
	mod := symtable.NewScope(nil)
	require.NoError(t, mod.Insert(&symtable.Entry{Name: "a", Kind: symtable.GlobalSym, Type: types.I32Type}))

	fn := symtable.NewScope(mod)
	require.NoError(t, fn.Insert(&symtable.Entry{Name: "a", Kind: symtable.ParamSym, Type: types.F64Type}))

	e, ok := fn.Lookup("a")
	require.True(t, ok)
	require.Equal(t, symtable.ParamSym, e.Kind)
	require.Equal(t, types.F64Type, e.Type)

	// the parent's binding is untouched
	pe, ok := mod.Lookup("a")
	require.True(t, ok)
	require.Equal(t, symtable.GlobalSym, pe.Kind)
}

func TestLookupWalksToParent(t *testing.T) {
	mod := symtable.NewScope(nil)
	require.NoError(t, mod.Insert(&symtable.Entry{Name: "g", Kind: symtable.GlobalSym}))

	fn := symtable.NewScope(mod)
	e, ok := fn.Lookup("g")
	require.True(t, ok)
	require.Equal(t, symtable.GlobalSym, e.Kind)

	_, ok = fn.LookupLocal("g")
	require.False(t, ok)
}

func TestLookupMissingName(t *testing.T) {
	mod := symtable.NewScope(nil)
	_, ok := mod.Lookup("missing")
	require.False(t, ok)
}

func TestLen(t *testing.T) {
	mod := symtable.NewScope(nil)
	require.Equal(t, 0, mod.Len())
	require.NoError(t, mod.Insert(&symtable.Entry{Name: "a", Kind: symtable.GlobalSym}))
	require.NoError(t, mod.Insert(&symtable.Entry{Name: "b", Kind: symtable.GlobalSym}))
	require.Equal(t, 2, mod.Len())
}

func TestKindString(t *testing.T) {
	require.Equal(t, "function", symtable.FunctionSym.String())
	require.Equal(t, "extern function", symtable.ExternFunctionSym.String())
	require.Equal(t, "local", symtable.LocalSym.String())
}
