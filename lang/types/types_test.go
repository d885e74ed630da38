package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoil-lang/hoil/lang/types"
)

func TestCompatibleIntIgnoresSignedness(t *testing.T) {
	require.True(t, types.Compatible(types.I32Type, types.U32Type))
	require.False(t, types.Compatible(types.I32Type, types.I64Type))
}

func TestCompatibleFloatRequiresSameWidth(t *testing.T) {
	require.True(t, types.Compatible(types.F32Type, types.F32Type))
	require.False(t, types.Compatible(types.F32Type, types.F64Type))
}

func TestCompatibleIntFloatCoercion(t *testing.T) {
	require.True(t, types.Compatible(types.I32Type, types.F64Type))
	require.True(t, types.Compatible(types.F32Type, types.I8Type))
}

func TestCompatiblePtrRecursesOnElem(t *testing.T) {
	a := &types.Type{Kind: types.Ptr, Elem: types.I8Type}
	b := &types.Type{Kind: types.Ptr, Elem: types.U8Type}
	c := &types.Type{Kind: types.Ptr, Elem: types.I32Type}
	require.True(t, types.Compatible(a, b))
	require.False(t, types.Compatible(a, c))
}

func TestCompatibleVecAndArrayRequireEqualSize(t *testing.T) {
	a := &types.Type{Kind: types.Array, Elem: types.I32Type, Size: 4}
	b := &types.Type{Kind: types.Array, Elem: types.I32Type, Size: 4}
	c := &types.Type{Kind: types.Array, Elem: types.I32Type, Size: 8}
	require.True(t, types.Compatible(a, b))
	require.False(t, types.Compatible(a, c))
}

func TestCompatibleStructIsNominal(t *testing.T) {
	a := &types.Type{Kind: types.Struct, Name: "Point"}
	b := &types.Type{Kind: types.Struct, Name: "Point"}
	c := &types.Type{Kind: types.Struct, Name: "Vec2"}
	require.True(t, types.Compatible(a, b))
	require.False(t, types.Compatible(a, c))
}

func TestCompatibleFunctionComparesParamsAndReturn(t *testing.T) {
	a := &types.Type{Kind: types.Function, Params: []*types.Type{types.I32Type}, Ret: types.VoidType}
	b := &types.Type{Kind: types.Function, Params: []*types.Type{types.U32Type}, Ret: types.VoidType}
	c := &types.Type{Kind: types.Function, Params: []*types.Type{types.I64Type}, Ret: types.VoidType}
	require.True(t, types.Compatible(a, b))
	require.False(t, types.Compatible(a, c))
}

func TestCompatibleIsReflexiveAndSymmetric(t *testing.T) {
	cases := []*types.Type{
		types.VoidType, types.BoolType, types.I32Type, types.F64Type,
		{Kind: types.Ptr, Elem: types.I8Type},
		{Kind: types.Array, Elem: types.I32Type, Size: 4},
		{Kind: types.Struct, Name: "Point"},
	}
	for _, a := range cases {
		require.True(t, types.Compatible(a, a), "reflexive: %s", a)
		for _, b := range cases {
			require.Equal(t, types.Compatible(a, b), types.Compatible(b, a), "symmetric: %s ~ %s", a, b)
		}
	}
}

func TestCompatibleNilHandling(t *testing.T) {
	require.True(t, types.Compatible(nil, nil))
	require.False(t, types.Compatible(nil, types.VoidType))
}

func TestNamedLooksUpBuiltinScalars(t *testing.T) {
	require.Equal(t, types.I32Type, types.Named("i32"))
	require.Equal(t, types.F64Type, types.Named("f64"))
	require.Nil(t, types.Named("Point"))
}

func TestAssignableNullToPtrOnly(t *testing.T) {
	require.True(t, types.AssignableNullTo(&types.Type{Kind: types.Ptr, Elem: types.I8Type}))
	require.False(t, types.AssignableNullTo(types.I32Type))
	require.False(t, types.AssignableNullTo(nil))
}

func TestIsNumeric(t *testing.T) {
	require.True(t, types.I32Type.IsNumeric())
	require.True(t, types.F64Type.IsNumeric())
	require.False(t, types.BoolType.IsNumeric())
}
