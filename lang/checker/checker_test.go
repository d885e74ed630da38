package checker_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoil-lang/hoil/lang/checker"
	"github.com/hoil-lang/hoil/lang/parser"
	"github.com/hoil-lang/hoil/lang/token"
)

func check(t *testing.T, src string) (*checker.Result, error) {
	t.Helper()
	fs := token.NewFileSet()
	mod, err := parser.Parse(fs, "test.hoil", []byte(src))
	require.NoError(t, err)
	return checker.Check(fs, mod)
}

func TestCheckValidModule(t *testing.T) {
	_, err := check(t, `MODULE "m"; FUNCTION f() -> void { ENTRY: RET; }`)
	require.NoError(t, err)
}

func TestCheckConstantTypeMismatchIsError(t *testing.T) {
	// scenario 2: assigning a string literal to an i32 constant.
	_, err := check(t, `MODULE "m"; CONSTANT k : i32 = "hello";`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "initializer has type")
}

func TestCheckUndefinedIdentifierIsError(t *testing.T) {
	_, err := check(t, `MODULE "m";
FUNCTION f() -> void {
ENTRY:
  x = missing;
  RET;
}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "undefined identifier")
}

func TestCheckDuplicateTypeDeclIsError(t *testing.T) {
	_, err := check(t, `MODULE "m";
TYPE Point { x: i32 }
TYPE Point { y: i32 }
FUNCTION f() -> void { ENTRY: RET; }`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already declared")
}

func TestCheckBranchToUndefinedLabelIsError(t *testing.T) {
	_, err := check(t, `MODULE "m";
FUNCTION f() -> void {
ENTRY:
  BR nowhere;
}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "undefined block label")
}

func TestCheckReturnTypeMismatchIsError(t *testing.T) {
	_, err := check(t, `MODULE "m";
FUNCTION f() -> i32 {
ENTRY:
  RET;
}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must return a value")
}

func TestCheckCallArityMismatchIsError(t *testing.T) {
	_, err := check(t, `MODULE "m";
FUNCTION callee(a: i32) -> i32 { ENTRY: RET a; }
FUNCTION caller() -> i32 {
ENTRY:
  r = callee(1, 2);
  RET r;
}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "expects 1 argument")
}

func TestCheckFieldAccessOnNonStructIsError(t *testing.T) {
	_, err := check(t, `MODULE "m";
FUNCTION f(a: i32) -> i32 {
ENTRY:
  v = a.x;
  RET v;
}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "field access on non-struct")
}

func TestCheckStructFieldTypeResolvesByName(t *testing.T) {
	res, err := check(t, `MODULE "m";
TYPE Point { x: i32, y: i32 }
FUNCTION f(p: Point) -> i32 {
ENTRY:
  v = p.x;
  RET v;
}`)
	require.NoError(t, err)
	require.Contains(t, res.StructTypes, "Point")
	require.Len(t, res.StructTypes["Point"].Fields, 2)
}

func TestCheckIntFloatCoercionAllowsAssignment(t *testing.T) {
	_, err := check(t, `MODULE "m"; CONSTANT k : f64 = 1;`)
	require.NoError(t, err)
}

func TestCheckForwardReferenceToLaterFunction(t *testing.T) {
	_, err := check(t, `MODULE "m";
FUNCTION caller() -> i32 {
ENTRY:
  r = callee(1);
  RET r;
}
FUNCTION callee(a: i32) -> i32 { ENTRY: RET a; }`)
	require.NoError(t, err)
}
