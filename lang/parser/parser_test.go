package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoil-lang/hoil/lang/ast"
	"github.com/hoil-lang/hoil/lang/parser"
	"github.com/hoil-lang/hoil/lang/token"
)

func parse(t *testing.T, src string) *ast.Module {
	t.Helper()
	fs := token.NewFileSet()
	mod, err := parser.Parse(fs, "test.hoil", []byte(src))
	require.NoError(t, err)
	return mod
}

func TestParseModuleHeader(t *testing.T) {
	mod := parse(t, `MODULE "m";`)
	require.Equal(t, "m", mod.Name)
	require.Empty(t, mod.Decls)
}

func TestParseTypeDecl(t *testing.T) {
	mod := parse(t, `MODULE "m"; TYPE Point { x: i32, y: i32 }`)
	require.Len(t, mod.Decls, 1)
	td, ok := mod.Decls[0].(*ast.TypeDecl)
	require.True(t, ok)
	require.Equal(t, "Point", td.Name)
	require.Len(t, td.Fields, 2)
	require.Equal(t, "x", td.Fields[0].Name)
	require.Equal(t, "y", td.Fields[1].Name)
}

func TestParseConstantDecl(t *testing.T) {
	mod := parse(t, `MODULE "m"; CONSTANT k : i32 = 42;`)
	cd, ok := mod.Decls[0].(*ast.ConstantDecl)
	require.True(t, ok)
	require.Equal(t, "k", cd.Name)
	lit, ok := cd.Value.(*ast.IntLit)
	require.True(t, ok)
	require.Equal(t, int64(42), lit.Value)
}

func TestParseGlobalDeclWithoutInitializer(t *testing.T) {
	mod := parse(t, `MODULE "m"; GLOBAL g : i64;`)
	gd, ok := mod.Decls[0].(*ast.GlobalDecl)
	require.True(t, ok)
	require.Equal(t, "g", gd.Name)
	require.Nil(t, gd.Value)
}

func TestParseExternFunctionDecl(t *testing.T) {
	mod := parse(t, `MODULE "m"; EXTERN FUNCTION puts(s: ptr<u8>) -> i32;`)
	ed, ok := mod.Decls[0].(*ast.ExternFunctionDecl)
	require.True(t, ok)
	require.Equal(t, "puts", ed.Name)
	require.Len(t, ed.Params, 1)
	_, isPtr := ed.Params[0].Type.(*ast.PtrType)
	require.True(t, isPtr)
}

func TestParseFunctionWithBlocksAndBranch(t *testing.T) {
	mod := parse(t, `MODULE "m";
FUNCTION f(a: i32) -> i32 {
ENTRY:
  c = ADD a, 1;
  BR done;
done:
  RET c;
}`)
	fd, ok := mod.Decls[0].(*ast.FunctionDecl)
	require.True(t, ok)
	require.Equal(t, "f", fd.Name)
	require.Len(t, fd.Blocks, 2)
	require.Equal(t, "ENTRY", fd.Blocks[0].Name)
	require.Equal(t, "done", fd.Blocks[1].Name)

	assign, ok := fd.Blocks[0].Stmts[0].(*ast.InstrStmt)
	require.True(t, ok)
	require.Equal(t, "c", assign.Dest)
	require.Equal(t, token.ADD, assign.Op)

	br, ok := fd.Blocks[0].Stmts[1].(*ast.BranchStmt)
	require.True(t, ok)
	require.Nil(t, br.Cond)
	require.Equal(t, "done", br.Then)
}

func TestParseConditionalBranch(t *testing.T) {
	mod := parse(t, `MODULE "m";
FUNCTION f(a: bool) -> void {
ENTRY:
  BR a, t, f;
t:
  RET;
f:
  RET;
}`)
	fd := mod.Decls[0].(*ast.FunctionDecl)
	br, ok := fd.Blocks[0].Stmts[0].(*ast.BranchStmt)
	require.True(t, ok)
	require.NotNil(t, br.Cond)
	require.Equal(t, "t", br.Then)
	require.Equal(t, "f", br.Else)
}

func TestParseCallExpression(t *testing.T) {
	mod := parse(t, `MODULE "m";
FUNCTION callee(a: i32) -> i32 { ENTRY: RET a; }
FUNCTION caller() -> i32 {
ENTRY:
  r = callee(1);
  RET r;
}`)
	fd := mod.Decls[1].(*ast.FunctionDecl)
	assign, ok := fd.Blocks[0].Stmts[0].(*ast.AssignStmt)
	require.True(t, ok)
	call, ok := assign.Value.(*ast.CallExpr)
	require.True(t, ok)
	require.Equal(t, "callee", call.Fun)
	require.Len(t, call.Args, 1)
}

func TestParseFieldAndIndexPostfix(t *testing.T) {
	mod := parse(t, `MODULE "m";
TYPE Point { x: i32, y: i32 }
FUNCTION f(p: Point) -> i32 {
ENTRY:
  v = p.x;
  RET v;
}`)
	fd := mod.Decls[1].(*ast.FunctionDecl)
	assign := fd.Blocks[0].Stmts[0].(*ast.AssignStmt)
	fa, ok := assign.Value.(*ast.FieldAccess)
	require.True(t, ok)
	require.Equal(t, "x", fa.Field)
}

func TestParseSyntaxErrorIsFailFast(t *testing.T) {
	fs := token.NewFileSet()
	_, err := parser.Parse(fs, "test.hoil", []byte(`MODULE "m"; CONSTANT k i32 = 1;`))
	require.Error(t, err)
}

func TestParseMissingModuleHeaderFails(t *testing.T) {
	fs := token.NewFileSet()
	_, err := parser.Parse(fs, "test.hoil", []byte(`FUNCTION f() -> void { ENTRY: RET; }`))
	require.Error(t, err)
}

func TestParseEmptyFunctionBodyIsError(t *testing.T) {
	fs := token.NewFileSet()
	_, err := parser.Parse(fs, "test.hoil", []byte(`MODULE "m"; FUNCTION f() -> void {}`))
	require.Error(t, err)
}
