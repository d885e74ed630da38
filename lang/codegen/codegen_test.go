package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoil-lang/hoil/coil/binary"
	"github.com/hoil-lang/hoil/lang/checker"
	"github.com/hoil-lang/hoil/lang/codegen"
	"github.com/hoil-lang/hoil/lang/parser"
	"github.com/hoil-lang/hoil/lang/token"
)

func compile(t *testing.T, src string) *binary.Module {
	t.Helper()
	fs := token.NewFileSet()
	mod, err := parser.Parse(fs, "test.hoil", []byte(src))
	require.NoError(t, err)

	res, err := checker.Check(fs, mod)
	require.NoError(t, err)

	out, err := codegen.Generate(mod, res)
	require.NoError(t, err)
	return out
}

// TestMinimalCompile mirrors scenario 1: a single void function with one
// empty ENTRY block holding just a RET.
func TestMinimalCompile(t *testing.T) {
	out := compile(t, `MODULE "m"; FUNCTION f() -> void { ENTRY: RET; }`)

	require.Len(t, out.Functions, 1)
	require.Equal(t, "f", out.Functions[0].Name)
	require.False(t, out.Functions[0].IsExternal)
	require.Len(t, out.Functions[0].Blocks, 1)
	require.Equal(t, "ENTRY", out.Functions[0].Blocks[0].Name)

	raw := binary.Write(out)
	require.Equal(t, []byte{0x43, 0x4F, 0x49, 0x4C, 0x00, 0x00, 0x01, 0x00, 0x07, 0x00, 0x00, 0x00}, raw[:12])
}

func TestExternFunctionMarkedExternal(t *testing.T) {
	out := compile(t, `MODULE "m";
EXTERN FUNCTION puts(s: ptr<u8>) -> i32;
FUNCTION f() -> void { ENTRY: RET; }`)

	require.Len(t, out.Functions, 2)
	require.Equal(t, "puts", out.Functions[0].Name)
	require.True(t, out.Functions[0].IsExternal)
	require.False(t, out.Functions[1].IsExternal)
}

func TestArithmeticAndBranchLowering(t *testing.T) {
	out := compile(t, `MODULE "m";
FUNCTION add(a: i32, b: i32) -> i32 {
ENTRY:
  c = ADD a, b;
  BR done;
done:
  RET c;
}`)

	require.Len(t, out.Functions, 1)
	fn := out.Functions[0]
	require.Len(t, fn.Blocks, 2)
	require.Equal(t, uint32(0), fn.Blocks[0].Offset)
	require.Greater(t, fn.Blocks[1].Offset, fn.Blocks[0].Offset)

	instrs := decodeAll(t, out.Code)
	var sawAdd, sawBr, sawRet bool
	for _, in := range instrs {
		switch in.Opcode {
		case binary.OpAdd:
			sawAdd = true
		case binary.OpBr:
			sawBr = true
		case binary.OpRet:
			sawRet = true
		}
	}
	require.True(t, sawAdd)
	require.True(t, sawBr)
	require.True(t, sawRet)
}

func TestFloatAndStringLiteralsPoolIntoGlobals(t *testing.T) {
	out := compile(t, `MODULE "m";
FUNCTION f() -> void {
ENTRY:
  x = 3.5;
  s = "hi";
  RET;
}`)
	require.GreaterOrEqual(t, len(out.Globals), 2)
}

func TestCallLowering(t *testing.T) {
	out := compile(t, `MODULE "m";
FUNCTION callee(a: i32) -> i32 {
ENTRY:
  RET a;
}
FUNCTION caller() -> i32 {
ENTRY:
  r = callee(1);
  RET r;
}`)
	require.Len(t, out.Functions, 2)

	instrs := decodeAll(t, out.Code)
	var sawCall bool
	for _, in := range instrs {
		if in.Opcode == binary.OpCall {
			sawCall = true
		}
	}
	require.True(t, sawCall)
}

func decodeAll(t *testing.T, code []byte) []binary.Instruction {
	t.Helper()
	var out []binary.Instruction
	off := 0
	for off < len(code) {
		in, next, err := binary.DecodeInstruction(code, off)
		require.NoError(t, err)
		out = append(out, in)
		off = next
	}
	return out
}
