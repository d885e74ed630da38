package debugger_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoil-lang/hoil/coil/debugger"
	"github.com/hoil-lang/hoil/coil/stream"
	"github.com/hoil-lang/hoil/coil/vm"
)

// buildLoopProgram returns a program with three records before a label
// named "loop" (id 1), followed by an EXIT, mirroring the shape of
// scenario 6: "a stream that defines label loop at offset O and contains
// three records before it."
func buildLoopProgram() []stream.Record {
	return []stream.Record{
		{Op: stream.OpAllocImm, Type: stream.MemInt64, VarAddress: 0, ImmValue: 1},
		{Op: stream.OpAllocImm, Type: stream.MemInt64, VarAddress: 8, ImmValue: 2},
		{Op: stream.OpAllocImm, Type: stream.MemInt64, VarAddress: 16, ImmValue: 3},
		{Op: stream.OpLabelDef, VarAddress: 1},
		{Op: stream.OpExit, ImmValue: 0},
	}
}

func TestDebuggerBreakpointStopsAtLabel(t *testing.T) {
	st := vm.New(buildLoopProgram())
	var out bytes.Buffer
	in := strings.NewReader("break L1\ncontinue\ninfo\nquit\n")

	d := debugger.New(st, in, &out)
	code, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, code)

	output := out.String()
	require.Contains(t, output, "Breakpoint hit at position 4")
	require.Contains(t, output, "Instructions executed: 3")
}

func TestDebuggerStepExecutesOneRecordAtATime(t *testing.T) {
	st := vm.New(buildLoopProgram())
	var out bytes.Buffer
	in := strings.NewReader("step\nstep\nstep\nstep\nstep\nquit\n")

	d := debugger.New(st, in, &out)
	_, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(4), st.InstructionCount)
}

func TestDebuggerBreakpointLimit(t *testing.T) {
	st := vm.New(buildLoopProgram())
	var out bytes.Buffer
	var cmds strings.Builder
	for i := 0; i < debugger.MaxBreakpoints+1; i++ {
		cmds.WriteString("break ")
		cmds.WriteString(itoa(i))
		cmds.WriteString("\n")
	}
	cmds.WriteString("quit\n")

	d := debugger.New(st, strings.NewReader(cmds.String()), &out)
	_, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Contains(t, out.String(), "limit of 16 reached")
}

func TestDebuggerMemoryDump(t *testing.T) {
	st := vm.New([]stream.Record{
		{Op: stream.OpAllocImm, Type: stream.MemUint8, VarAddress: 0, ImmValue: 0x48},
		{Op: stream.OpExit, ImmValue: 0},
	})
	var out bytes.Buffer
	in := strings.NewReader("step\nmemory 0 16\nquit\n")

	d := debugger.New(st, in, &out)
	_, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Contains(t, out.String(), "48")
}

func TestDebuggerFatalErrorKeepsSessionAlive(t *testing.T) {
	// A JMP to an undefined label is a fatal runtime error; the debugger
	// must report it but stay interactive until the user quits.
	st := vm.New([]stream.Record{
		{Op: stream.OpJmp, ImmValue: 99},
	})
	var out bytes.Buffer
	in := strings.NewReader("continue\ninfo\nquit\n")

	d := debugger.New(st, in, &out)
	code, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, code)
	require.Contains(t, out.String(), "label 99 not found")
	require.Contains(t, out.String(), "program terminated")
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
