package vm_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoil-lang/hoil/coil/stream"
	"github.com/hoil-lang/hoil/coil/vm"
)

func TestStreamingAdd(t *testing.T) {
	program := []stream.Record{
		{Op: stream.OpAllocImm, Type: stream.MemInt64, VarAddress: 10, ImmValue: 2},
		{Op: stream.OpAllocImm, Type: stream.MemInt64, VarAddress: 18, ImmValue: 40},
		{Op: stream.OpAdd, VarAddress: 0, ImmValue: (10 << 32) | 18},
	}
	s := vm.New(program)
	require.NoError(t, s.CollectLabels())
	code, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, code)

	got := int64(binary.LittleEndian.Uint64(s.Memory[0:8]))
	require.EqualValues(t, 42, got)
	require.EqualValues(t, 3, s.InstructionCount)
	require.Equal(t, 0, s.ExitCode)
}

func TestUnconditionalBranchWithUnknownLabelFails(t *testing.T) {
	program := []stream.Record{
		{Op: stream.OpJmp, ImmValue: 99},
		{Op: stream.OpLabelDef, VarAddress: 1},
		{Op: stream.OpExit, ImmValue: 7},
		{Op: stream.OpJmp, ImmValue: 1},
	}
	s := vm.New(program)
	require.NoError(t, s.CollectLabels())

	before := s.Memory
	_, err := s.Run(context.Background())
	require.Error(t, err)
	require.False(t, s.Running)
	require.Equal(t, before, s.Memory)
}

func TestSyscallWrite(t *testing.T) {
	program := []stream.Record{
		{Op: stream.OpAllocImm, Type: stream.MemUint8, VarAddress: 0, ImmValue: 'H'},
		{Op: stream.OpAllocImm, Type: stream.MemUint8, VarAddress: 1, ImmValue: 'e'},
		{Op: stream.OpAllocImm, Type: stream.MemUint8, VarAddress: 2, ImmValue: 'l'},
		{Op: stream.OpAllocImm, Type: stream.MemUint8, VarAddress: 3, ImmValue: 'l'},
		{Op: stream.OpAllocImm, Type: stream.MemUint8, VarAddress: 4, ImmValue: '\n'},
		{Op: stream.OpSyscall, ImmValue: 1},
		{Op: stream.OpArgData, ImmValue: (1 << 32) | (0 << 16) | 5},
	}
	var out bytes.Buffer
	s := vm.New(program)
	s.Stdout = &out
	require.NoError(t, s.CollectLabels())
	code, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.Equal(t, "Hell\n", out.String())
	require.EqualValues(t, 7, s.InstructionCount)
}

func TestLabelDefDoesNotCountAsAnInstruction(t *testing.T) {
	program := []stream.Record{
		{Op: stream.OpAllocImm, Type: stream.MemInt64, VarAddress: 0, ImmValue: 1},
		{Op: stream.OpLabelDef, VarAddress: 1},
		{Op: stream.OpExit, ImmValue: 0},
	}
	s := vm.New(program)
	require.NoError(t, s.CollectLabels())
	_, err := s.Run(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, s.InstructionCount)
}

func TestMemoryBoundsAreFatal(t *testing.T) {
	program := []stream.Record{
		{Op: stream.OpAllocImm, Type: stream.MemInt64, VarAddress: 65530, ImmValue: 1},
	}
	s := vm.New(program)
	require.NoError(t, s.CollectLabels())
	_, err := s.Run(context.Background())
	require.Error(t, err)
	require.False(t, s.Running)
	require.Equal(t, 1, s.ExitCode)
}

func TestDivideByZeroIsFatal(t *testing.T) {
	program := []stream.Record{
		{Op: stream.OpAllocImm, Type: stream.MemInt64, VarAddress: 0, ImmValue: 1},
		{Op: stream.OpAllocImm, Type: stream.MemInt64, VarAddress: 8, ImmValue: 0},
		{Op: stream.OpDiv, VarAddress: 16, ImmValue: (0 << 32) | 8},
	}
	s := vm.New(program)
	require.NoError(t, s.CollectLabels())
	_, err := s.Run(context.Background())
	require.Error(t, err)
	require.False(t, s.Running)
}

func TestCallStackUnderflowIsFatal(t *testing.T) {
	program := []stream.Record{
		{Op: stream.OpRet},
	}
	s := vm.New(program)
	require.NoError(t, s.CollectLabels())
	_, err := s.Run(context.Background())
	require.Error(t, err)
	require.False(t, s.Running)
}

func TestCallAndReturn(t *testing.T) {
	program := []stream.Record{
		{Op: stream.OpJmp, ImmValue: 1},     // 0: skip over the callee body
		{Op: stream.OpLabelDef, VarAddress: 2}, // 1: callee
		{Op: stream.OpAllocImm, Type: stream.MemInt64, VarAddress: 0, ImmValue: 5}, // 2
		{Op: stream.OpRet}, // 3
		{Op: stream.OpLabelDef, VarAddress: 1}, // 4: after skip
		{Op: stream.OpCall, ImmValue: 2},       // 5
		{Op: stream.OpExit, ImmValue: 0},       // 6
	}
	s := vm.New(program)
	require.NoError(t, s.CollectLabels())
	code, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, code)
	got := int64(binary.LittleEndian.Uint64(s.Memory[0:8]))
	require.EqualValues(t, 5, got)
}
