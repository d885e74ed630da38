// Package vm implements the COIL virtual machine: a small register-free
// interpreter over the streaming instruction format, addressing a flat
// static memory space by 16-bit address.
package vm

import (
	"fmt"
	"io"

	"github.com/hoil-lang/hoil/coil/stream"
)

// Fixed capacities of every VM's memory regions.
const (
	StaticMemorySize = 65536
	StackSize        = 4096
	CallStackSize    = 256
	MaxLabels        = 256
)

// State is the full runtime state of one VM instance. The zero value is not
// ready to use; call New.
type State struct {
	Memory     [StaticMemorySize]byte
	MemoryUsed int

	Stack     [StackSize]byte
	StackUsed int

	CallStack     [CallStackSize]int
	CallStackUsed int

	labels map[uint16]int // label id -> program index, collected by CollectLabels

	Program []stream.Record
	PC      int // index into Program of the next record to execute

	Stdout io.Writer // destination for the write(2) syscall; nil discards

	InstructionCount uint64
	Running          bool
	ExitCode         int
}

// New creates a State ready to execute program. CollectLabels must be
// called before Run to populate the label table.
func New(program []stream.Record) *State {
	return &State{
		Program: program,
		Running: true,
		labels:  make(map[uint16]int),
	}
}

// memorySlice returns a slice view of size bytes at addr, or an error if the
// access falls outside the static memory region.
func (s *State) memorySlice(addr uint16, size int) ([]byte, error) {
	if int(addr)+size > StaticMemorySize {
		return nil, fmt.Errorf("vm: memory access out of bounds: addr=%d size=%d", addr, size)
	}
	end := int(addr) + size
	if end > s.MemoryUsed {
		s.MemoryUsed = end
	}
	return s.Memory[addr:end], nil
}

// StackPush appends the bytes of v to the data stack.
func (s *State) StackPush(v []byte) error {
	if s.StackUsed+len(v) > StackSize {
		return fmt.Errorf("vm: stack overflow")
	}
	copy(s.Stack[s.StackUsed:], v)
	s.StackUsed += len(v)
	return nil
}

// StackPop removes and returns the last size bytes pushed onto the data
// stack.
func (s *State) StackPop(size int) ([]byte, error) {
	if s.StackUsed < size {
		return nil, fmt.Errorf("vm: stack underflow")
	}
	s.StackUsed -= size
	out := make([]byte, size)
	copy(out, s.Stack[s.StackUsed:s.StackUsed+size])
	return out, nil
}

// CallStackPush records a return program index.
func (s *State) CallStackPush(returnPC int) error {
	if s.CallStackUsed >= CallStackSize {
		return fmt.Errorf("vm: call stack overflow")
	}
	s.CallStack[s.CallStackUsed] = returnPC
	s.CallStackUsed++
	return nil
}

// CallStackPop removes and returns the most recently pushed return program
// index.
func (s *State) CallStackPop() (int, error) {
	if s.CallStackUsed == 0 {
		return 0, fmt.Errorf("vm: call stack underflow")
	}
	s.CallStackUsed--
	return s.CallStack[s.CallStackUsed], nil
}

// AddLabel records the program index following a LABEL_DEF record.
func (s *State) AddLabel(id uint16, pos int) error {
	if len(s.labels) >= MaxLabels {
		return fmt.Errorf("vm: too many labels defined")
	}
	if _, ok := s.labels[id]; ok {
		return fmt.Errorf("vm: label %d already defined", id)
	}
	s.labels[id] = pos
	return nil
}

// FindLabel returns the program index for label id.
func (s *State) FindLabel(id uint16) (int, error) {
	pos, ok := s.labels[id]
	if !ok {
		return 0, fmt.Errorf("vm: label %d not found", id)
	}
	return pos, nil
}

// Labels returns a snapshot of every label id collected by CollectLabels
// mapped to its program index, for the debugger's "list" command.
func (s *State) Labels() map[uint16]int {
	out := make(map[uint16]int, len(s.labels))
	for id, pos := range s.labels {
		out[id] = pos
	}
	return out
}

// LabelAt returns the label id defined at program index pos, if any. Used by
// the debugger to annotate disassembly with a resolved label name.
func (s *State) LabelAt(pos int) (uint16, bool) {
	for id, p := range s.labels {
		if p == pos {
			return id, true
		}
	}
	return 0, false
}

// CollectLabels performs the first pass over Program, recording every
// LABEL_DEF record's position so jumps and calls can resolve forward
// references. It must be called before Run.
func (s *State) CollectLabels() error {
	for i, r := range s.Program {
		if r.Op == stream.OpLabelDef {
			if err := s.AddLabel(r.VarAddress, i+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// Statistics renders a human-readable summary of the VM's resource usage,
// the data printed by -s on the command line.
func (s *State) Statistics() string {
	return fmt.Sprintf(
		"VM Statistics:\n"+
			"  Instructions executed: %d\n"+
			"  Memory used: %d bytes\n"+
			"  Memory limit: %d bytes\n"+
			"  Stack used: %d bytes\n"+
			"  Stack limit: %d bytes\n"+
			"  Call stack depth: %d\n"+
			"  Call stack limit: %d\n"+
			"  Exit code: %d\n",
		s.InstructionCount, s.MemoryUsed, StaticMemorySize,
		s.StackUsed, StackSize, s.CallStackUsed, CallStackSize, s.ExitCode)
}
