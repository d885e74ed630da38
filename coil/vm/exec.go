package vm

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hoil-lang/hoil/coil/stream"
)

// Run executes the program from the current PC until it exits, ctx is
// cancelled, or an instruction errors. It returns the program's exit code.
func (s *State) Run(ctx context.Context) (int, error) {
	for s.Running {
		if err := ctx.Err(); err != nil {
			return s.ExitCode, fmt.Errorf("vm: cancelled: %w", err)
		}
		if s.PC >= len(s.Program) {
			break
		}
		if err := s.Step(); err != nil {
			return s.ExitCode, err
		}
	}
	return s.ExitCode, nil
}

// Step executes exactly one record and advances PC, or jumps PC itself for
// control-flow instructions.
func (s *State) Step() error {
	r := s.Program[s.PC]
	next := s.PC + 1
	if err := s.execute(r, &next); err != nil {
		s.Running = false
		if s.ExitCode == 0 {
			s.ExitCode = 1
		}
		return fmt.Errorf("vm: instruction %d (%s): %w", s.PC, r.Op, err)
	}
	s.PC = next
	if r.Op != stream.OpLabelDef {
		s.InstructionCount++
	}
	return nil
}

func (s *State) execute(r stream.Record, next *int) error {
	switch r.Op {
	case stream.OpLabelDef:
		// not an executable instruction

	case stream.OpAllocImm:
		size := stream.TypeSize(r.Type)
		if size == 0 {
			return fmt.Errorf("invalid memory type %s", r.Type)
		}
		dst, err := s.memorySlice(r.VarAddress, size)
		if err != nil {
			return err
		}
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], r.ImmValue)
		copy(dst, buf[:size])

	case stream.OpAllocMem, stream.OpMove:
		size := stream.TypeSize(r.Type)
		if size == 0 {
			return fmt.Errorf("invalid memory type %s", r.Type)
		}
		srcAddr := uint16(r.ImmValue)
		src, err := s.memorySlice(srcAddr, size)
		if err != nil {
			return err
		}
		tmp := make([]byte, size)
		copy(tmp, src)
		dst, err := s.memorySlice(r.VarAddress, size)
		if err != nil {
			return err
		}
		copy(dst, tmp)

	case stream.OpAdd, stream.OpSub, stream.OpMul, stream.OpDiv, stream.OpMod:
		src1Addr := uint16(r.ImmValue >> 32)
		src2Addr := uint16(r.ImmValue)
		src1, err := s.readInt64(src1Addr)
		if err != nil {
			return err
		}
		src2, err := s.readInt64(src2Addr)
		if err != nil {
			return err
		}
		var result int64
		switch r.Op {
		case stream.OpAdd:
			result = src1 + src2
		case stream.OpSub:
			result = src1 - src2
		case stream.OpMul:
			result = src1 * src2
		case stream.OpDiv:
			if src2 == 0 {
				return fmt.Errorf("division by zero")
			}
			result = src1 / src2
		case stream.OpMod:
			if src2 == 0 {
				return fmt.Errorf("modulo by zero")
			}
			result = src1 % src2
		}
		return s.writeInt64(r.VarAddress, result)

	case stream.OpNeg:
		src, err := s.readInt64(uint16(r.ImmValue))
		if err != nil {
			return err
		}
		return s.writeInt64(r.VarAddress, -src)

	case stream.OpAnd, stream.OpOr, stream.OpXor, stream.OpShl, stream.OpShr:
		src1Addr := uint16(r.ImmValue >> 32)
		src2Addr := uint16(r.ImmValue)
		src1, err := s.readInt64(src1Addr)
		if err != nil {
			return err
		}
		src2, err := s.readInt64(src2Addr)
		if err != nil {
			return err
		}
		var result int64
		switch r.Op {
		case stream.OpAnd:
			result = src1 & src2
		case stream.OpOr:
			result = src1 | src2
		case stream.OpXor:
			result = src1 ^ src2
		case stream.OpShl:
			result = src1 << uint(src2)
		case stream.OpShr:
			result = src1 >> uint(src2)
		}
		return s.writeInt64(r.VarAddress, result)

	case stream.OpNot:
		src, err := s.readInt64(uint16(r.ImmValue))
		if err != nil {
			return err
		}
		return s.writeInt64(r.VarAddress, ^src)

	case stream.OpJmp:
		pos, err := s.FindLabel(uint16(r.ImmValue))
		if err != nil {
			return err
		}
		*next = pos

	case stream.OpJeq, stream.OpJne, stream.OpJlt, stream.OpJle, stream.OpJgt, stream.OpJge:
		src1Addr := uint16(r.ImmValue >> 48)
		src2Addr := uint16(r.ImmValue >> 32)
		labelID := uint16(r.ImmValue)
		src1, err := s.readInt64(src1Addr)
		if err != nil {
			return err
		}
		src2, err := s.readInt64(src2Addr)
		if err != nil {
			return err
		}
		take := false
		switch r.Op {
		case stream.OpJeq:
			take = src1 == src2
		case stream.OpJne:
			take = src1 != src2
		case stream.OpJlt:
			take = src1 < src2
		case stream.OpJle:
			take = src1 <= src2
		case stream.OpJgt:
			take = src1 > src2
		case stream.OpJge:
			take = src1 >= src2
		}
		if take {
			pos, err := s.FindLabel(labelID)
			if err != nil {
				return err
			}
			*next = pos
		}

	case stream.OpCall:
		labelID := uint16(r.ImmValue)
		pos, err := s.FindLabel(labelID)
		if err != nil {
			return err
		}
		if err := s.CallStackPush(*next); err != nil {
			return err
		}
		*next = pos

	case stream.OpRet:
		pos, err := s.CallStackPop()
		if err != nil {
			return err
		}
		*next = pos

	case stream.OpPush:
		size := stream.TypeSize(r.Type)
		if size == 0 {
			return fmt.Errorf("invalid memory type %s", r.Type)
		}
		src, err := s.memorySlice(r.VarAddress, size)
		if err != nil {
			return err
		}
		return s.StackPush(src)

	case stream.OpPop:
		size := stream.TypeSize(r.Type)
		if size == 0 {
			return fmt.Errorf("invalid memory type %s", r.Type)
		}
		v, err := s.StackPop(size)
		if err != nil {
			return err
		}
		dst, err := s.memorySlice(r.VarAddress, size)
		if err != nil {
			return err
		}
		copy(dst, v)

	case stream.OpSyscall:
		return s.syscall(r, next)

	case stream.OpExit:
		s.ExitCode = int(int64(r.ImmValue))
		s.Running = false

	default:
		return fmt.Errorf("unsupported operation code %s", r.Op)
	}
	return nil
}

// syscall executes a SYSCALL record, optionally consuming the following
// ARG_DATA record for its arguments, mirroring the reference VM's
// lookahead-by-one-record convention.
func (s *State) syscall(r stream.Record, next *int) error {
	num := uint16(r.ImmValue)

	var args [3]uint16
	if *next < len(s.Program) && s.Program[*next].Op == stream.OpArgData {
		argImm := s.Program[*next].ImmValue
		args[0] = uint16(argImm >> 32)
		args[1] = uint16(argImm >> 16)
		args[2] = uint16(argImm)
		*next++
		// ARG_DATA is consumed here rather than stepped over on its own, but
		// it is still a counted record.
		s.InstructionCount++
	}

	switch num {
	case 1: // write
		fd := args[0]
		bufAddr := args[1]
		count := int(args[2])
		buf, err := s.memorySlice(bufAddr, count)
		if err != nil {
			return err
		}
		if s.Stdout != nil && fd == 1 {
			if _, err := s.Stdout.Write(buf); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	case 60: // exit
		s.ExitCode = int(int16(args[0]))
		s.Running = false
	default:
		return fmt.Errorf("unsupported syscall %d", num)
	}
	return nil
}

func (s *State) readInt64(addr uint16) (int64, error) {
	b, err := s.memorySlice(addr, 8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (s *State) writeInt64(addr uint16, v int64) error {
	b, err := s.memorySlice(addr, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, uint64(v))
	return nil
}

func (s *State) readFloat64(addr uint16) (float64, error) {
	b, err := s.memorySlice(addr, 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}
