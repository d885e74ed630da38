package codegen

import (
	encbinary "encoding/binary"
	"fmt"

	"github.com/hoil-lang/hoil/coil/binary"
	"github.com/hoil-lang/hoil/lang/ast"
	"github.com/hoil-lang/hoil/lang/token"
	"github.com/hoil-lang/hoil/lang/types"
)

// LOAD's flags byte selects how its single operand (or, for the immediate
// form, its operand bytes) should be interpreted, resolving spec §9.5 (no
// operands are specified for a literal LOAD) the way SPEC_FULL.md §4 records:
// integer literals are carried inline as a 4-byte immediate (truncated to 32
// bits), float and string literals go through a pooled Global-section entry,
// and globals and constants are referenced by section index.
const (
	loadImmediate uint8 = iota // operand = 4-byte little-endian int32
	loadConstant                // operand = 2-byte little-endian constant-section index
	loadGlobal                  // operand = 2-byte little-endian global-section index
	loadRegister                // operand = 1-byte source register
)

// genFunction lowers one HOIL function body into the builder's Code section:
// the instructions of every statement, across every block in declaration
// order.
func (g *generator) genFunction(fn *ast.FunctionDecl) error {
	idx, ok := g.funcIdx[fn.Name]
	if !ok {
		return fmt.Errorf("codegen: function %q has no registered index", fn.Name)
	}
	if !g.b.BeginFunctionCode(idx) {
		return fmt.Errorf("codegen: could not begin code for function %q", fn.Name)
	}

	fg := &funcGen{
		generator: g,
		regs:      make(map[string]uint8, len(fn.Params)),
		blockIdx:  g.res.BlockIndex[fn],
	}
	for _, p := range fn.Params {
		fg.regs[p.Name] = fg.allocReg()
	}

	for _, b := range fn.Blocks {
		if g.b.AddBlock(b.Name) < 0 {
			return fmt.Errorf("codegen: could not open block %q in function %q", b.Name, fn.Name)
		}
		for _, st := range b.Stmts {
			if err := fg.genStmt(st); err != nil {
				return err
			}
		}
	}

	if !g.b.EndFunctionCode() {
		return fmt.Errorf("codegen: could not close code for function %q", fn.Name)
	}
	return nil
}

// funcGen holds the per-function state of code generation: the naive
// register allocator (spec §4.I, §9.3 — next_reg++, no reuse) and the
// function's resolved block-label-to-index table from the checker.
type funcGen struct {
	*generator
	regs     map[string]uint8 // local/parameter name -> assigned register
	blockIdx map[string]int
	nextReg  uint8
}

// allocReg assigns the next free register. 0xFF (binary.NoDestination) is
// reserved, so a function may use at most 255 distinct registers; this
// toolchain does not guard against overflow beyond that, matching the
// source's unchecked next_reg++ strategy.
func (fg *funcGen) allocReg() uint8 {
	r := fg.nextReg
	fg.nextReg++
	return r
}

// regOf returns dest's register, allocating a fresh one on first use.
func (fg *funcGen) regOf(name string) uint8 {
	if r, ok := fg.regs[name]; ok {
		return r
	}
	r := fg.allocReg()
	fg.regs[name] = r
	return r
}

func (fg *funcGen) genStmt(st ast.Stmt) error {
	switch st := st.(type) {
	case *ast.AssignStmt:
		return fg.genInto(fg.regOf(st.Dest), st.Value)

	case *ast.InstrStmt:
		operands := make([]uint8, len(st.Operands))
		for i, o := range st.Operands {
			r, err := fg.exprReg(o)
			if err != nil {
				return err
			}
			operands[i] = r
		}
		dest := uint8(binary.NoDestination)
		if st.Dest != "" {
			dest = fg.regOf(st.Dest)
		}
		op, err := compactOpcode(st.Op)
		if err != nil {
			return err
		}
		fg.b.AddInstruction(op, 0, dest, operands)
		return nil

	case *ast.BranchStmt:
		return fg.genBranch(st)

	case *ast.ReturnStmt:
		return fg.genReturn(st)

	default:
		return fmt.Errorf("codegen: unhandled statement %T", st)
	}
}

func (fg *funcGen) genBranch(st *ast.BranchStmt) error {
	if st.Cond == nil {
		idx, ok := fg.blockIdx[st.Then]
		if !ok {
			return fmt.Errorf("codegen: branch to undefined block %q", st.Then)
		}
		fg.b.AddInstruction(binary.OpBr, 0, binary.NoDestination, []uint8{uint8(idx)})
		return nil
	}

	cond, err := fg.exprReg(st.Cond)
	if err != nil {
		return err
	}
	thenIdx, ok := fg.blockIdx[st.Then]
	if !ok {
		return fmt.Errorf("codegen: branch to undefined block %q", st.Then)
	}
	elseIdx, ok := fg.blockIdx[st.Else]
	if !ok {
		return fmt.Errorf("codegen: branch to undefined block %q", st.Else)
	}
	fg.b.AddInstruction(binary.OpBrCond, 0, binary.NoDestination, []uint8{cond, uint8(thenIdx), uint8(elseIdx)})
	return nil
}

func (fg *funcGen) genReturn(st *ast.ReturnStmt) error {
	if st.Value == nil {
		fg.b.AddInstruction(binary.OpRet, 0, binary.NoDestination, nil)
		return nil
	}
	r, err := fg.exprReg(st.Value)
	if err != nil {
		return err
	}
	fg.b.AddInstruction(binary.OpRet, 0, binary.NoDestination, []uint8{r})
	return nil
}

// exprReg returns the register holding e's value, emitting whatever
// instructions are needed to materialize it. An Ident already bound to a
// register is returned directly, without a redundant copy.
func (fg *funcGen) exprReg(e ast.Expr) (uint8, error) {
	if id, ok := e.(*ast.Ident); ok {
		if r, ok := fg.regs[id.Name]; ok {
			return r, nil
		}
	}
	r := fg.allocReg()
	if err := fg.genInto(r, e); err != nil {
		return 0, err
	}
	return r, nil
}

// genInto emits the instructions that leave e's value in register dest.
func (fg *funcGen) genInto(dest uint8, e ast.Expr) error {
	switch e := e.(type) {
	case *ast.IntLit:
		var buf [4]byte
		encbinary.LittleEndian.PutUint32(buf[:], uint32(e.Value))
		fg.b.AddInstruction(binary.OpLoad, loadImmediate, dest, buf[:])
		return nil

	case *ast.FloatLit:
		idx, err := fg.poolFloat(e.Value)
		if err != nil {
			return err
		}
		fg.b.AddInstruction(binary.OpLoad, loadGlobal, dest, u16le(idx))
		return nil

	case *ast.StringLit:
		idx, err := fg.poolString(e.Value)
		if err != nil {
			return err
		}
		fg.b.AddInstruction(binary.OpLoad, loadGlobal, dest, u16le(idx))
		return nil

	case *ast.Ident:
		if r, ok := fg.regs[e.Name]; ok {
			if r != dest {
				fg.b.AddInstruction(binary.OpLoad, loadRegister, dest, []uint8{r})
			}
			return nil
		}
		if idx, ok := fg.globalIdx[e.Name]; ok {
			fg.b.AddInstruction(binary.OpLoad, loadGlobal, dest, u16le(idx))
			return nil
		}
		if idx, ok := fg.constIdx[e.Name]; ok {
			fg.b.AddInstruction(binary.OpLoad, loadConstant, dest, u16le(idx))
			return nil
		}
		return fmt.Errorf("codegen: identifier %q resolved by the checker but not bound by codegen", e.Name)

	case *ast.FieldAccess:
		base, err := fg.exprReg(e.X)
		if err != nil {
			return err
		}
		idx, err := fg.fieldIndex(e)
		if err != nil {
			return err
		}
		fg.b.AddInstruction(binary.OpLea, 0, dest, []uint8{base, uint8(idx)})
		return nil

	case *ast.IndexExpr:
		base, err := fg.exprReg(e.X)
		if err != nil {
			return err
		}
		index, err := fg.exprReg(e.Index)
		if err != nil {
			return err
		}
		fg.b.AddInstruction(binary.OpLea, 0, dest, []uint8{base, index})
		return nil

	case *ast.CallExpr:
		return fg.genCall(dest, e)

	default:
		return fmt.Errorf("codegen: unhandled expression %T", e)
	}
}

// genCall emits a CALL whose operands are the callee's function-section
// index (2 bytes), the argument count, then one register per argument.
func (fg *funcGen) genCall(dest uint8, e *ast.CallExpr) error {
	idx, ok := fg.funcIdx[e.Fun]
	if !ok {
		return fmt.Errorf("codegen: call to unregistered function %q", e.Fun)
	}
	operands := append([]uint8{}, u16le(idx)...)
	operands = append(operands, uint8(len(e.Args)))
	for _, a := range e.Args {
		r, err := fg.exprReg(a)
		if err != nil {
			return err
		}
		operands = append(operands, r)
	}
	fg.b.AddInstruction(binary.OpCall, 0, dest, operands)
	return nil
}

// fieldIndex resolves a FieldAccess to its declaration-order field index,
// using the struct type the checker already resolved for e.X.
func (fg *funcGen) fieldIndex(e *ast.FieldAccess) (int, error) {
	xt := fg.res.ExprTypes[e.X]
	if xt == nil || xt.Kind != types.Struct {
		return 0, fmt.Errorf("codegen: field access on non-struct expression")
	}
	for i, f := range xt.Fields {
		if f.Name == e.Field {
			return i, nil
		}
	}
	return 0, fmt.Errorf("codegen: struct %q has no field %q", xt.Name, e.Field)
}

// poolFloat and poolString intern literal payloads as anonymous entries in
// the Global section (one literal pool shared by every function of the
// module), deduplicated by
// encoded bytes, per SPEC_FULL.md §4 item 5's resolution of spec §9.5:
// LOAD has no natural operand carrier for a float or string literal, so the
// literal is promoted to a named-less global and referenced by index.
func (fg *funcGen) poolFloat(v float64) (int32, error) {
	b := encodeFloat(v, types.F64Type)
	return fg.internGlobal("f64", string(b), binary.PredefinedFloat64, b)
}

func (fg *funcGen) poolString(v string) (int32, error) {
	typ, err := fg.astTypeIndex(&ast.PtrType{Elem: &ast.NamedType{Name: "u8"}})
	if err != nil {
		return 0, err
	}
	return fg.internGlobal("str", v, typ, []byte(v))
}

func (fg *funcGen) internGlobal(kind, key string, typ int32, value []byte) (int32, error) {
	mapKey := kind + ":" + key
	if idx, ok := fg.litPool[mapKey]; ok {
		return idx, nil
	}
	idx := fg.b.AddGlobal("", typ, value)
	if fg.litPool == nil {
		fg.litPool = make(map[string]int32)
	}
	fg.litPool[mapKey] = idx
	return idx, nil
}

// compactOpcode maps a HOIL instruction mnemonic token to its compact (8-bit)
// opcode (spec.md §6).
func compactOpcode(op token.Token) (uint8, error) {
	switch op {
	case token.ADD:
		return binary.OpAdd, nil
	case token.SUB:
		return binary.OpSub, nil
	case token.MUL:
		return binary.OpMul, nil
	case token.DIV:
		return binary.OpDiv, nil
	case token.REM:
		return binary.OpRem, nil
	case token.NEG:
		return binary.OpNeg, nil
	case token.AND:
		return binary.OpAnd, nil
	case token.OR:
		return binary.OpOr, nil
	case token.XOR:
		return binary.OpXor, nil
	case token.NOT:
		return binary.OpNot, nil
	case token.SHL:
		return binary.OpShl, nil
	case token.SHR:
		return binary.OpShr, nil
	case token.CMP_EQ:
		return binary.OpCmpEq, nil
	case token.CMP_NE:
		return binary.OpCmpNe, nil
	case token.CMP_LT:
		return binary.OpCmpLt, nil
	case token.CMP_LE:
		return binary.OpCmpLe, nil
	case token.CMP_GT:
		return binary.OpCmpGt, nil
	case token.CMP_GE:
		return binary.OpCmpGe, nil
	case token.LOAD:
		return binary.OpLoad, nil
	case token.STORE:
		return binary.OpStore, nil
	case token.LEA:
		return binary.OpLea, nil
	case token.CALL:
		return binary.OpCall, nil
	default:
		return 0, fmt.Errorf("codegen: unsupported instruction mnemonic %s", op)
	}
}

func u16le(v int32) []byte {
	var buf [2]byte
	encbinary.LittleEndian.PutUint16(buf[:], uint16(v))
	return buf[:]
}
