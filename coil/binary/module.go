package binary

// TypeDef is one entry of the Type section. FieldTypes is non-empty only
// for a structure type, holding the field types' indices into the module's
// Types slice (which is always prefixed by the PredefinedCount predefined
// types, so index 0 is always PredefinedVoid).
type TypeDef struct {
	Encoding   TypeEncoding
	Name       string
	FieldTypes []int32
}

// BlockInfo records one basic block's place in the Code section, used by
// Disassemble and by a branch instruction's destination byte (the block's
// declaration-order index within Blocks, per this module's choice to encode
// branch targets as a literal index rather than a resolved offset).
type BlockInfo struct {
	Name      string
	Offset    uint32 // byte offset within Code where this block's instructions start
	InstrSize uint32 // size in bytes of this block's instructions
}

// FunctionDef is one entry of the Function section.
type FunctionDef struct {
	Name       string
	ReturnType int32
	ParamTypes []int32
	IsExternal bool
	Blocks     []BlockInfo // empty for an external (body-less) function
}

// GlobalDef is one entry of the Global section.
type GlobalDef struct {
	Name string
	Type int32
	Init []byte // may be empty for a zero-initialized global
}

// ConstantDef is one entry of the Constant section.
type ConstantDef struct {
	Name  string
	Type  int32
	Value []byte
}

// RelocationKind identifies what a Relocation patches.
type RelocationKind uint8

const (
	RelocFunction RelocationKind = iota
	RelocGlobal
)

// Relocation records a reference, by name, to a Function or Global that
// must be resolved when the module is loaded (e.g. a CALL to an extern
// function).
type Relocation struct {
	Offset uint32 // byte offset within Code
	Kind   RelocationKind
	Target string
}

// Module is a fully assembled (or fully parsed) COIL module.
type Module struct {
	Name        string
	Types       []TypeDef
	Functions   []FunctionDef
	Globals     []GlobalDef
	Constants   []ConstantDef
	Code        []byte
	Relocations []Relocation
	Metadata    map[string]string
}

// Instruction is one compact-format instruction record:
// opcode(1) flags(1) operand_count(1) destination(1) operands(operand_count).
type Instruction struct {
	Opcode   uint8
	Flags    uint8
	Dest     uint8 // NoDestination if the instruction writes nothing
	Operands []uint8
}

// Size returns the encoded byte length of the instruction.
func (i Instruction) Size() int { return 4 + len(i.Operands) }

// Encode appends the instruction's byte encoding to buf.
func (i Instruction) Encode(buf []byte) []byte {
	buf = append(buf, i.Opcode, i.Flags, uint8(len(i.Operands)), i.Dest)
	return append(buf, i.Operands...)
}

// DecodeInstruction reads one instruction from buf at offset off.
func DecodeInstruction(buf []byte, off int) (Instruction, int, error) {
	if off+4 > len(buf) {
		return Instruction{}, 0, errShortInstruction
	}
	i := Instruction{Opcode: buf[off], Flags: buf[off+1], Dest: buf[off+3]}
	n := int(buf[off+2])
	end := off + 4 + n
	if end > len(buf) {
		return Instruction{}, 0, errShortInstruction
	}
	if n > 0 {
		i.Operands = append([]uint8(nil), buf[off+4:end]...)
	}
	return i, end - off, nil
}
