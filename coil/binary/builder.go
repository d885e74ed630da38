package binary

import "errors"

var errShortInstruction = errors.New("binary: truncated instruction record")

// Builder assembles a Module section by section. The zero value is not
// ready to use; call NewBuilder.
type Builder struct {
	mod *Module

	curFunc  int // index into mod.Functions of the function currently being built, -1 if none
	curBlock int // index into mod.Functions[curFunc].Blocks of the open block, -1 if none
}

// NewBuilder creates a Builder with the PredefinedCount predefined types
// already populated at the start of the Type section.
func NewBuilder() *Builder {
	b := &Builder{
		mod:      &Module{Metadata: map[string]string{}},
		curFunc:  -1,
		curBlock: -1,
	}
	for i, enc := range PredefinedEncodings {
		b.mod.Types = append(b.mod.Types, TypeDef{Encoding: enc, Name: predefinedName(i)})
	}
	return b
}

func predefinedName(i int) string {
	names := [...]string{"void", "bool", "i8", "u8", "i16", "u16", "i32", "u32", "i64", "u64", "f16", "f32", "f64", "ptr"}
	if i < len(names) {
		return names[i]
	}
	return ""
}

// SetModuleName sets the module's name.
func (b *Builder) SetModuleName(name string) { b.mod.Name = name }

// AddType registers a scalar type encoding and returns its type index.
func (b *Builder) AddType(encoding TypeEncoding, name string) int32 {
	idx := int32(len(b.mod.Types))
	b.mod.Types = append(b.mod.Types, TypeDef{Encoding: encoding, Name: name})
	return idx
}

// AddStructType registers a structure type made of the given field type
// indices and returns its type index.
func (b *Builder) AddStructType(fieldTypes []int32, name string) int32 {
	idx := int32(len(b.mod.Types))
	b.mod.Types = append(b.mod.Types, TypeDef{
		Encoding:   EncodeType(CategoryStruct, 0, 0, 0),
		Name:       name,
		FieldTypes: append([]int32(nil), fieldTypes...),
	})
	return idx
}

// AddFunction registers a function (external or with a body to be filled in
// by BeginFunctionCode/EndFunctionCode) and returns its function index.
func (b *Builder) AddFunction(name string, returnType int32, paramTypes []int32, isExternal bool) int32 {
	idx := int32(len(b.mod.Functions))
	b.mod.Functions = append(b.mod.Functions, FunctionDef{
		Name:       name,
		ReturnType: returnType,
		ParamTypes: append([]int32(nil), paramTypes...),
		IsExternal: isExternal,
	})
	return idx
}

// AddGlobal registers a global variable and returns its global index.
func (b *Builder) AddGlobal(name string, typ int32, init []byte) int32 {
	idx := int32(len(b.mod.Globals))
	b.mod.Globals = append(b.mod.Globals, GlobalDef{Name: name, Type: typ, Init: init})
	return idx
}

// AddConstant registers a module-level constant and returns its constant
// index.
func (b *Builder) AddConstant(name string, typ int32, value []byte) int32 {
	idx := int32(len(b.mod.Constants))
	b.mod.Constants = append(b.mod.Constants, ConstantDef{Name: name, Type: typ, Value: value})
	return idx
}

// AddRelocation records a reference to a function or global by name at the
// current position in the Code section.
func (b *Builder) AddRelocation(kind RelocationKind, target string) {
	b.mod.Relocations = append(b.mod.Relocations, Relocation{
		Offset: uint32(len(b.mod.Code)),
		Kind:   kind,
		Target: target,
	})
}

// BeginFunctionCode opens function for code emission. It must not already
// have an open function or block.
func (b *Builder) BeginFunctionCode(function int32) bool {
	if b.curFunc != -1 || int(function) >= len(b.mod.Functions) {
		return false
	}
	b.curFunc = int(function)
	return true
}

// AddBlock closes the currently open block, if any, and starts a new named
// basic block in the function opened by BeginFunctionCode. It returns the
// new block's index, or -1 if no function is open.
func (b *Builder) AddBlock(name string) int32 {
	if b.curFunc == -1 {
		return -1
	}
	b.endBlock()
	fn := &b.mod.Functions[b.curFunc]
	idx := int32(len(fn.Blocks))
	fn.Blocks = append(fn.Blocks, BlockInfo{Name: name, Offset: uint32(len(b.mod.Code))})
	b.curBlock = int(idx)
	return idx
}

// AddInstruction appends an instruction to the currently open block.
func (b *Builder) AddInstruction(opcode, flags, destination uint8, operands []uint8) bool {
	if b.curFunc == -1 || b.curBlock == -1 {
		return false
	}
	instr := Instruction{Opcode: opcode, Flags: flags, Dest: destination, Operands: operands}
	b.mod.Code = instr.Encode(b.mod.Code)

	fn := &b.mod.Functions[b.curFunc]
	fn.Blocks[b.curBlock].InstrSize = uint32(len(b.mod.Code)) - fn.Blocks[b.curBlock].Offset
	return true
}

// endBlock closes the currently open block, if any.
func (b *Builder) endBlock() {
	b.curBlock = -1
}

// EndFunctionCode closes the function opened by BeginFunctionCode.
func (b *Builder) EndFunctionCode() bool {
	if b.curFunc == -1 {
		return false
	}
	b.endBlock()
	b.curFunc = -1
	return true
}

// SetMetadata records a metadata key/value pair (e.g. "target", "source").
func (b *Builder) SetMetadata(key, value string) { b.mod.Metadata[key] = value }

// Build finalizes and returns the assembled Module. The Builder must not
// have an open function (EndFunctionCode must have been called for every
// BeginFunctionCode).
func (b *Builder) Build() (*Module, error) {
	if b.curFunc != -1 {
		return nil, errors.New("binary: function code left open, missing EndFunctionCode")
	}
	return b.mod, nil
}
