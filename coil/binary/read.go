package binary

import "fmt"

type sectionTableEntry struct {
	typ    uint32
	offset uint32
	size   uint32
}

// Header is a module's 16-byte file header, decoded for inspection tools
// such as cmd/coil_dump. Readers that only need the parsed Module should use
// Read instead.
type Header struct {
	Magic        uint32
	Version      uint32
	SectionCount uint32
	Flags        uint32
}

// SectionTableEntry is one 12-byte row of a module's section table, decoded
// for inspection tools such as cmd/coil_dump.
type SectionTableEntry struct {
	Type   SectionType
	Offset uint32
	Size   uint32
}

// ReadHeader decodes just the header and section table of a COIL module,
// without parsing section payloads, the way coil_dump's "print header +
// section table" contract (§6) requires.
func ReadHeader(b []byte) (Header, []SectionTableEntry, error) {
	r := &byteReader{buf: b}

	magic, err := r.u32()
	if err != nil {
		return Header{}, nil, err
	}
	version, err := r.u32()
	if err != nil {
		return Header{}, nil, err
	}
	count, err := r.u32()
	if err != nil {
		return Header{}, nil, err
	}
	flags, err := r.u32()
	if err != nil {
		return Header{}, nil, err
	}

	entries := make([]SectionTableEntry, count)
	for i := range entries {
		typ, err := r.u32()
		if err != nil {
			return Header{}, nil, err
		}
		off, err := r.u32()
		if err != nil {
			return Header{}, nil, err
		}
		size, err := r.u32()
		if err != nil {
			return Header{}, nil, err
		}
		entries[i] = SectionTableEntry{Type: SectionType(typ), Offset: off, Size: size}
	}
	return Header{Magic: magic, Version: version, SectionCount: count, Flags: flags}, entries, nil
}

// Read parses a COIL module from its on-disk byte representation.
func Read(b []byte) (*Module, error) {
	r := &byteReader{buf: b}

	magic, err := r.u32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("binary: bad magic %#08x, want %#08x", magic, Magic)
	}
	if _, err := r.u32(); err != nil { // version, currently unchecked beyond presence
		return nil, err
	}
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	if _, err := r.u32(); err != nil { // flags
		return nil, err
	}

	entries := make([]sectionTableEntry, count)
	for i := range entries {
		typ, err := r.u32()
		if err != nil {
			return nil, err
		}
		off, err := r.u32()
		if err != nil {
			return nil, err
		}
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		entries[i] = sectionTableEntry{typ: typ, offset: off, size: size}
	}

	section := func(t SectionType) ([]byte, bool) {
		for _, e := range entries {
			if SectionType(e.typ) == t {
				if int(e.offset+e.size) > len(b) {
					return nil, false
				}
				return b[e.offset : e.offset+e.size], true
			}
		}
		return nil, false
	}

	m := &Module{Metadata: map[string]string{}}

	if s, ok := section(SectionTypeDef); ok {
		if err := readTypeSection(m, s); err != nil {
			return nil, err
		}
	}
	if s, ok := section(SectionFunction); ok {
		if err := readFunctionSection(m, s); err != nil {
			return nil, err
		}
	}
	if s, ok := section(SectionGlobal); ok {
		if err := readGlobalSection(m, s); err != nil {
			return nil, err
		}
	}
	if s, ok := section(SectionConstant); ok {
		if err := readConstantSection(m, s); err != nil {
			return nil, err
		}
	}
	if s, ok := section(SectionCode); ok {
		rr := &byteReader{buf: s}
		code, err := rr.bytes()
		if err != nil {
			return nil, err
		}
		m.Code = code
	}
	if s, ok := section(SectionRelocation); ok {
		if err := readRelocationSection(m, s); err != nil {
			return nil, err
		}
	}
	if s, ok := section(SectionMetadata); ok {
		if err := readMetadataSection(m, s); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func readTypeSection(m *Module, s []byte) error {
	r := &byteReader{buf: s}
	n, err := r.u32()
	if err != nil {
		return err
	}
	m.Types = make([]TypeDef, n)
	for i := range m.Types {
		enc, err := r.u32()
		if err != nil {
			return err
		}
		name, err := r.str()
		if err != nil {
			return err
		}
		fields, err := r.i32Slice()
		if err != nil {
			return err
		}
		m.Types[i] = TypeDef{Encoding: TypeEncoding(enc), Name: name, FieldTypes: fields}
	}
	return nil
}

func readFunctionSection(m *Module, s []byte) error {
	r := &byteReader{buf: s}
	n, err := r.u32()
	if err != nil {
		return err
	}
	m.Functions = make([]FunctionDef, n)
	for i := range m.Functions {
		name, err := r.str()
		if err != nil {
			return err
		}
		ret, err := r.i32()
		if err != nil {
			return err
		}
		params, err := r.i32Slice()
		if err != nil {
			return err
		}
		ext, err := r.u8()
		if err != nil {
			return err
		}
		blockCount, err := r.u32()
		if err != nil {
			return err
		}
		blocks := make([]BlockInfo, blockCount)
		for j := range blocks {
			bname, err := r.str()
			if err != nil {
				return err
			}
			off, err := r.u32()
			if err != nil {
				return err
			}
			size, err := r.u32()
			if err != nil {
				return err
			}
			blocks[j] = BlockInfo{Name: bname, Offset: off, InstrSize: size}
		}
		m.Functions[i] = FunctionDef{Name: name, ReturnType: ret, ParamTypes: params, IsExternal: ext != 0, Blocks: blocks}
	}
	return nil
}

func readGlobalSection(m *Module, s []byte) error {
	r := &byteReader{buf: s}
	n, err := r.u32()
	if err != nil {
		return err
	}
	m.Globals = make([]GlobalDef, n)
	for i := range m.Globals {
		name, err := r.str()
		if err != nil {
			return err
		}
		typ, err := r.i32()
		if err != nil {
			return err
		}
		init, err := r.bytes()
		if err != nil {
			return err
		}
		m.Globals[i] = GlobalDef{Name: name, Type: typ, Init: append([]byte(nil), init...)}
	}
	return nil
}

func readConstantSection(m *Module, s []byte) error {
	r := &byteReader{buf: s}
	n, err := r.u32()
	if err != nil {
		return err
	}
	m.Constants = make([]ConstantDef, n)
	for i := range m.Constants {
		name, err := r.str()
		if err != nil {
			return err
		}
		typ, err := r.i32()
		if err != nil {
			return err
		}
		val, err := r.bytes()
		if err != nil {
			return err
		}
		m.Constants[i] = ConstantDef{Name: name, Type: typ, Value: append([]byte(nil), val...)}
	}
	return nil
}

func readRelocationSection(m *Module, s []byte) error {
	r := &byteReader{buf: s}
	n, err := r.u32()
	if err != nil {
		return err
	}
	m.Relocations = make([]Relocation, n)
	for i := range m.Relocations {
		off, err := r.u32()
		if err != nil {
			return err
		}
		kind, err := r.u8()
		if err != nil {
			return err
		}
		target, err := r.str()
		if err != nil {
			return err
		}
		m.Relocations[i] = Relocation{Offset: off, Kind: RelocationKind(kind), Target: target}
	}
	return nil
}

func readMetadataSection(m *Module, s []byte) error {
	r := &byteReader{buf: s}
	n, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		k, err := r.str()
		if err != nil {
			return err
		}
		v, err := r.str()
		if err != nil {
			return err
		}
		m.Metadata[k] = v
	}
	return nil
}
