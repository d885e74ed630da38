package binary

import "sort"

// Write serializes m into the COIL on-disk format: a header, a section
// table of SectionCount entries, then the sections themselves in
// declaration order, each padded to a 4-byte boundary.
func Write(m *Module) []byte {
	sections := make([][]byte, SectionCount)
	sections[SectionTypeDef] = writeTypeSection(m)
	sections[SectionFunction] = writeFunctionSection(m)
	sections[SectionGlobal] = writeGlobalSection(m)
	sections[SectionConstant] = writeConstantSection(m)
	sections[SectionCode] = writeCodeSection(m)
	sections[SectionRelocation] = writeRelocationSection(m)
	sections[SectionMetadata] = writeMetadataSection(m)

	headerSize := 16
	tableSize := int(SectionCount) * 12
	offset := uint32(headerSize + tableSize)

	offsets := make([]uint32, SectionCount)
	for i, s := range sections {
		offsets[i] = offset
		offset += uint32(len(s))
	}

	var out byteWriter
	out.u32(Magic)
	out.u32(Version)
	out.u32(uint32(SectionCount))
	out.u32(0) // flags

	for i, s := range sections {
		out.u32(uint32(i))
		out.u32(offsets[i])
		out.u32(uint32(len(s)))
	}
	for _, s := range sections {
		out.buf = append(out.buf, s...)
	}
	return out.buf
}

func writeTypeSection(m *Module) []byte {
	var w byteWriter
	w.u32(uint32(len(m.Types)))
	for _, t := range m.Types {
		w.u32(uint32(t.Encoding))
		w.str(t.Name)
		w.i32Slice(t.FieldTypes)
	}
	w.pad4()
	return w.buf
}

func writeFunctionSection(m *Module) []byte {
	var w byteWriter
	w.u32(uint32(len(m.Functions)))
	for _, f := range m.Functions {
		w.str(f.Name)
		w.i32(f.ReturnType)
		w.i32Slice(f.ParamTypes)
		if f.IsExternal {
			w.u8(1)
		} else {
			w.u8(0)
		}
		w.u32(uint32(len(f.Blocks)))
		for _, bl := range f.Blocks {
			w.str(bl.Name)
			w.u32(bl.Offset)
			w.u32(bl.InstrSize)
		}
	}
	w.pad4()
	return w.buf
}

func writeGlobalSection(m *Module) []byte {
	var w byteWriter
	w.u32(uint32(len(m.Globals)))
	for _, g := range m.Globals {
		w.str(g.Name)
		w.i32(g.Type)
		w.bytes(g.Init)
	}
	w.pad4()
	return w.buf
}

func writeConstantSection(m *Module) []byte {
	var w byteWriter
	w.u32(uint32(len(m.Constants)))
	for _, c := range m.Constants {
		w.str(c.Name)
		w.i32(c.Type)
		w.bytes(c.Value)
	}
	w.pad4()
	return w.buf
}

func writeCodeSection(m *Module) []byte {
	var w byteWriter
	w.bytes(m.Code)
	w.pad4()
	return w.buf
}

func writeRelocationSection(m *Module) []byte {
	var w byteWriter
	w.u32(uint32(len(m.Relocations)))
	for _, r := range m.Relocations {
		w.u32(r.Offset)
		w.u8(uint8(r.Kind))
		w.str(r.Target)
	}
	w.pad4()
	return w.buf
}

func writeMetadataSection(m *Module) []byte {
	var w byteWriter
	w.u32(uint32(len(m.Metadata)))
	keys := make([]string, 0, len(m.Metadata))
	for k := range m.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.str(k)
		w.str(m.Metadata[k])
	}
	w.pad4()
	return w.buf
}
