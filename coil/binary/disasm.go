package binary

import (
	"fmt"
	"strings"
)

// typeName returns a human-readable name for the type at index idx, falling
// back to a numeric placeholder when idx is out of range.
func (m *Module) typeName(idx int32) string {
	if idx >= 0 && int(idx) < len(m.Types) {
		if n := m.Types[idx].Name; n != "" {
			return n
		}
	}
	return fmt.Sprintf("type(%d)", idx)
}

// Disassemble renders m as human-readable text: one section per line group,
// functions broken into their basic blocks with one instruction per line.
// It is the format cmd/coil_dump prints.
func Disassemble(m *Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %q\n", m.Name)

	if len(m.Types) > PredefinedCount {
		fmt.Fprintf(&b, "\ntypes:\n")
		for i := PredefinedCount; i < len(m.Types); i++ {
			t := m.Types[i]
			if len(t.FieldTypes) > 0 {
				fields := make([]string, len(t.FieldTypes))
				for j, ft := range t.FieldTypes {
					fields[j] = m.typeName(ft)
				}
				fmt.Fprintf(&b, "  %d: struct %s { %s }\n", i, t.Name, strings.Join(fields, ", "))
			} else {
				fmt.Fprintf(&b, "  %d: %s\n", i, t.Name)
			}
		}
	}

	if len(m.Globals) > 0 {
		fmt.Fprintf(&b, "\nglobals:\n")
		for _, g := range m.Globals {
			fmt.Fprintf(&b, "  %s: %s (%d init bytes)\n", g.Name, m.typeName(g.Type), len(g.Init))
		}
	}

	if len(m.Constants) > 0 {
		fmt.Fprintf(&b, "\nconstants:\n")
		for _, c := range m.Constants {
			fmt.Fprintf(&b, "  %s: %s (%d bytes)\n", c.Name, m.typeName(c.Type), len(c.Value))
		}
	}

	if len(m.Functions) > 0 {
		fmt.Fprintf(&b, "\nfunctions:\n")
		for _, fn := range m.Functions {
			params := make([]string, len(fn.ParamTypes))
			for i, p := range fn.ParamTypes {
				params[i] = m.typeName(p)
			}
			if fn.IsExternal {
				fmt.Fprintf(&b, "  extern %s(%s) %s\n", fn.Name, strings.Join(params, ", "), m.typeName(fn.ReturnType))
				continue
			}
			fmt.Fprintf(&b, "  %s(%s) %s\n", fn.Name, strings.Join(params, ", "), m.typeName(fn.ReturnType))
			for bi, bl := range fn.Blocks {
				fmt.Fprintf(&b, "  %s: // block %d\n", bl.Name, bi)
				off := int(bl.Offset)
				end := off + int(bl.InstrSize)
				for off < end {
					instr, n, err := DecodeInstruction(m.Code, off)
					if err != nil {
						fmt.Fprintf(&b, "    <%s>\n", err)
						break
					}
					fmt.Fprintf(&b, "    %s\n", disassembleInstruction(instr))
					off += n
				}
			}
		}
	}

	if len(m.Metadata) > 0 {
		fmt.Fprintf(&b, "\nmetadata:\n")
		for k, v := range m.Metadata {
			fmt.Fprintf(&b, "  %s = %q\n", k, v)
		}
	}
	return b.String()
}

func disassembleInstruction(i Instruction) string {
	var b strings.Builder
	b.WriteString(OpName(i.Opcode))
	if i.Dest != NoDestination {
		fmt.Fprintf(&b, " r%d,", i.Dest)
	}
	for j, op := range i.Operands {
		if j > 0 || i.Dest != NoDestination {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "r%d", op)
		if j < len(i.Operands)-1 {
			b.WriteByte(',')
		}
	}
	return b.String()
}
