package binary_test

import (
	"flag"
	"path/filepath"
	"testing"

	"github.com/hoil-lang/hoil/coil/binary"
	"github.com/hoil-lang/hoil/internal/filetest"
)

var testUpdateDisasmTests = flag.Bool("test.update-disasm-tests", false, "If set, replace expected disassembly test results with actual results.")

// TestDisassemble golden-tests Disassemble against a module built directly
// (not through Builder), covering the globals and functions sections of the
// listing.
func TestDisassemble(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	m := &binary.Module{
		Name: "demo",
		Globals: []binary.GlobalDef{
			{Name: "g", Type: 0, Init: []byte{1, 2, 3}},
		},
		Functions: []binary.FunctionDef{
			{Name: "f", ReturnType: 0, ParamTypes: nil, IsExternal: false},
		},
	}

	for _, fi := range filetest.SourceFiles(t, srcDir, ".txt") {
		t.Run(fi.Name(), func(t *testing.T) {
			filetest.DiffOutput(t, fi, binary.Disassemble(m), resultDir, testUpdateDisasmTests)
		})
	}
}
