// Package codegen lowers a checked ast.Module into a coil/binary.Module: it
// walks every declaration and, for each function, every basic block's
// statements in order, emitting the compact-format instructions of each
// statement (the statement's own instruction plus any needed to materialize
// its operands) and allocating a fresh virtual register for every computed
// value.
package codegen

import (
	"fmt"

	"github.com/hoil-lang/hoil/coil/binary"
	"github.com/hoil-lang/hoil/lang/ast"
	"github.com/hoil-lang/hoil/lang/checker"
	"github.com/hoil-lang/hoil/lang/token"
	"github.com/hoil-lang/hoil/lang/types"
)

// Generate lowers mod, using the bindings and resolved types from res, into
// a coil/binary.Module ready for binary.Write.
func Generate(mod *ast.Module, res *checker.Result) (*binary.Module, error) {
	g := &generator{
		b:         binary.NewBuilder(),
		res:       res,
		typeIdx:   make(map[string]int32),
		funcIdx:   make(map[string]int32),
		globalIdx: make(map[string]int32),
		constIdx:  make(map[string]int32),
	}
	g.b.SetModuleName(mod.Name)
	if mod.Target != "" {
		g.b.SetMetadata("target", mod.Target)
	}

	// Pass 1: struct types, so any field or signature referencing them later
	// resolves to an already-registered type index.
	for _, d := range mod.Decls {
		if td, ok := d.(*ast.TypeDecl); ok {
			if _, err := g.structTypeIndex(td.Name); err != nil {
				return nil, err
			}
		}
	}

	// Pass 2: constants and globals.
	for _, d := range mod.Decls {
		switch d := d.(type) {
		case *ast.ConstantDecl:
			if err := g.genConstant(d); err != nil {
				return nil, err
			}
		case *ast.GlobalDecl:
			if err := g.genGlobal(d); err != nil {
				return nil, err
			}
		}
	}

	// Pass 3: every function's signature, before any body is emitted, so
	// forward and mutually recursive calls resolve.
	for _, d := range mod.Decls {
		switch d := d.(type) {
		case *ast.ExternFunctionDecl:
			ret, err := g.typeIndexOf(entryType(res, d.Name).Ret)
			if err != nil {
				return nil, err
			}
			params, err := g.paramTypeIndices(d.Params)
			if err != nil {
				return nil, err
			}
			idx := g.b.AddFunction(d.Name, ret, params, true)
			g.funcIdx[d.Name] = idx
		case *ast.FunctionDecl:
			ret, err := g.typeIndexOf(entryType(res, d.Name).Ret)
			if err != nil {
				return nil, err
			}
			params, err := g.paramTypeIndices(d.Params)
			if err != nil {
				return nil, err
			}
			idx := g.b.AddFunction(d.Name, ret, params, false)
			g.funcIdx[d.Name] = idx
		}
	}

	// Pass 4: function bodies.
	for _, d := range mod.Decls {
		if fn, ok := d.(*ast.FunctionDecl); ok {
			if err := g.genFunction(fn); err != nil {
				return nil, err
			}
		}
	}

	return g.b.Build()
}

type generator struct {
	b   *binary.Builder
	res *checker.Result

	typeIdx   map[string]int32 // types.Type.String() -> builder type index
	funcIdx   map[string]int32 // function/extern name -> builder function index
	globalIdx map[string]int32
	constIdx  map[string]int32
	litPool   map[string]int32 // interned literal constants, see funcs.go
}

// entryType returns the function-or-extern-function symbol's *types.Type
// (Kind == Function), registered by the checker under the module scope.
func entryType(res *checker.Result, name string) *types.Type {
	e, ok := res.Module.LookupLocal(name)
	if !ok {
		panic(fmt.Sprintf("codegen: function %q missing from checked module scope", name))
	}
	return e.Type
}

func (g *generator) paramTypeIndices(params []ast.Field) ([]int32, error) {
	out := make([]int32, len(params))
	for i, p := range params {
		t, err := g.astTypeIndex(p.Type)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// astTypeIndex resolves an ast.Type the same way the checker would, via the
// struct table already populated by Generate's first pass.
func (g *generator) astTypeIndex(t ast.Type) (int32, error) {
	switch t := t.(type) {
	case *ast.NamedType:
		if bt := types.Named(t.Name); bt != nil {
			return g.typeIndexOf(bt)
		}
		return g.structTypeIndex(t.Name)
	case *ast.PtrType:
		return binary.PredefinedPtr, nil
	case *ast.VecType:
		elem, err := g.astTypeIndex(t.Elem)
		if err != nil {
			return 0, err
		}
		return g.compositeTypeIndex(binary.CategoryVector, elem, t.Size)
	case *ast.ArrayType:
		elem, err := g.astTypeIndex(t.Elem)
		if err != nil {
			return 0, err
		}
		return g.compositeTypeIndex(binary.CategoryArray, elem, t.Size)
	default:
		return 0, fmt.Errorf("codegen: unhandled ast.Type %T", t)
	}
}

// typeIndexOf resolves an already-structurally-checked *types.Type to a
// builder type index, for the cases where codegen has a *types.Type in hand
// (e.g. a function's resolved return type) rather than the ast.Type syntax.
func (g *generator) typeIndexOf(t *types.Type) (int32, error) {
	if t == nil {
		return binary.PredefinedVoid, nil
	}
	switch t.Kind {
	case types.Void:
		return binary.PredefinedVoid, nil
	case types.Bool:
		return binary.PredefinedBool, nil
	case types.Int:
		return predefinedInt(t.Bits, t.Signed)
	case types.Float:
		return predefinedFloat(t.Bits)
	case types.Ptr:
		return binary.PredefinedPtr, nil
	case types.Struct:
		return g.structTypeIndex(t.Name)
	case types.Vec, types.Array:
		elem, err := g.typeIndexOf(t.Elem)
		if err != nil {
			return 0, err
		}
		cat := binary.CategoryVector
		if t.Kind == types.Array {
			cat = binary.CategoryArray
		}
		return g.compositeTypeIndex(cat, elem, t.Size)
	default:
		return 0, fmt.Errorf("codegen: unhandled type kind for %s", t)
	}
}

func predefinedInt(bits int, signed bool) (int32, error) {
	switch {
	case bits == 8 && signed:
		return binary.PredefinedInt8, nil
	case bits == 8 && !signed:
		return binary.PredefinedUint8, nil
	case bits == 16 && signed:
		return binary.PredefinedInt16, nil
	case bits == 16 && !signed:
		return binary.PredefinedUint16, nil
	case bits == 32 && signed:
		return binary.PredefinedInt32, nil
	case bits == 32 && !signed:
		return binary.PredefinedUint32, nil
	case bits == 64 && signed:
		return binary.PredefinedInt64, nil
	case bits == 64 && !signed:
		return binary.PredefinedUint64, nil
	default:
		return 0, fmt.Errorf("codegen: unsupported integer width %d", bits)
	}
}

func predefinedFloat(bits int) (int32, error) {
	switch bits {
	case 16:
		return binary.PredefinedFloat16, nil
	case 32:
		return binary.PredefinedFloat32, nil
	case 64:
		return binary.PredefinedFloat64, nil
	default:
		return 0, fmt.Errorf("codegen: unsupported float width %d", bits)
	}
}

// structTypeIndex registers (on first reference) or looks up the builder
// type index for the struct declared under name.
func (g *generator) structTypeIndex(name string) (int32, error) {
	if idx, ok := g.typeIdx["struct:"+name]; ok {
		return idx, nil
	}
	st, ok := g.res.StructTypes[name]
	if !ok {
		return 0, fmt.Errorf("codegen: unknown struct type %q", name)
	}
	fields := make([]int32, len(st.Fields))
	for i, f := range st.Fields {
		idx, err := g.typeIndexOf(f.Type)
		if err != nil {
			return 0, err
		}
		fields[i] = idx
	}
	idx := g.b.AddStructType(fields, name)
	g.typeIdx["struct:"+name] = idx
	return idx, nil
}

// compositeTypeIndex registers (on first reference) a Vec or Array type as
// an anonymous one-field structure whose field is the element type (a
// one-field "structure" is the compact format's only way to associate a
// type index with another). The category and the declared element count
// only key the cache: neither is written into the type's encoding, so the
// emitted entry is the same for a vec and an array of the same element
// type, whatever their sizes.
func (g *generator) compositeTypeIndex(cat binary.TypeCategory, elem int32, size int64) (int32, error) {
	key := fmt.Sprintf("composite:%d:%d:%d", cat, elem, size)
	if idx, ok := g.typeIdx[key]; ok {
		return idx, nil
	}
	idx := g.b.AddStructType([]int32{elem}, "")
	g.typeIdx[key] = idx
	return idx, nil
}
