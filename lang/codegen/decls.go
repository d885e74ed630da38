package codegen

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hoil-lang/hoil/lang/ast"
	"github.com/hoil-lang/hoil/lang/types"
)

func (g *generator) genConstant(d *ast.ConstantDecl) error {
	typ, err := g.astTypeIndex(d.Type)
	if err != nil {
		return err
	}
	val, err := g.encodeLiteral(d.Value, g.res.ExprTypes[d.Value])
	if err != nil {
		return err
	}
	idx := g.b.AddConstant(d.Name, typ, val)
	g.constIdx[d.Name] = idx
	return nil
}

func (g *generator) genGlobal(d *ast.GlobalDecl) error {
	typ, err := g.astTypeIndex(d.Type)
	if err != nil {
		return err
	}
	var init []byte
	if d.Value != nil {
		init, err = g.encodeLiteral(d.Value, g.res.ExprTypes[d.Value])
		if err != nil {
			return err
		}
	}
	idx := g.b.AddGlobal(d.Name, typ, init)
	g.globalIdx[d.Name] = idx
	return nil
}

// encodeLiteral renders a constant-foldable initializer expression (the
// only kind a ConstantDecl or GlobalDecl initializer may be) to its raw
// little-endian byte representation.
func (g *generator) encodeLiteral(e ast.Expr, t *types.Type) ([]byte, error) {
	switch e := e.(type) {
	case *ast.IntLit:
		return encodeInt(e.Value, t), nil
	case *ast.FloatLit:
		return encodeFloat(e.Value, t), nil
	case *ast.StringLit:
		return []byte(e.Value), nil
	default:
		return nil, fmt.Errorf("codegen: initializer must be a literal, got %T", e)
	}
}

func encodeInt(v int64, t *types.Type) []byte {
	bits := 64
	if t != nil && t.Kind == types.Int {
		bits = t.Bits
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	return buf[:bits/8]
}

func encodeFloat(v float64, t *types.Type) []byte {
	if t != nil && t.Kind == types.Float && t.Bits == 32 {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(v)))
		return buf[:]
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	return buf[:]
}

