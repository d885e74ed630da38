// Package types implements HOIL's structural type system: the tagged-union
// type representation produced by the checker from ast.Type nodes, and the
// structural compatibility relation the checker uses to validate
// assignments, instruction operands and call arguments.
package types

import "fmt"

// Kind discriminates the variants of Type.
type Kind int

const (
	Void Kind = iota
	Bool
	Int
	Float
	Ptr
	Vec
	Array
	Struct
	Function
)

// MemorySpace tags where a Ptr's referent lives. HOIL has a single flat
// address space at runtime (see coil/vm), but the distinction is retained at
// the type level for diagnostics and matches the predefined-type table's
// qualifier bits.
type MemorySpace int

const (
	SpaceDefault MemorySpace = iota
	SpaceGlobal
	SpaceStack
)

// Type is a structural HOIL type. Exactly one of the Kind-specific fields is
// meaningful for a given Kind.
type Type struct {
	Kind Kind

	// Int, Float
	Bits   int
	Signed bool // Int only

	// Ptr
	Elem  *Type
	Space MemorySpace

	// Vec, Array
	Size int64

	// Struct
	Name   string // declared name, used for nominal identity
	Fields []StructField

	// Function
	Params   []*Type
	Ret      *Type
	Variadic bool
}

// StructField is one field of a Struct type.
type StructField struct {
	Name string
	Type *Type
}

func (t *Type) String() string {
	if t == nil {
		return "<nil type>"
	}
	switch t.Kind {
	case Void:
		return "void"
	case Bool:
		return "bool"
	case Int:
		sign := "i"
		if !t.Signed {
			sign = "u"
		}
		return fmt.Sprintf("%s%d", sign, t.Bits)
	case Float:
		return fmt.Sprintf("f%d", t.Bits)
	case Ptr:
		return fmt.Sprintf("ptr<%s>", t.Elem)
	case Vec:
		return fmt.Sprintf("vec<%s, %d>", t.Elem, t.Size)
	case Array:
		return fmt.Sprintf("array<%s, %d>", t.Elem, t.Size)
	case Struct:
		return t.Name
	case Function:
		return "function"
	default:
		return "<invalid type>"
	}
}

// Predefined scalar types, interned so pointer equality works for the common
// cases (the checker still falls back to Compatible for anything structural).
var (
	VoidType  = &Type{Kind: Void}
	BoolType  = &Type{Kind: Bool}
	I8Type    = &Type{Kind: Int, Bits: 8, Signed: true}
	I16Type   = &Type{Kind: Int, Bits: 16, Signed: true}
	I32Type   = &Type{Kind: Int, Bits: 32, Signed: true}
	I64Type   = &Type{Kind: Int, Bits: 64, Signed: true}
	U8Type    = &Type{Kind: Int, Bits: 8, Signed: false}
	U16Type   = &Type{Kind: Int, Bits: 16, Signed: false}
	U32Type   = &Type{Kind: Int, Bits: 32, Signed: false}
	U64Type   = &Type{Kind: Int, Bits: 64, Signed: false}
	F16Type   = &Type{Kind: Float, Bits: 16}
	F32Type   = &Type{Kind: Float, Bits: 32}
	F64Type   = &Type{Kind: Float, Bits: 64}
)

// Named looks up a builtin scalar type by its HOIL spelling ("void", "i32",
// "f64", ...). It returns nil if name is not a builtin scalar name (it may
// still be a user-declared struct type, which the checker resolves via its
// type table instead).
func Named(name string) *Type {
	switch name {
	case "void":
		return VoidType
	case "bool":
		return BoolType
	case "i8":
		return I8Type
	case "i16":
		return I16Type
	case "i32":
		return I32Type
	case "i64":
		return I64Type
	case "u8":
		return U8Type
	case "u16":
		return U16Type
	case "u32":
		return U32Type
	case "u64":
		return U64Type
	case "f16":
		return F16Type
	case "f32":
		return F32Type
	case "f64":
		return F64Type
	default:
		return nil
	}
}

// Compatible reports whether a and b satisfy HOIL's structural compatibility
// relation (~): the same-width-regardless-of-signedness rule for integers,
// same-width for floats, integer/float coercion, recursive pointer/vec/array
// comparison, nominal identity for structs, and pairwise-compatible
// parameters/return for functions.
func Compatible(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		// Int~Float coercion is the only cross-Kind compatibility rule.
		if (a.Kind == Int && b.Kind == Float) || (a.Kind == Float && b.Kind == Int) {
			return true
		}
		return false
	}

	switch a.Kind {
	case Void, Bool:
		return true
	case Int:
		return a.Bits == b.Bits
	case Float:
		return a.Bits == b.Bits
	case Ptr:
		return Compatible(a.Elem, b.Elem)
	case Vec:
		return a.Size == b.Size && Compatible(a.Elem, b.Elem)
	case Array:
		return a.Size == b.Size && Compatible(a.Elem, b.Elem)
	case Struct:
		// nominal: struct types are identified by declaration, mirrored here
		// by name since this toolchain has no cross-module struct aliasing.
		return a.Name == b.Name
	case Function:
		if len(a.Params) != len(b.Params) || a.Variadic != b.Variadic {
			return false
		}
		for i := range a.Params {
			if !Compatible(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return Compatible(a.Ret, b.Ret)
	default:
		return false
	}
}

// AssignableNullTo reports whether a null literal may be assigned to a value
// of type t: any Ptr type accepts it.
func AssignableNullTo(t *Type) bool {
	return t != nil && t.Kind == Ptr
}

// IsNumeric reports whether t is an Int or Float type.
func (t *Type) IsNumeric() bool {
	return t != nil && (t.Kind == Int || t.Kind == Float)
}
