// Package symtable implements the scoped symbol table the checker uses to
// bind identifiers to their declaring node. Scopes chain to a parent so that
// a module-level scope (types, constants, globals, extern/regular
// functions) is visible from every function's local scope, and a function's
// local scope holds its parameters and the destinations introduced by its
// blocks' AssignStmt/InstrStmt statements.
package symtable

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/hoil-lang/hoil/lang/ast"
	"github.com/hoil-lang/hoil/lang/types"
)

// Kind discriminates what a symbol names.
type Kind int

const (
	TypeSym Kind = iota
	ConstantSym
	GlobalSym
	FunctionSym
	ExternFunctionSym
	ParamSym
	LocalSym
)

func (k Kind) String() string {
	switch k {
	case TypeSym:
		return "type"
	case ConstantSym:
		return "constant"
	case GlobalSym:
		return "global"
	case FunctionSym:
		return "function"
	case ExternFunctionSym:
		return "extern function"
	case ParamSym:
		return "parameter"
	case LocalSym:
		return "local"
	default:
		return "symbol"
	}
}

// Entry is a single symbol table binding.
type Entry struct {
	Name     string
	Kind     Kind
	Node     ast.Node // the declaring AST node
	Type     *types.Type
	Defined  bool // false for a local referenced before its defining AssignStmt is seen
}

// Scope is one level of a symbol table scope chain. The module scope has a
// nil Parent; every function scope's Parent is the module scope.
type Scope struct {
	Parent *Scope
	names  *swiss.Map[string, *Entry]
}

// NewScope creates a new scope chained to parent (nil for the module scope).
func NewScope(parent *Scope) *Scope {
	return &Scope{Parent: parent, names: swiss.NewMap[string, *Entry](8)}
}

// Insert adds name to this scope only (never walking to Parent). It returns
// an error if name is already bound in this same scope; shadowing a name
// bound in an ancestor scope is allowed.
func (s *Scope) Insert(e *Entry) error {
	if _, ok := s.names.Get(e.Name); ok {
		return fmt.Errorf("%s %q already declared in this scope", e.Kind, e.Name)
	}
	s.names.Put(e.Name, e)
	return nil
}

// Lookup searches this scope and its ancestors for name, returning the
// nearest binding.
func (s *Scope) Lookup(name string) (*Entry, bool) {
	for sc := s; sc != nil; sc = sc.Parent {
		if e, ok := sc.names.Get(name); ok {
			return e, true
		}
	}
	return nil, false
}

// LookupLocal searches only this scope, without walking to Parent.
func (s *Scope) LookupLocal(name string) (*Entry, bool) {
	return s.names.Get(name)
}

// Len returns the number of names bound directly in this scope.
func (s *Scope) Len() int { return int(s.names.Count()) }
