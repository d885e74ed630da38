// Package ast defines the abstract syntax tree produced by the parser and
// consumed by the checker and code generator. Node shapes and the Span
// convention follow this module's other front-end packages.
package ast

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hoil-lang/hoil/lang/token"
)

// Node is implemented by every AST node.
type Node interface {
	Span() (start, end token.Pos)
	Walk(v Visitor)
}

// Module is the root node: a single HOIL source file.
type Module struct {
	Name    string
	Target  string // optional TARGET string, "" if absent
	Decls   []Decl
	StartPos, EndPos token.Pos
}

func (m *Module) Span() (token.Pos, token.Pos) { return m.StartPos, m.EndPos }
func (m *Module) Walk(v Visitor) {
	for _, d := range m.Decls {
		Walk(v, d)
	}
}

// Decl is implemented by every top-level declaration.
type Decl interface {
	Node
	declNode()
}

// TypeDecl declares a named struct type: TYPE Name { field: type, ... }
type TypeDecl struct {
	Name   string
	Fields []Field
	StartPos, EndPos token.Pos
}

func (d *TypeDecl) Span() (token.Pos, token.Pos) { return d.StartPos, d.EndPos }
func (d *TypeDecl) Walk(v Visitor) {
	for _, f := range d.Fields {
		Walk(v, f.Type)
	}
}
func (*TypeDecl) declNode() {}

// Field is a single struct field name/type pair.
type Field struct {
	Name string
	Type Type
}

// ConstantDecl declares a module-level named constant.
type ConstantDecl struct {
	Name  string
	Type  Type
	Value Expr
	StartPos, EndPos token.Pos
}

func (d *ConstantDecl) Span() (token.Pos, token.Pos) { return d.StartPos, d.EndPos }
func (d *ConstantDecl) Walk(v Visitor) {
	Walk(v, d.Type)
	Walk(v, d.Value)
}
func (*ConstantDecl) declNode() {}

// GlobalDecl declares a module-level mutable variable, with an optional
// initializer.
type GlobalDecl struct {
	Name  string
	Type  Type
	Value Expr // nil if uninitialized
	StartPos, EndPos token.Pos
}

func (d *GlobalDecl) Span() (token.Pos, token.Pos) { return d.StartPos, d.EndPos }
func (d *GlobalDecl) Walk(v Visitor) {
	Walk(v, d.Type)
	if d.Value != nil {
		Walk(v, d.Value)
	}
}
func (*GlobalDecl) declNode() {}

// ExternFunctionDecl declares a function with no body, resolved externally at
// load time.
type ExternFunctionDecl struct {
	Name    string
	Params  []Field
	Ret     Type // nil if void
	StartPos, EndPos token.Pos
}

func (d *ExternFunctionDecl) Span() (token.Pos, token.Pos) { return d.StartPos, d.EndPos }
func (d *ExternFunctionDecl) Walk(v Visitor) {
	for _, p := range d.Params {
		Walk(v, p.Type)
	}
	if d.Ret != nil {
		Walk(v, d.Ret)
	}
}
func (*ExternFunctionDecl) declNode() {}

// FunctionDecl declares a function with a body made of one or more labeled
// basic blocks. Blocks[i].Index == i always holds: BR/BR_COND statements and
// the code generator both address blocks by this declaration-order index.
type FunctionDecl struct {
	Name    string
	Params  []Field
	Ret     Type // nil if void
	IsEntry bool
	Blocks  []*BlockStmt
	StartPos, EndPos token.Pos
}

func (d *FunctionDecl) Span() (token.Pos, token.Pos) { return d.StartPos, d.EndPos }
func (d *FunctionDecl) Walk(v Visitor) {
	for _, p := range d.Params {
		Walk(v, p.Type)
	}
	if d.Ret != nil {
		Walk(v, d.Ret)
	}
	for _, b := range d.Blocks {
		Walk(v, b)
	}
}
func (*FunctionDecl) declNode() {}

// Type is implemented by every type expression.
type Type interface {
	Node
	typeNode()
}

// NamedType refers to a builtin type keyword or a user-declared TYPE name.
type NamedType struct {
	Name string // "void", "i32", "ptr", or a TypeDecl name
	Pos  token.Pos
}

func (t *NamedType) Span() (token.Pos, token.Pos) { return t.Pos, t.Pos }
func (*NamedType) Walk(Visitor)                   {}
func (*NamedType) typeNode()                      {}

// PtrType is ptr<elem>.
type PtrType struct {
	Elem     Type
	StartPos, EndPos token.Pos
}

func (t *PtrType) Span() (token.Pos, token.Pos) { return t.StartPos, t.EndPos }
func (t *PtrType) Walk(v Visitor)               { Walk(v, t.Elem) }
func (*PtrType) typeNode()                      {}

// VecType is vec<elem, size>: a fixed-size SIMD-style vector.
type VecType struct {
	Elem     Type
	Size     int64
	StartPos, EndPos token.Pos
}

func (t *VecType) Span() (token.Pos, token.Pos) { return t.StartPos, t.EndPos }
func (t *VecType) Walk(v Visitor)               { Walk(v, t.Elem) }
func (*VecType) typeNode()                      {}

// ArrayType is array<elem, size>.
type ArrayType struct {
	Elem     Type
	Size     int64
	StartPos, EndPos token.Pos
}

func (t *ArrayType) Span() (token.Pos, token.Pos) { return t.StartPos, t.EndPos }
func (t *ArrayType) Walk(v Visitor)               { Walk(v, t.Elem) }
func (*ArrayType) typeNode()                      {}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// IntLit is an integer literal.
type IntLit struct {
	Value int64
	Pos   token.Pos
}

func (e *IntLit) Span() (token.Pos, token.Pos) { return e.Pos, e.Pos }
func (*IntLit) Walk(Visitor)                   {}
func (*IntLit) exprNode()                      {}

// FloatLit is a float literal.
type FloatLit struct {
	Value float64
	Pos   token.Pos
}

func (e *FloatLit) Span() (token.Pos, token.Pos) { return e.Pos, e.Pos }
func (*FloatLit) Walk(Visitor)                   {}
func (*FloatLit) exprNode()                      {}

// StringLit is a string literal.
type StringLit struct {
	Value string
	Pos   token.Pos
}

func (e *StringLit) Span() (token.Pos, token.Pos) { return e.Pos, e.Pos }
func (*StringLit) Walk(Visitor)                   {}
func (*StringLit) exprNode()                      {}

// Ident refers to a local (register), parameter, global or constant by name.
type Ident struct {
	Name string
	Pos  token.Pos
}

func (e *Ident) Span() (token.Pos, token.Pos) { return e.Pos, e.Pos }
func (*Ident) Walk(Visitor)                   {}
func (*Ident) exprNode()                      {}

// FieldAccess is expr.field.
type FieldAccess struct {
	X     Expr
	Field string
	EndPos token.Pos
}

func (e *FieldAccess) Span() (token.Pos, token.Pos) { start, _ := e.X.Span(); return start, e.EndPos }
func (e *FieldAccess) Walk(v Visitor)               { Walk(v, e.X) }
func (*FieldAccess) exprNode()                      {}

// IndexExpr is expr[index].
type IndexExpr struct {
	X, Index Expr
	EndPos   token.Pos
}

func (e *IndexExpr) Span() (token.Pos, token.Pos) { start, _ := e.X.Span(); return start, e.EndPos }
func (e *IndexExpr) Walk(v Visitor) {
	Walk(v, e.X)
	Walk(v, e.Index)
}
func (*IndexExpr) exprNode() {}

// CallExpr is name(args...), a call to a function or extern function.
type CallExpr struct {
	Fun    string
	Args   []Expr
	StartPos, EndPos token.Pos
}

func (e *CallExpr) Span() (token.Pos, token.Pos) { return e.StartPos, e.EndPos }
func (e *CallExpr) Walk(v Visitor) {
	for _, a := range e.Args {
		Walk(v, a)
	}
}
func (*CallExpr) exprNode() {}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// BlockStmt is a named sequence of statements. Name is the source label
// (what BranchStmt.Then/Else refer to); Index is the block's declaration
// order among its function's blocks, assigned by the parser, and is what the
// checker resolves branch targets to and codegen emits as the literal
// operand.
type BlockStmt struct {
	Name  string
	Index int
	Stmts []Stmt
	StartPos, EndPos token.Pos
}

func (s *BlockStmt) Span() (token.Pos, token.Pos) { return s.StartPos, s.EndPos }
func (s *BlockStmt) Walk(v Visitor) {
	for _, st := range s.Stmts {
		Walk(v, st)
	}
}
func (*BlockStmt) stmtNode() {}

// AssignStmt is dest = expr, where dest names a fresh or existing local.
type AssignStmt struct {
	Dest string
	Type Type // declared type, nil if this is a plain reassignment
	Value Expr
	StartPos, EndPos token.Pos
}

func (s *AssignStmt) Span() (token.Pos, token.Pos) { return s.StartPos, s.EndPos }
func (s *AssignStmt) Walk(v Visitor) {
	if s.Type != nil {
		Walk(v, s.Type)
	}
	Walk(v, s.Value)
}
func (*AssignStmt) stmtNode() {}

// InstrStmt is a raw instruction-mnemonic statement of the form
// [dest =] MNEMONIC operand, operand, ... — used for the arithmetic,
// bitwise, comparison, memory and LOAD/STORE/LEA instruction forms that are
// not naturally spelled as an AssignStmt's Value expression but still lower
// 1:1 to a single compact opcode.
type InstrStmt struct {
	Dest    string // "" if the instruction has no destination
	Op      token.Token
	Operands []Expr
	StartPos, EndPos token.Pos
}

func (s *InstrStmt) Span() (token.Pos, token.Pos) { return s.StartPos, s.EndPos }
func (s *InstrStmt) Walk(v Visitor) {
	for _, o := range s.Operands {
		Walk(v, o)
	}
}
func (*InstrStmt) stmtNode() {}

// BranchStmt is BR target (unconditional) or BR cond, then, else
// (conditional). Then and Else name the target blocks by their source label;
// the checker resolves these to block indices and codegen emits the index as
// the branch's literal operand (Else == "" for an unconditional branch).
type BranchStmt struct {
	Cond       Expr // nil for an unconditional branch
	Then, Else string
	StartPos, EndPos token.Pos
}

func (s *BranchStmt) Span() (token.Pos, token.Pos) { return s.StartPos, s.EndPos }
func (s *BranchStmt) Walk(v Visitor) {
	if s.Cond != nil {
		Walk(v, s.Cond)
	}
}
func (*BranchStmt) stmtNode() {}

// ReturnStmt is RET [value].
type ReturnStmt struct {
	Value Expr // nil for a void return
	StartPos, EndPos token.Pos
}

func (s *ReturnStmt) Span() (token.Pos, token.Pos) { return s.StartPos, s.EndPos }
func (s *ReturnStmt) Walk(v Visitor) {
	if s.Value != nil {
		Walk(v, s.Value)
	}
}
func (*ReturnStmt) stmtNode() {}

// format implements the shared rendering logic behind each node's Format
// method: a short label plus, with the '#' flag, a map of child counts.
func format(f fmt.State, verb rune, n Node, label string, counts map[string]int) {
	if verb != 'v' && verb != 's' {
		fmt.Fprintf(f, "%%!%c(%T)", verb, n)
		return
	}

	label = strings.ReplaceAll(label, "\r\n", "⏎")
	label = strings.ReplaceAll(label, "\n", "⏎")
	label = strings.ReplaceAll(label, "\t", "⭾")

	if w, ok := f.Width(); ok {
		minus, plus := f.Flag('-'), f.Flag('+')
		runes := []rune(label)
		if len(runes) >= w {
			runes = runes[:w]
		} else if minus {
			runes = append(runes, []rune(strings.Repeat(" ", w-len(runes)))...)
		} else if !plus {
			runes = append([]rune(strings.Repeat(" ", w-len(runes))), runes...)
		}
		label = string(runes)
	}

	fmt.Fprint(f, label)
	if f.Flag('#') && len(counts) > 0 {
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprint(f, " {")
		for i, k := range keys {
			if i > 0 {
				fmt.Fprint(f, ", ")
			}
			fmt.Fprintf(f, "%s=%d", k, counts[k])
		}
		fmt.Fprint(f, "}")
	}
}

func (n *Module) Format(f fmt.State, verb rune) {
	lbl := "module"
	if n.Name != "" {
		lbl += " " + n.Name
	}
	format(f, verb, n, lbl, map[string]int{"decls": len(n.Decls)})
}

func (n *TypeDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "type "+n.Name, map[string]int{"fields": len(n.Fields)})
}

func (n *ConstantDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "constant "+n.Name, nil)
}

func (n *GlobalDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "global "+n.Name, nil)
}

func (n *ExternFunctionDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "extern function "+n.Name, map[string]int{"params": len(n.Params)})
}

func (n *FunctionDecl) Format(f fmt.State, verb rune) {
	lbl := "function " + n.Name
	if n.IsEntry {
		lbl += " (entry)"
	}
	format(f, verb, n, lbl, map[string]int{"params": len(n.Params)})
}

func (n *NamedType) Format(f fmt.State, verb rune) { format(f, verb, n, "type "+n.Name, nil) }
func (n *PtrType) Format(f fmt.State, verb rune)   { format(f, verb, n, "ptr type", nil) }
func (n *VecType) Format(f fmt.State, verb rune)   { format(f, verb, n, "vec type", nil) }
func (n *ArrayType) Format(f fmt.State, verb rune) { format(f, verb, n, "array type", nil) }

func (n *IntLit) Format(f fmt.State, verb rune) {
	format(f, verb, n, fmt.Sprintf("int %d", n.Value), nil)
}
func (n *FloatLit) Format(f fmt.State, verb rune) {
	format(f, verb, n, fmt.Sprintf("float %g", n.Value), nil)
}
func (n *StringLit) Format(f fmt.State, verb rune) {
	format(f, verb, n, fmt.Sprintf("string %q", n.Value), nil)
}
func (n *Ident) Format(f fmt.State, verb rune) { format(f, verb, n, "ident "+n.Name, nil) }
func (n *FieldAccess) Format(f fmt.State, verb rune) {
	format(f, verb, n, "field ."+n.Field, nil)
}
func (n *IndexExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "index", nil) }
func (n *CallExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "call "+n.Fun, map[string]int{"args": len(n.Args)})
}

func (n *BlockStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, fmt.Sprintf("block %s (%d)", n.Name, n.Index), map[string]int{"stmts": len(n.Stmts)})
}
func (n *AssignStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "assign "+n.Dest, nil)
}
func (n *InstrStmt) Format(f fmt.State, verb rune) {
	lbl := n.Op.String()
	if n.Dest != "" {
		lbl = n.Dest + " = " + lbl
	}
	format(f, verb, n, lbl, map[string]int{"operands": len(n.Operands)})
}
func (n *BranchStmt) Format(f fmt.State, verb rune) {
	lbl := "br " + n.Then
	if n.Else != "" {
		lbl = "br " + n.Then + ", " + n.Else
	}
	format(f, verb, n, lbl, nil)
}
func (n *ReturnStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "return", nil) }
