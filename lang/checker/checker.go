// Package checker performs the two-pass name resolution and structural type
// checking that turns a parsed ast.Module into a form the code generator can
// walk with no further ambiguity: every identifier bound, every expression's
// type known, and every branch target resolved to its block index.
package checker

import (
	"fmt"

	"github.com/hoil-lang/hoil/lang/ast"
	"github.com/hoil-lang/hoil/lang/scanner"
	"github.com/hoil-lang/hoil/lang/symtable"
	"github.com/hoil-lang/hoil/lang/token"
	"github.com/hoil-lang/hoil/lang/types"
)

// Result holds everything codegen needs from a successfully checked module.
type Result struct {
	Module *symtable.Scope

	// StructTypes maps a TYPE declaration's name to its resolved type.
	StructTypes map[string]*types.Type

	// ExprTypes maps every checked expression node to its resolved type.
	ExprTypes map[ast.Expr]*types.Type

	// FuncScopes maps each FunctionDecl to the scope holding its parameters
	// and locals.
	FuncScopes map[*ast.FunctionDecl]*symtable.Scope

	// BlockIndex maps each FunctionDecl to a lookup from block label to its
	// declaration-order index, resolved from BranchStmt.Then/Else.
	BlockIndex map[*ast.FunctionDecl]map[string]int
}

// Check resolves and type-checks mod, reporting every error it finds rather
// than stopping at the first one (unlike the parser, a checked-but-invalid
// AST is still useful to report to the user in full). The returned error, if
// non-nil, is a scanner.ErrorList.
func Check(fs *token.FileSet, mod *ast.Module) (*Result, error) {
	c := &checker{
		file:        fs.File(0),
		moduleScope: symtable.NewScope(nil),
		res: &Result{
			StructTypes: make(map[string]*types.Type),
			ExprTypes:   make(map[ast.Expr]*types.Type),
			FuncScopes:  make(map[*ast.FunctionDecl]*symtable.Scope),
			BlockIndex:  make(map[*ast.FunctionDecl]map[string]int),
		},
	}
	c.res.Module = c.moduleScope

	c.registerDecls(mod)
	c.checkDecls(mod)

	c.errors.Sort()
	return c.res, c.errors.Err()
}

type checker struct {
	file        *token.File
	moduleScope *symtable.Scope
	res         *Result
	errors      scanner.ErrorList
}

func (c *checker) error(pos token.Pos, format string, args ...any) {
	c.errors.Add(c.file.Position(pos), fmt.Sprintf(format, args...))
}

// registerDecls is the first pass: every module-level name is bound before
// any initializer or function body is checked, so forward references (a
// function calling one declared later, a global of a later-declared struct
// type) resolve correctly.
func (c *checker) registerDecls(mod *ast.Module) {
	for _, d := range mod.Decls {
		if td, ok := d.(*ast.TypeDecl); ok {
			c.res.StructTypes[td.Name] = &types.Type{Kind: types.Struct, Name: td.Name}
		}
	}

	for _, d := range mod.Decls {
		switch d := d.(type) {
		case *ast.TypeDecl:
			st := c.res.StructTypes[d.Name]
			for _, f := range d.Fields {
				st.Fields = append(st.Fields, types.StructField{Name: f.Name, Type: c.resolveType(f.Type)})
			}
			c.insert(c.moduleScope, &symtable.Entry{Name: d.Name, Kind: symtable.TypeSym, Node: d, Type: st, Defined: true})

		case *ast.ConstantDecl:
			c.insert(c.moduleScope, &symtable.Entry{Name: d.Name, Kind: symtable.ConstantSym, Node: d, Type: c.resolveType(d.Type), Defined: true})

		case *ast.GlobalDecl:
			c.insert(c.moduleScope, &symtable.Entry{Name: d.Name, Kind: symtable.GlobalSym, Node: d, Type: c.resolveType(d.Type), Defined: true})

		case *ast.ExternFunctionDecl:
			c.insert(c.moduleScope, &symtable.Entry{Name: d.Name, Kind: symtable.ExternFunctionSym, Node: d, Type: c.funcType(d.Params, d.Ret), Defined: true})

		case *ast.FunctionDecl:
			c.insert(c.moduleScope, &symtable.Entry{Name: d.Name, Kind: symtable.FunctionSym, Node: d, Type: c.funcType(d.Params, d.Ret), Defined: true})
		}
	}
}

func (c *checker) insert(s *symtable.Scope, e *symtable.Entry) {
	if err := s.Insert(e); err != nil {
		pos, _ := e.Node.Span()
		c.error(pos, "%s", err)
	}
}

func (c *checker) funcType(params []ast.Field, ret ast.Type) *types.Type {
	ft := &types.Type{Kind: types.Function}
	for _, p := range params {
		ft.Params = append(ft.Params, c.resolveType(p.Type))
	}
	if ret != nil {
		ft.Ret = c.resolveType(ret)
	} else {
		ft.Ret = types.VoidType
	}
	return ft
}

// resolveType converts an ast.Type into its structural *types.Type,
// resolving named builtin types and, via res.StructTypes, user-declared
// struct names (which registerDecls's first loop guarantees are all present
// before any field or signature is resolved).
func (c *checker) resolveType(t ast.Type) *types.Type {
	switch t := t.(type) {
	case *ast.NamedType:
		if bt := types.Named(t.Name); bt != nil {
			return bt
		}
		if st, ok := c.res.StructTypes[t.Name]; ok {
			return st
		}
		c.error(t.Pos, "undefined type %q", t.Name)
		return types.VoidType
	case *ast.PtrType:
		return &types.Type{Kind: types.Ptr, Elem: c.resolveType(t.Elem)}
	case *ast.VecType:
		return &types.Type{Kind: types.Vec, Elem: c.resolveType(t.Elem), Size: t.Size}
	case *ast.ArrayType:
		return &types.Type{Kind: types.Array, Elem: c.resolveType(t.Elem), Size: t.Size}
	default:
		panic(fmt.Sprintf("checker: unhandled ast.Type %T", t))
	}
}

// checkDecls is the second pass: constant/global initializers and function
// bodies are type-checked against the bindings registerDecls produced.
func (c *checker) checkDecls(mod *ast.Module) {
	for _, d := range mod.Decls {
		switch d := d.(type) {
		case *ast.ConstantDecl:
			e, _ := c.moduleScope.LookupLocal(d.Name)
			got := c.checkExpr(c.moduleScope, d.Value)
			if e != nil && !types.Compatible(e.Type, got) {
				pos, _ := d.Value.Span()
				c.error(pos, "constant %q declared as %s but initializer has type %s", d.Name, e.Type, got)
			}

		case *ast.GlobalDecl:
			if d.Value != nil {
				e, _ := c.moduleScope.LookupLocal(d.Name)
				got := c.checkExpr(c.moduleScope, d.Value)
				if e != nil && !types.Compatible(e.Type, got) {
					pos, _ := d.Value.Span()
					c.error(pos, "global %q declared as %s but initializer has type %s", d.Name, e.Type, got)
				}
			}

		case *ast.FunctionDecl:
			c.checkFunction(d)
		}
	}
}

func (c *checker) checkFunction(d *ast.FunctionDecl) {
	scope := symtable.NewScope(c.moduleScope)
	c.res.FuncScopes[d] = scope

	for _, p := range d.Params {
		c.insert(scope, &symtable.Entry{Name: p.Name, Kind: symtable.ParamSym, Node: d, Type: c.resolveType(p.Type), Defined: true})
	}

	blockIdx := make(map[string]int, len(d.Blocks))
	for _, b := range d.Blocks {
		if _, dup := blockIdx[b.Name]; dup {
			c.error(b.StartPos, "block label %q already declared in this function", b.Name)
			continue
		}
		blockIdx[b.Name] = b.Index
	}
	c.res.BlockIndex[d] = blockIdx

	retType := types.VoidType
	if d.Ret != nil {
		retType = c.resolveType(d.Ret)
	}

	for _, b := range d.Blocks {
		for _, st := range b.Stmts {
			c.checkStmt(scope, d, retType, blockIdx, st)
		}
	}
}

func (c *checker) checkStmt(scope *symtable.Scope, fn *ast.FunctionDecl, retType *types.Type, blockIdx map[string]int, st ast.Stmt) {
	switch st := st.(type) {
	case *ast.AssignStmt:
		got := c.checkExpr(scope, st.Value)
		if e, ok := scope.LookupLocal(st.Dest); ok {
			if st.Type != nil {
				c.error(st.StartPos, "local %q already declared in this block", st.Dest)
			} else if !types.Compatible(e.Type, got) {
				c.error(st.StartPos, "cannot assign %s to %q of type %s", got, st.Dest, e.Type)
			}
			return
		}
		typ := got
		if st.Type != nil {
			typ = c.resolveType(st.Type)
			if !types.Compatible(typ, got) {
				c.error(st.StartPos, "local %q declared as %s but initializer has type %s", st.Dest, typ, got)
			}
		}
		c.insert(scope, &symtable.Entry{Name: st.Dest, Kind: symtable.LocalSym, Node: st, Type: typ, Defined: true})

	case *ast.InstrStmt:
		var operandTypes []*types.Type
		for _, o := range st.Operands {
			operandTypes = append(operandTypes, c.checkExpr(scope, o))
		}
		if st.Dest == "" {
			return
		}
		resType := inferInstrType(st.Op, operandTypes)
		if e, ok := scope.LookupLocal(st.Dest); ok {
			if !types.Compatible(e.Type, resType) {
				c.error(st.StartPos, "cannot assign %s result to %q of type %s", st.Op, st.Dest, e.Type)
			}
			return
		}
		c.insert(scope, &symtable.Entry{Name: st.Dest, Kind: symtable.LocalSym, Node: st, Type: resType, Defined: true})

	case *ast.BranchStmt:
		if st.Cond != nil {
			got := c.checkExpr(scope, st.Cond)
			if got != nil && got.Kind != types.Bool && got.Kind != types.Int {
				pos, _ := st.Cond.Span()
				c.error(pos, "branch condition must be bool or int, got %s", got)
			}
		}
		if st.Then != "" {
			if _, ok := blockIdx[st.Then]; !ok {
				c.error(st.StartPos, "undefined block label %q", st.Then)
			}
		}
		if st.Else != "" {
			if _, ok := blockIdx[st.Else]; !ok {
				c.error(st.StartPos, "undefined block label %q", st.Else)
			}
		}

	case *ast.ReturnStmt:
		if st.Value == nil {
			if retType.Kind != types.Void {
				c.error(st.StartPos, "function %q must return a value of type %s", fn.Name, retType)
			}
			return
		}
		got := c.checkExpr(scope, st.Value)
		if retType.Kind == types.Void {
			c.error(st.StartPos, "function %q is void, cannot return a value", fn.Name)
		} else if !types.Compatible(retType, got) {
			c.error(st.StartPos, "function %q returns %s but this statement returns %s", fn.Name, retType, got)
		}

	default:
		panic(fmt.Sprintf("checker: unhandled ast.Stmt %T", st))
	}
}

// inferInstrType derives an instruction's result type from its operands.
// Comparisons always yield bool; LEA yields a pointer to its first operand's
// type; every other mnemonic yields its first operand's type, mirroring the spec's rule that arithmetic/bitwise/memory
// instructions are homogeneous in their operand types.
func inferInstrType(op token.Token, operands []*types.Type) *types.Type {
	switch op {
	case token.CMP_EQ, token.CMP_NE, token.CMP_LT, token.CMP_LE, token.CMP_GT, token.CMP_GE:
		return types.BoolType
	case token.LEA:
		if len(operands) > 0 {
			return &types.Type{Kind: types.Ptr, Elem: operands[0]}
		}
		return types.VoidType
	default:
		if len(operands) > 0 {
			return operands[0]
		}
		return types.VoidType
	}
}

func (c *checker) checkExpr(scope *symtable.Scope, e ast.Expr) *types.Type {
	var t *types.Type
	switch e := e.(type) {
	case *ast.IntLit:
		// Spec: integer literals have type Int{32, signed}; codegen's literal
		// immediate (lang/codegen/funcs.go genInto) likewise always encodes 4
		// bytes, matching this width.
		t = types.I32Type
	case *ast.FloatLit:
		t = types.F64Type
	case *ast.StringLit:
		t = &types.Type{Kind: types.Ptr, Elem: types.U8Type}
	case *ast.Ident:
		if entry, ok := scope.Lookup(e.Name); ok {
			t = entry.Type
		} else {
			c.error(e.Pos, "undefined identifier %q", e.Name)
			t = types.VoidType
		}
	case *ast.FieldAccess:
		xt := c.checkExpr(scope, e.X)
		t = c.fieldType(e, xt)
	case *ast.IndexExpr:
		xt := c.checkExpr(scope, e.X)
		c.checkExpr(scope, e.Index)
		t = c.elemType(e, xt)
	case *ast.CallExpr:
		t = c.checkCall(scope, e)
	default:
		panic(fmt.Sprintf("checker: unhandled ast.Expr %T", e))
	}
	c.res.ExprTypes[e] = t
	return t
}

func (c *checker) fieldType(e *ast.FieldAccess, xt *types.Type) *types.Type {
	if xt == nil || xt.Kind != types.Struct {
		pos, _ := e.Span()
		c.error(pos, "field access on non-struct type %s", xt)
		return types.VoidType
	}
	for _, f := range xt.Fields {
		if f.Name == e.Field {
			return f.Type
		}
	}
	pos, _ := e.Span()
	c.error(pos, "struct %q has no field %q", xt.Name, e.Field)
	return types.VoidType
}

func (c *checker) elemType(e *ast.IndexExpr, xt *types.Type) *types.Type {
	if xt == nil || (xt.Kind != types.Array && xt.Kind != types.Vec && xt.Kind != types.Ptr) {
		pos, _ := e.Span()
		c.error(pos, "index access on non-indexable type %s", xt)
		return types.VoidType
	}
	return xt.Elem
}

func (c *checker) checkCall(scope *symtable.Scope, e *ast.CallExpr) *types.Type {
	entry, ok := scope.Lookup(e.Fun)
	if !ok {
		c.error(e.StartPos, "call to undefined function %q", e.Fun)
		for _, a := range e.Args {
			c.checkExpr(scope, a)
		}
		return types.VoidType
	}
	ft := entry.Type
	if len(e.Args) != len(ft.Params) && !ft.Variadic {
		c.error(e.StartPos, "function %q expects %d argument(s), got %d", e.Fun, len(ft.Params), len(e.Args))
	}
	for i, a := range e.Args {
		got := c.checkExpr(scope, a)
		if i < len(ft.Params) && !types.Compatible(ft.Params[i], got) {
			pos, _ := a.Span()
			c.error(pos, "argument %d to %q: expected %s, got %s", i+1, e.Fun, ft.Params[i], got)
		}
	}
	return ft.Ret
}
