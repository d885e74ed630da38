// Package parser implements the recursive-descent parser that transforms
// HOIL source text into an *ast.Module. It is strictly fail-fast: no
// statement-level recovery is attempted and only the first error is
// reported, since a malformed HOIL module has no reasonable partial-AST
// interpretation for the checker or code generator to continue from.
package parser

import (
	"fmt"
	"os"
	"strings"

	"github.com/hoil-lang/hoil/lang/ast"
	"github.com/hoil-lang/hoil/lang/scanner"
	"github.com/hoil-lang/hoil/lang/token"
)

// ParseFile reads and parses a single HOIL source file.
func ParseFile(filename string) (*token.FileSet, *ast.Module, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, err
	}
	fs := token.NewFileSet()
	mod, err := Parse(fs, filename, src)
	return fs, mod, err
}

// Parse parses a single HOIL source file from src, registering it under
// filename in fs. The returned error, if non-nil, is a scanner.ErrorList
// holding exactly one entry: the first error encountered.
func Parse(fs *token.FileSet, filename string, src []byte) (mod *ast.Module, err error) {
	var p parser
	p.file = fs.AddFile(filename, -1, len(src))
	p.scanner.Init(p.file, src, p.errors.Add)
	p.advance()

	defer func() {
		if r := recover(); r != nil {
			if r != errPanicMode {
				panic(r)
			}
		}
		if len(p.errors) > 1 {
			p.errors = p.errors[:1]
		}
		err = p.errors.Err()
	}()

	mod = p.parseModule()
	return mod, nil
}

var errPanicMode = fmt.Errorf("parse error")

type parser struct {
	scanner scanner.Scanner
	errors  scanner.ErrorList
	file    *token.File

	tok token.Token
	val token.Value

	hasNext bool
	nextTok token.Token
	nextVal token.Value
}

func (p *parser) advance() {
	if p.hasNext {
		p.tok, p.val = p.nextTok, p.nextVal
		p.hasNext = false
		return
	}
	p.tok = p.scanner.Scan(&p.val)
}

func (p *parser) peek() token.Token {
	if !p.hasNext {
		p.nextTok = p.scanner.Scan(&p.nextVal)
		p.hasNext = true
	}
	return p.nextTok
}

func (p *parser) error(pos token.Pos, msg string) {
	p.errors.Add(p.file.Position(pos), msg)
}

func (p *parser) errorExpected(pos token.Pos, msg string) {
	msg = "expected " + msg
	if pos == p.val.Pos {
		if lit := p.tok.Literal(p.val); lit != "" {
			msg += ", found " + lit
		} else {
			msg += ", found " + p.tok.GoString()
		}
	}
	p.error(pos, msg)
}

// expect consumes the current token if it matches one of toks and returns
// its position, otherwise it records an error and panics with errPanicMode,
// aborting the parse.
func (p *parser) expect(toks ...token.Token) token.Pos {
	pos := p.val.Pos
	for _, tok := range toks {
		if p.tok == tok {
			p.advance()
			return pos
		}
	}

	var buf strings.Builder
	for i, tok := range toks {
		if i > 0 {
			buf.WriteString(" or ")
		}
		buf.WriteString(tok.GoString())
	}
	p.errorExpected(pos, buf.String())
	panic(errPanicMode)
}

func (p *parser) parseModule() *ast.Module {
	start := p.val.Pos
	p.expect(token.MODULE)
	name := p.val.Str
	p.expect(token.STRING)
	p.expect(token.SEMI)

	mod := &ast.Module{Name: name, StartPos: start}

	if p.tok == token.TARGET {
		p.advance()
		mod.Target = p.val.Str
		p.expect(token.STRING)
		p.expect(token.SEMI)
	}

	for p.tok != token.EOF {
		mod.Decls = append(mod.Decls, p.parseDecl())
	}
	mod.EndPos = p.val.Pos
	return mod
}

func (p *parser) parseDecl() ast.Decl {
	switch p.tok {
	case token.TYPE:
		return p.parseTypeDecl()
	case token.CONSTANT:
		return p.parseConstantDecl()
	case token.GLOBAL:
		return p.parseGlobalDecl()
	case token.EXTERN:
		return p.parseExternFunctionDecl()
	case token.ENTRY, token.FUNCTION:
		return p.parseFunctionDecl()
	default:
		p.errorExpected(p.val.Pos, "a declaration")
		panic(errPanicMode)
	}
}

func (p *parser) parseIdent() (string, token.Pos) {
	pos := p.val.Pos
	lit := p.val.Raw
	p.expect(token.IDENT)
	return lit, pos
}

func (p *parser) parseTypeDecl() *ast.TypeDecl {
	start := p.expect(token.TYPE)
	name, _ := p.parseIdent()
	p.expect(token.LBRACE)

	d := &ast.TypeDecl{Name: name, StartPos: start}
	for p.tok != token.RBRACE {
		fname, _ := p.parseIdent()
		p.expect(token.COLON)
		ftype := p.parseType()
		d.Fields = append(d.Fields, ast.Field{Name: fname, Type: ftype})
		if p.tok == token.COMMA {
			p.advance()
		} else {
			break
		}
	}
	d.EndPos = p.expect(token.RBRACE)
	if p.tok == token.SEMI {
		p.advance()
	}
	return d
}

func (p *parser) parseConstantDecl() *ast.ConstantDecl {
	start := p.expect(token.CONSTANT)
	name, _ := p.parseIdent()
	p.expect(token.COLON)
	typ := p.parseType()
	p.expect(token.EQ)
	val := p.parseExpr()
	end := p.expect(token.SEMI)
	return &ast.ConstantDecl{Name: name, Type: typ, Value: val, StartPos: start, EndPos: end}
}

func (p *parser) parseGlobalDecl() *ast.GlobalDecl {
	start := p.expect(token.GLOBAL)
	name, _ := p.parseIdent()
	p.expect(token.COLON)
	typ := p.parseType()

	d := &ast.GlobalDecl{Name: name, Type: typ, StartPos: start}
	if p.tok == token.EQ {
		p.advance()
		d.Value = p.parseExpr()
	}
	d.EndPos = p.expect(token.SEMI)
	return d
}

func (p *parser) parseExternFunctionDecl() *ast.ExternFunctionDecl {
	start := p.expect(token.EXTERN)
	p.expect(token.FUNCTION)
	name, _ := p.parseIdent()
	params := p.parseParams()

	d := &ast.ExternFunctionDecl{Name: name, Params: params, StartPos: start}
	if p.tok == token.ARROW {
		p.advance()
		d.Ret = p.parseType()
	}
	d.EndPos = p.expect(token.SEMI)
	return d
}

func (p *parser) parseFunctionDecl() *ast.FunctionDecl {
	start := p.val.Pos
	isEntry := p.tok == token.ENTRY
	if isEntry {
		p.advance()
	}
	p.expect(token.FUNCTION)
	name, _ := p.parseIdent()
	params := p.parseParams()

	d := &ast.FunctionDecl{Name: name, Params: params, IsEntry: isEntry, StartPos: start}
	if p.tok == token.ARROW {
		p.advance()
		d.Ret = p.parseType()
	}
	d.Blocks, d.EndPos = p.parseFunctionBody()
	return d
}

func (p *parser) parseParams() []ast.Field {
	p.expect(token.LPAREN)
	var params []ast.Field
	for p.tok != token.RPAREN {
		name, _ := p.parseIdent()
		p.expect(token.COLON)
		typ := p.parseType()
		params = append(params, ast.Field{Name: name, Type: typ})
		if p.tok == token.COMMA {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RPAREN)
	return params
}

func (p *parser) parseType() ast.Type {
	pos := p.val.Pos
	switch {
	case p.tok.IsTypeKeyword():
		name := p.tok.String()
		p.advance()
		switch name {
		case "ptr":
			p.expect(token.LT)
			elem := p.parseType()
			end := p.expect(token.GT)
			return &ast.PtrType{Elem: elem, StartPos: pos, EndPos: end}
		case "vec":
			p.expect(token.LT)
			elem := p.parseType()
			p.expect(token.COMMA)
			size := p.parseIntLitValue()
			end := p.expect(token.GT)
			return &ast.VecType{Elem: elem, Size: size, StartPos: pos, EndPos: end}
		case "array":
			p.expect(token.LT)
			elem := p.parseType()
			p.expect(token.COMMA)
			size := p.parseIntLitValue()
			end := p.expect(token.GT)
			return &ast.ArrayType{Elem: elem, Size: size, StartPos: pos, EndPos: end}
		default:
			return &ast.NamedType{Name: name, Pos: pos}
		}
	case p.tok == token.IDENT:
		name := p.val.Raw
		p.advance()
		return &ast.NamedType{Name: name, Pos: pos}
	default:
		p.errorExpected(pos, "a type")
		panic(errPanicMode)
	}
}

func (p *parser) parseIntLitValue() int64 {
	v := p.val.Int
	p.expect(token.INT)
	return v
}

func (p *parser) parseFunctionBody() ([]*ast.BlockStmt, token.Pos) {
	p.expect(token.LBRACE)

	var blocks []*ast.BlockStmt
	for p.tok != token.RBRACE {
		namePos := p.val.Pos
		name := p.val.Raw
		p.expect(token.IDENT, token.ENTRY)
		p.expect(token.COLON)

		b := &ast.BlockStmt{Name: name, Index: len(blocks), StartPos: namePos}
		for p.tok != token.RBRACE && !((p.tok == token.IDENT || p.tok == token.ENTRY) && p.peek() == token.COLON) {
			b.Stmts = append(b.Stmts, p.parseStmt())
		}
		b.EndPos = p.val.Pos
		blocks = append(blocks, b)
	}
	end := p.expect(token.RBRACE)

	if len(blocks) == 0 {
		p.error(end, "function body must have at least one labeled block")
	}
	return blocks, end
}

func (p *parser) parseStmt() ast.Stmt {
	switch {
	case p.tok == token.RET:
		return p.parseReturnStmt()
	case p.tok == token.BR:
		return p.parseBranchStmt()
	case p.tok == token.IDENT && p.peek() == token.EQ:
		return p.parseAssignOrInstrStmt()
	case p.tok.IsInstruction():
		return p.parseInstrStmt("")
	default:
		p.errorExpected(p.val.Pos, "a statement")
		panic(errPanicMode)
	}
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.expect(token.RET)
	s := &ast.ReturnStmt{StartPos: start}
	if p.tok != token.SEMI {
		s.Value = p.parseExpr()
	}
	s.EndPos = p.expect(token.SEMI)
	return s
}

func (p *parser) parseBranchStmt() *ast.BranchStmt {
	start := p.expect(token.BR)
	first := p.parseExpr()

	s := &ast.BranchStmt{StartPos: start}
	if p.tok == token.COMMA {
		p.advance()
		s.Cond = first
		s.Then = p.parseLabelRef()
		p.expect(token.COMMA)
		s.Else = p.parseLabelRef()
	} else {
		id, ok := first.(*ast.Ident)
		if !ok {
			start2, _ := first.Span()
			p.error(start2, "branch target must be a block label")
		} else {
			s.Then = id.Name
		}
	}
	s.EndPos = p.expect(token.SEMI)
	return s
}

func (p *parser) parseLabelRef() string {
	name := p.val.Raw
	p.expect(token.IDENT)
	return name
}

// parseAssignOrInstrStmt parses "dest = value" where value is either a plain
// expression (AssignStmt) or an instruction mnemonic with operands
// (InstrStmt with a destination).
func (p *parser) parseAssignOrInstrStmt() ast.Stmt {
	dest, destPos := p.parseIdent()
	p.expect(token.EQ)

	if p.tok.IsInstruction() {
		s := p.parseInstrStmt(dest)
		s.StartPos = destPos
		return s
	}

	start := destPos
	value := p.parseExpr()
	end := p.expect(token.SEMI)
	return &ast.AssignStmt{Dest: dest, Value: value, StartPos: start, EndPos: end}
}

func (p *parser) parseInstrStmt(dest string) *ast.InstrStmt {
	start := p.val.Pos
	op := p.tok
	p.advance()

	s := &ast.InstrStmt{Dest: dest, Op: op, StartPos: start}
	for p.tok != token.SEMI {
		s.Operands = append(s.Operands, p.parseExpr())
		if p.tok == token.COMMA {
			p.advance()
		} else {
			break
		}
	}
	s.EndPos = p.expect(token.SEMI)
	return s
}

// parseExpr parses a primary expression followed by any number of .field or
// [index] postfix operators. HOIL has no infix operators at the expression
// level: arithmetic and comparisons are instruction statements, not
// expressions.
func (p *parser) parseExpr() ast.Expr {
	e := p.parsePrimaryExpr()
	for {
		switch p.tok {
		case token.DOT:
			p.advance()
			field, fieldPos := p.parseIdent()
			e = &ast.FieldAccess{X: e, Field: field, EndPos: fieldPos}
		case token.LBRACK:
			p.advance()
			idx := p.parseExpr()
			end := p.expect(token.RBRACK)
			e = &ast.IndexExpr{X: e, Index: idx, EndPos: end}
		default:
			return e
		}
	}
}

func (p *parser) parsePrimaryExpr() ast.Expr {
	pos := p.val.Pos
	switch p.tok {
	case token.INT:
		v := p.val.Int
		p.advance()
		return &ast.IntLit{Value: v, Pos: pos}
	case token.FLOAT:
		v := p.val.Float
		p.advance()
		return &ast.FloatLit{Value: v, Pos: pos}
	case token.STRING:
		v := p.val.Str
		p.advance()
		return &ast.StringLit{Value: v, Pos: pos}
	case token.IDENT:
		name := p.val.Raw
		p.advance()
		if p.tok == token.LPAREN {
			return p.parseCallExpr(name, pos)
		}
		return &ast.Ident{Name: name, Pos: pos}
	default:
		p.errorExpected(pos, "an expression")
		panic(errPanicMode)
	}
}

func (p *parser) parseCallExpr(fun string, start token.Pos) *ast.CallExpr {
	p.expect(token.LPAREN)
	var args []ast.Expr
	for p.tok != token.RPAREN {
		args = append(args, p.parseExpr())
		if p.tok == token.COMMA {
			p.advance()
		} else {
			break
		}
	}
	end := p.expect(token.RPAREN)
	return &ast.CallExpr{Fun: fun, Args: args, StartPos: start, EndPos: end}
}
