package ast

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hoil-lang/hoil/lang/token"
)

// Printer controls pretty-printing of the AST nodes.
type Printer struct {
	// Output is the io.Writer to print to.
	Output io.Writer

	// Pos indicates the position printing mode.
	Pos token.PosMode

	// NodeFmt is the format string to use to print the nodes. Defaults to
	// "%v".
	NodeFmt string
}

// Print pretty-prints the AST node n. file is only required for printing
// positions; if p.Pos == token.PosNone it may be nil.
func (p *Printer) Print(n Node, file *token.File) error {
	if file == nil && p.Pos != token.PosNone {
		return errors.New("file must be provided to print positions")
	}

	pp := &printer{
		w:       p.Output,
		pos:     p.Pos,
		nodeFmt: p.NodeFmt,
		file:    file,
	}
	if p.NodeFmt == "" {
		pp.nodeFmt = "%v"
	}

	Walk(pp, n)
	return pp.err
}

type printer struct {
	w       io.Writer
	pos     token.PosMode
	nodeFmt string
	file    *token.File
	depth   int
	err     error
}

func (p *printer) Visit(n Node, dir VisitDirection) Visitor {
	if dir == VisitExit || p.err != nil {
		p.depth--
		return nil
	}

	p.depth++
	p.printNode(n, p.depth-1)
	return p
}

func (p *printer) printNode(n Node, indent int) {
	if p.err != nil {
		return
	}

	format := "%s"
	args := []any{strings.Repeat(". ", indent)}
	if p.pos != token.PosNone {
		format += "[%s:%s] "
		start, end := n.Span()
		args = append(args,
			token.FormatPos(p.pos, p.file, start, true),
			token.FormatPos(p.pos, p.file, end, false),
		)
	}
	format += p.nodeFmt + "\n"
	args = append(args, n)

	_, p.err = fmt.Fprintf(p.w, format, args...)
}
