package scanner

import (
	"fmt"
	"io"
	"sort"

	"github.com/hoil-lang/hoil/lang/token"
)

// Error is a single scanning or parsing error with its source location.
// Modeled on go/scanner.Error, the convention the rest of this codebase's
// diagnostics follow.
type Error struct {
	Pos token.Position
	Msg string
}

func (e Error) Error() string {
	if !e.Pos.IsValid() {
		return e.Msg
	}
	return e.Pos.String() + ": " + e.Msg
}

// ErrorList is a list of *Error values, kept in the order they were added
// until Sort orders them by position. Every error
// surfaced by the scanner, parser and checker is collected in one of these so
// that a run reports everything it found rather than bailing on the first
// diagnostic (the parser is the exception: it is fail-fast per spec and an
// ErrorList from it never holds more than one entry).
type ErrorList []*Error

// Add appends an error at the given position.
func (l *ErrorList) Add(pos token.Position, msg string) {
	*l = append(*l, &Error{Pos: pos, Msg: msg})
}

func (l ErrorList) Len() int      { return len(l) }
func (l ErrorList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }
func (l ErrorList) Less(i, j int) bool {
	pi, pj := l[i].Pos, l[j].Pos
	if pi.Filename != pj.Filename {
		return pi.Filename < pj.Filename
	}
	if pi.Line != pj.Line {
		return pi.Line < pj.Line
	}
	return pi.Col < pj.Col
}

// Sort sorts the list in place by position.
func (l ErrorList) Sort() { sort.Sort(l) }

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", l[0], len(l)-1)
}

// Unwrap lets errors.Is / errors.As traverse every error in the list.
func (l ErrorList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

// Err returns l as an error, or nil if l is empty.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// PrintError prints err to w. If err is an ErrorList, each error is printed
// on its own line.
func PrintError(w io.Writer, err error) {
	if list, ok := err.(ErrorList); ok {
		for _, e := range list {
			fmt.Fprintln(w, e)
		}
		return
	}
	fmt.Fprintln(w, err)
}
