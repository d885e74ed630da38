// Package scanner tokenizes HOIL source text for the parser to consume. The
// two-character lookahead strategy (advance/peek) and position bookkeeping
// are adapted from this module's token.File line table, itself modeled after
// the same idea used across the toolchain's other textual front ends.
package scanner

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hoil-lang/hoil/lang/token"
)

// TokenAndValue combines the token type with the token value type in the
// same struct.
type TokenAndValue struct {
	Token token.Token
	Value token.Value
}

// ScanFiles tokenizes the source files and returns the tokens grouped by the
// file at the same index, along with any error encountered. The error, if
// non-nil, is guaranteed to be an ErrorList.
func ScanFiles(files ...string) (*token.FileSet, [][]TokenAndValue, error) {
	if len(files) == 0 {
		return nil, nil, nil
	}

	var (
		s      Scanner
		tokVal token.Value
		el     ErrorList
	)

	fs := token.NewFileSet()
	tokensByFile := make([][]TokenAndValue, len(files))
	for i, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			el.Add(token.Position{Filename: file}, err.Error())
			continue
		}

		f := fs.AddFile(file, -1, len(b))
		s.Init(f, b, el.Add)
		for {
			tok := s.Scan(&tokVal)
			tokensByFile[i] = append(tokensByFile[i], TokenAndValue{Token: tok, Value: tokVal})
			if tok == token.EOF {
				break
			}
		}
	}
	el.Sort()
	return fs, tokensByFile, el.Err()
}

// Scanner tokenizes a single HOIL source file.
type Scanner struct {
	// immutable after Init
	file *token.File
	src  []byte
	err  func(pos token.Position, msg string)

	// mutable scanning state
	cur rune // current character, -1 at EOF
	off int  // byte offset of cur
	roff int // byte offset right after cur
}

// Init (re-)initializes the scanner to tokenize a new file. It panics if the
// file size does not match len(src).
func (s *Scanner) Init(file *token.File, src []byte, errHandler func(token.Position, string)) {
	if file.Size() != len(src) {
		panic(fmt.Sprintf("file size (%d) does not match src len (%d)", file.Size(), len(src)))
	}

	s.file = file
	s.src = src
	s.err = errHandler
	s.cur = ' '
	s.off = 0
	s.roff = 0
	s.advance()
}

func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

func (s *Scanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		if s.cur == '\n' {
			s.file.AddLine(s.off - 1)
		}
		s.cur = -1
		return
	}

	s.off = s.roff
	if s.cur == '\n' {
		s.file.AddLine(s.off - 1)
	}

	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.error(s.off, "illegal UTF-8 encoding")
		}
	}
	s.roff += w
	s.cur = r
}

func (s *Scanner) error(off int, msg string) {
	if s.err != nil {
		s.err(s.file.Position(s.file.Pos(off)), msg)
	}
}

func (s *Scanner) errorf(off int, format string, args ...any) {
	s.error(off, fmt.Sprintf(format, args...))
}

func (s *Scanner) advanceIf(b byte) bool {
	if s.cur == rune(b) {
		s.advance()
		return true
	}
	return false
}

// Scan returns the next token in the source file, storing its value in
// tokVal.
func (s *Scanner) Scan(tokVal *token.Value) (tok token.Token) {
	s.skipWhitespaceAndComments()

	pos := s.file.Pos(s.off)
	start := s.off

	switch cur := s.cur; {
	case isLetter(cur):
		lit := s.ident()
		tok = token.LookupKw(lit)
		*tokVal = token.Value{Raw: lit, Pos: pos}

	case isDigit(cur) || (cur == '-' && isDigit(rune(s.peek()))):
		tok, lit := s.number()
		*tokVal = token.Value{Raw: lit, Pos: pos}
		if tok == token.INT {
			v, err := strconv.ParseInt(lit, 10, 64)
			if err != nil {
				s.error(start, "integer literal value out of range")
			}
			tokVal.Int = v
		} else {
			v, err := strconv.ParseFloat(lit, 64)
			if err != nil {
				s.error(start, "float literal value out of range")
			}
			tokVal.Float = v
		}

	case cur == '"':
		tok = token.STRING
		lit, val := s.shortString()
		*tokVal = token.Value{Raw: lit, Pos: pos, Str: val}

	default:
		s.advance() // always make progress

		switch cur {
		case '(', ')', '{', '}', '[', ']', ',', '.', ';', ':', '=', '<', '>':
			tok = token.LookupPunct(string(cur))
			*tokVal = token.Value{Raw: tok.String(), Pos: pos}

		case '-':
			if s.advanceIf('>') {
				tok = token.ARROW
				*tokVal = token.Value{Raw: "->", Pos: pos}
			} else {
				s.errorf(start, "illegal character %#U", cur)
				tok = token.ILLEGAL
				*tokVal = token.Value{Raw: "-", Pos: pos}
			}

		case -1:
			tok = token.EOF
			*tokVal = token.Value{Raw: "", Pos: pos}

		default:
			s.errorf(start, "illegal character %#U", cur)
			tok = token.ILLEGAL
			*tokVal = token.Value{Raw: string(cur), Pos: pos}
		}
	}
	return tok
}

func (s *Scanner) ident() string {
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

// number scans an optionally negative integer or float literal.
func (s *Scanner) number() (token.Token, string) {
	start := s.off
	tok := token.INT

	s.advanceIf('-')
	for isDigit(s.cur) {
		s.advance()
	}
	if s.cur == '.' && isDigit(rune(s.peek())) {
		tok = token.FLOAT
		s.advance() // consume '.'
		for isDigit(s.cur) {
			s.advance()
		}
	}
	if s.cur == 'e' || s.cur == 'E' {
		save := s.off
		s.advance()
		if s.cur == '+' || s.cur == '-' {
			s.advance()
		}
		if isDigit(s.cur) {
			tok = token.FLOAT
			for isDigit(s.cur) {
				s.advance()
			}
		} else {
			// not actually an exponent, back out (e.g. "1e" identifier boundary)
			s.rewindTo(save)
		}
	}
	return tok, string(s.src[start:s.off])
}

// rewindTo resets the scanner to re-read from off, used only to back out of a
// speculative exponent lookahead.
func (s *Scanner) rewindTo(off int) {
	s.off = off
	s.roff = off
	s.cur = ' '
	s.advance()
}

// shortString scans a double-quoted string literal. Backslash escapes are
// recognized (skipped over as two characters) but never decoded: per spec
// §9.4 that is left to a later pass.
func (s *Scanner) shortString() (raw, val string) {
	start := s.off
	s.advance() // consume opening quote
	var sb strings.Builder
	for {
		switch s.cur {
		case -1, '\n':
			s.error(start, "unterminated string literal")
			return string(s.src[start:s.off]), sb.String()
		case '"':
			s.advance()
			return string(s.src[start:s.off]), sb.String()
		case '\\':
			sb.WriteRune(s.cur)
			s.advance()
			if s.cur != -1 && s.cur != '\n' {
				sb.WriteRune(s.cur)
				s.advance()
			}
		default:
			sb.WriteRune(s.cur)
			s.advance()
		}
	}
}

func (s *Scanner) skipWhitespaceAndComments() {
	for {
		switch {
		case isWhitespace(s.cur):
			s.advance()
		case s.cur == '/' && s.peek() == '/':
			for s.cur != '\n' && s.cur != -1 {
				s.advance()
			}
		case s.cur == '/' && s.peek() == '*':
			start := s.off
			s.advance()
			s.advance()
			closed := false
			for s.cur != -1 {
				if s.cur == '*' && s.peek() == '/' {
					s.advance()
					s.advance()
					closed = true
					break
				}
				s.advance()
			}
			if !closed {
				s.error(start, "unterminated block comment")
			}
		default:
			return
		}
	}
}

func isWhitespace(rn rune) bool {
	return rn == ' ' || rn == '\t' || rn == '\n' || rn == '\r'
}

func isLetter(rn rune) bool {
	return 'a' <= rn && rn <= 'z' ||
		'A' <= rn && rn <= 'Z' ||
		rn == '_' ||
		rn >= utf8.RuneSelf && unicode.IsLetter(rn)
}

func isDigit(rn rune) bool {
	return '0' <= rn && rn <= '9'
}
