package scanner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoil-lang/hoil/lang/scanner"
	"github.com/hoil-lang/hoil/lang/token"
)

func scanAll(t *testing.T, src string) ([]token.Token, []token.Value, []string) {
	t.Helper()
	f := token.NewFile("test.hoil", len(src))
	var (
		s      scanner.Scanner
		el     scanner.ErrorList
		toks   []token.Token
		vals   []token.Value
		tokVal token.Value
	)
	s.Init(f, []byte(src), el.Add)
	for {
		tok := s.Scan(&tokVal)
		toks = append(toks, tok)
		vals = append(vals, tokVal)
		if tok == token.EOF {
			break
		}
	}
	var msgs []string
	for _, e := range el {
		msgs = append(msgs, e.Msg)
	}
	return toks, vals, msgs
}

func TestScanKeywordsAndPunctuation(t *testing.T) {
	toks, _, errs := scanAll(t, `MODULE "m"; FUNCTION f() -> void { ENTRY: RET; }`)
	require.Empty(t, errs)
	require.Equal(t, []token.Token{
		token.MODULE, token.STRING, token.SEMI,
		token.FUNCTION, token.IDENT, token.LPAREN, token.RPAREN, token.ARROW, token.VOID,
		token.LBRACE, token.ENTRY, token.COLON, token.RET, token.SEMI, token.RBRACE,
		token.EOF,
	}, toks)
}

func TestScanIntAndFloatLiterals(t *testing.T) {
	toks, vals, errs := scanAll(t, `1 -2 3.5 1e3 1.5e-2`)
	require.Empty(t, errs)
	require.Equal(t, []token.Token{token.INT, token.INT, token.FLOAT, token.FLOAT, token.FLOAT, token.EOF}, toks)
	require.Equal(t, int64(1), vals[0].Int)
	require.Equal(t, int64(-2), vals[1].Int)
	require.Equal(t, 3.5, vals[2].Float)
	require.Equal(t, 1e3, vals[3].Float)
	require.Equal(t, 1.5e-2, vals[4].Float)
}

func TestScanStringLiteralEscapesNotDecoded(t *testing.T) {
	toks, vals, errs := scanAll(t, `"a\nb"`)
	require.Empty(t, errs)
	require.Equal(t, []token.Token{token.STRING, token.EOF}, toks)
	require.Equal(t, `a\nb`, vals[0].Str)
}

func TestScanUnterminatedStringIsError(t *testing.T) {
	_, _, errs := scanAll(t, `"abc`)
	require.Len(t, errs, 1)
	require.Contains(t, errs[0], "unterminated string literal")
}

func TestScanUnterminatedBlockCommentIsError(t *testing.T) {
	_, _, errs := scanAll(t, `/* comment`)
	require.Len(t, errs, 1)
	require.Contains(t, errs[0], "unterminated block comment")
}

func TestScanLineCommentSkipped(t *testing.T) {
	toks, _, errs := scanAll(t, "// comment\nRET")
	require.Empty(t, errs)
	require.Equal(t, []token.Token{token.RET, token.EOF}, toks)
}

func TestScanIllegalCharacter(t *testing.T) {
	toks, _, errs := scanAll(t, `@`)
	require.Equal(t, []token.Token{token.ILLEGAL, token.EOF}, toks)
	require.Len(t, errs, 1)
	require.Contains(t, errs[0], "illegal character")
}

func TestScanLineAndColumnTracking(t *testing.T) {
	_, vals, errs := scanAll(t, "ADD\nSUB")
	require.Empty(t, errs)
	line1, col1 := vals[0].Pos.LineCol()
	line2, col2 := vals[1].Pos.LineCol()
	require.Equal(t, 1, line1)
	require.Equal(t, 1, col1)
	require.Equal(t, 2, line2)
	require.Equal(t, 1, col2)
}

func TestScanInstructionMnemonicsAndTypeKeywords(t *testing.T) {
	toks, _, errs := scanAll(t, `ADD CMP_GE i32 ptr`)
	require.Empty(t, errs)
	require.True(t, toks[0].IsInstruction())
	require.True(t, toks[1].IsInstruction())
	require.True(t, toks[2].IsTypeKeyword())
	require.True(t, toks[3].IsTypeKeyword())
}
