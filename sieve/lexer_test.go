package sieve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func tokenizeOK(t *testing.T, src string) []Token {
	t.Helper()
	toks, err := newLexer(src).tokenize()
	require.NoErrorf(t, err, "tokenize(%q)", src)
	return toks
}

func TestLexerStringEscapes(t *testing.T) {
	toks := tokenizeOK(t, `"a \"quoted\" \\ word"`)
	require.Len(t, toks, 2)
	require.Equal(t, TokenString, toks[0].Kind)
	require.Equal(t, `a "quoted" \ word`, toks[0].Value)
}

func TestLexerUnterminatedStringIsLexError(t *testing.T) {
	_, err := newLexer(`"unterminated`).tokenize()
	require.Error(t, err)
	require.IsType(t, &LexError{}, err)
}

func TestLexerBareNewlineInStringIsLexError(t *testing.T) {
	_, err := newLexer("\"line one\nline two\"").tokenize()
	require.Error(t, err, "expected LexError for bare newline in quoted string")
}

func TestLexerUnterminatedBracketComment(t *testing.T) {
	_, err := newLexer("/* never closes").tokenize()
	require.Error(t, err, "expected LexError for unterminated bracket comment")
}

func TestLexerBracketCommentDropped(t *testing.T) {
	toks := tokenizeOK(t, "stop /* skip this */ ;")
	require.Len(t, toks, 3)
	require.Equal(t, TokenIdentifier, toks[0].Kind)
	require.Equal(t, TokenSemicolon, toks[1].Kind)
}

func TestLexerTagToken(t *testing.T) {
	toks := tokenizeOK(t, `:comparator`)
	require.Equal(t, TokenTag, toks[0].Kind)
	require.Equal(t, "comparator", toks[0].Value)
}

func TestLexerNumberSuffixCaseFolded(t *testing.T) {
	toks := tokenizeOK(t, `10k`)
	require.Equal(t, TokenNumber, toks[0].Kind)
	require.Equal(t, "10K", toks[0].Value)
}

func TestLexerInvalidNumberSuffixIsLexError(t *testing.T) {
	_, err := newLexer(`10x`).tokenize()
	require.Error(t, err, "expected LexError for invalid numeric suffix")
}

func TestLexerPunctuation(t *testing.T) {
	toks := tokenizeOK(t, `[](){},;`)
	kinds := []TokenKind{
		TokenLeftBracket, TokenRightBracket, TokenLeftParen, TokenRightParen,
		TokenLeftBrace, TokenRightBrace, TokenComma, TokenSemicolon, TokenEOF,
	}
	require.Len(t, toks, len(kinds))
	for i, k := range kinds {
		require.Equalf(t, k, toks[i].Kind, "token %d", i)
	}
}

func TestLexerLineCommentDropped(t *testing.T) {
	toks := tokenizeOK(t, "stop; # trailing comment\n")
	for _, tok := range toks {
		require.NotEqual(t, TokenComment, tok.Kind, "expected comments to be dropped by tokenize()")
	}
}
