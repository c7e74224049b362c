package sieve

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, text string) *Script {
	t.Helper()
	s, err := Parse(text)
	require.NoErrorf(t, err, "Parse(%q)", text)
	return s
}

func TestParseRequireOnly(t *testing.T) {
	s := mustParse(t, `require ["fileinto"];`)
	require.True(t, s.Requires("fileinto"))
	require.Empty(t, s.Body)
	require.Contains(t, s.ToSieve(), `require ["fileinto"];`)
}

func TestParseMissingSemicolonIsParseError(t *testing.T) {
	_, err := Parse(`require ["fileinto"]`)
	require.Error(t, err)
	var perr *ParseError
	require.True(t, AsParseError(err, &perr), "expected *ParseError, got %T: %v", err, err)
	require.Equal(t, 1, perr.Line)
	require.True(t, strings.Contains(perr.Message, "semicolon") || strings.Contains(perr.Message, ";"),
		"expected message to mention the missing semicolon, got %q", perr.Message)
}

func TestParseIfFileintoRequiresCapability(t *testing.T) {
	script := `require ["fileinto"];
if header :is "Sender" "a@b" {
    fileinto "X";
}`
	s := mustParse(t, script)
	require.Len(t, s.Body, 1)
	ifCmd := s.Body[0]
	require.Equal(t, "if", ifCmd.Name)
	testArg, ok := ifCmd.Argument("test")
	require.True(t, ok)
	require.NotNil(t, testArg.Test)
	require.Equal(t, "header", testArg.Test.Name)
	require.Len(t, ifCmd.Children, 1)
	require.Equal(t, "fileinto", ifCmd.Children[0].Name)
	mailbox, ok := ifCmd.Children[0].Argument("mailbox")
	require.True(t, ok)
	require.Equal(t, "X", mailbox.String)
}

func TestParseFileintoWithoutRequireFails(t *testing.T) {
	_, err := Parse(`fileinto "X";`)
	require.Error(t, err)
	var perr *ParseError
	require.True(t, AsParseError(err, &perr), "expected *ParseError, got %T", err)
	require.Contains(t, perr.Message, "fileinto")
}

func TestParseUnknownCommand(t *testing.T) {
	_, err := Parse(`bogus "x";`)
	require.Error(t, err)
}

func TestParseElsifMustFollowIf(t *testing.T) {
	_, err := Parse(`elsif true { stop; }`)
	require.Error(t, err)
}

func TestParseIfElsifElse(t *testing.T) {
	s := mustParse(t, `if true { stop; } elsif false { discard; } else { keep; }`)
	require.Len(t, s.Body, 3)
	require.Equal(t, "elsif", s.Body[1].Name)
	require.Equal(t, "else", s.Body[2].Name)
}

func TestParseAnyofAllof(t *testing.T) {
	s := mustParse(t, `if anyof (true, false, not true) { stop; }`)
	testArg, _ := s.Body[0].Argument("test")
	require.Equal(t, "anyof", testArg.Test.Name)
	tests, _ := testArg.Test.Argument("tests")
	require.Len(t, tests.Tests, 3)
	require.Equal(t, "not", tests.Tests[2].Name)
}

func TestParseRelationalRequiresExtension(t *testing.T) {
	_, err := Parse(`if header :count "ge" ["2"] "Subject" ["x"] { stop; }`)
	require.Error(t, err, "expected error: :count used without require relational")

	s := mustParse(t, `require ["relational"];
if header :count "ge" "Subject" "2" { stop; }`)
	testArg, _ := s.Body[0].Argument("test")
	mt, ok := testArg.Test.Argument("match-type")
	require.True(t, ok)
	require.Equal(t, ":count", mt.Tag)
	require.Equal(t, "ge", mt.Extra)
}

func TestParseHeaderIsDoesNotConsumeMatchTypeExtra(t *testing.T) {
	s := mustParse(t, `require ["fileinto"];
if header :is "Sender" "a@b" {
    fileinto "X";
}`)
	testArg, _ := s.Body[0].Argument("test")
	mt, ok := testArg.Test.Argument("match-type")
	require.True(t, ok)
	require.Equal(t, ":is", mt.Tag)
	require.Empty(t, mt.Extra, "expected :is to carry no companion argument")
	names, ok := testArg.Test.Argument("header-names")
	require.True(t, ok)
	require.Equal(t, "Sender", names.String)
	keys, ok := testArg.Test.Argument("key-list")
	require.True(t, ok)
	require.Equal(t, "a@b", keys.String)
}

func TestParseSizeWithoutComparatorIsError(t *testing.T) {
	_, err := Parse(`if size 500K { discard; }`)
	require.Error(t, err, "expected error: size requires :over or :under")
}

func TestParseDuplicateMatchTypeTagIsError(t *testing.T) {
	_, err := Parse(`if header :is :contains "Sender" "a@b" { stop; }`)
	require.Error(t, err, "expected error: only one match-type tag may appear")
}

func TestParseHasflagOptionalVariableList(t *testing.T) {
	s := mustParse(t, `require ["imap4flags"];
if hasflag "\\Seen" { stop; }`)
	testArg, _ := s.Body[0].Argument("test")
	flags, ok := testArg.Test.Argument("list-of-flags")
	require.True(t, ok)
	require.Equal(t, `\Seen`, flags.String)
	_, ok = testArg.Test.Argument("variable-list")
	require.False(t, ok, "variable-list should not have been bound")
}

func TestParseVacationDaysNumber(t *testing.T) {
	s := mustParse(t, `require ["vacation"];
vacation :days 7 "I am away";`)
	arg, ok := s.Body[0].Argument("days")
	require.True(t, ok)
	require.Equal(t, "7", arg.Extra)
}

func TestParseNumberSuffix(t *testing.T) {
	s := mustParse(t, `if size :over 10K { discard; }`)
	sizeCmd, _ := s.Body[0].Argument("test")
	limit, ok := sizeCmd.Test.Argument("limit")
	require.True(t, ok)
	require.EqualValues(t, 10*1024, limit.Number)
}

func TestRoundTripSerializeParse(t *testing.T) {
	original := `require ["fileinto"];
if header :is "Sender" "a@b" {
    fileinto "X";
}`
	s1 := mustParse(t, original)
	text := s1.ToSieve()
	s2 := mustParse(t, text)
	require.True(t, scriptsEqual(s1, s2), "round trip mismatch:\nfirst:\n%s\nsecond:\n%s", dumpString(s1), dumpString(s2))
}

func TestLexerLineNumbersAcrossComments(t *testing.T) {
	text := "# comment\nif true { # inline\n    stop; # trailing\n}\n"
	toks, err := newLexer(text).tokenize()
	require.NoError(t, err)
	var stopLine int
	for _, tok := range toks {
		if tok.Kind == TokenIdentifier && tok.Value == "stop" {
			stopLine = tok.Line
		}
	}
	require.Equal(t, 3, stopLine)
}

func TestLexerMultilineDotUnstuffing(t *testing.T) {
	text := "if true { fileinto text:\r\nhello\r\n..world\r\n.\r\n; }"
	toks, err := newLexer(text).tokenize()
	require.NoError(t, err)
	var got string
	for _, tok := range toks {
		if tok.Kind == TokenMultiline {
			got = tok.Value
		}
	}
	require.Equal(t, "hello\n.world", got)
}

// AsParseError is a small errors.As helper kept local to the test file so
// tests read naturally without importing errors just for one call site.
func AsParseError(err error, target **ParseError) bool {
	if pe, ok := err.(*ParseError); ok {
		*target = pe
		return true
	}
	return false
}

func scriptsEqual(a, b *Script) bool {
	if len(a.RequiredCapabilities) != len(b.RequiredCapabilities) {
		return false
	}
	for k := range a.RequiredCapabilities {
		if !b.RequiredCapabilities[k] {
			return false
		}
	}
	return dumpString(a) == dumpString(b)
}

func dumpString(s *Script) string {
	var b strings.Builder
	s.Dump(&b)
	return b.String()
}
