package sieve

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializeSortsRequireCapabilities(t *testing.T) {
	s := mustParse(t, `require ["vacation", "fileinto"];`)
	out := s.ToSieve()
	require.True(t, strings.HasPrefix(out, `require ["fileinto", "vacation"];`), "expected sorted capability list, got %q", out)
}

func TestSerializeOmitsExplicitRequireCommand(t *testing.T) {
	s := mustParse(t, `require ["fileinto"];
fileinto "X";`)
	out := s.ToSieve()
	require.Equal(t, 1, strings.Count(out, "require"), "expected exactly one require line, got %q", out)
}

func TestSerializeIndentsNestedBlocks(t *testing.T) {
	s := mustParse(t, `require ["fileinto"];
if true {
    fileinto "X";
}`)
	out := s.ToSieve()
	require.Contains(t, out, "\n    fileinto \"X\";\n")
}

func TestSerializeTagsBeforePositionals(t *testing.T) {
	s := mustParse(t, `require ["fileinto", "copy"];
fileinto :copy "X";`)
	out := s.ToSieve()
	// Skip the require line, which also contains "fileinto".
	idx := strings.Index(out, "\nfileinto ") + 1
	line := out[idx:]
	line = line[:strings.Index(line, "\n")]
	require.Contains(t, line, ":copy")
	require.Less(t, strings.Index(line, ":copy"), strings.Index(line, `"X"`), "expected tag to precede positional argument, got %q", line)
}

func TestSerializeIsIdempotent(t *testing.T) {
	s := mustParse(t, `require ["fileinto"];
if header :is "Sender" "a@b" {
    fileinto "X";
}`)
	first := s.ToSieve()
	second := mustParse(t, first).ToSieve()
	require.Equal(t, first, second, "expected serialization to be idempotent")
}

func TestSerializeNumericTagExtraUnquoted(t *testing.T) {
	s := mustParse(t, `require ["vacation"];
vacation :days 10 "away";`)
	out := s.ToSieve()
	require.Contains(t, out, ":days 10 ")
}

func TestSerializeSizeLimitWithSuffix(t *testing.T) {
	s := mustParse(t, `if size :over 10K { discard; }`)
	out := s.ToSieve()
	require.Contains(t, out, ":over 10240")
}

func TestSerializeAnyofNestedTests(t *testing.T) {
	s := mustParse(t, `if anyof (true, false) { stop; }`)
	out := s.ToSieve()
	require.Contains(t, out, "anyof (true, false)")
}

func TestSerializeEmptyScriptHasNoRequireLine(t *testing.T) {
	s := mustParse(t, `stop;`)
	out := s.ToSieve()
	require.NotContains(t, out, "require")
}

func TestSerializeMultilineLiteralRoundTrips(t *testing.T) {
	original := "require [\"fileinto\"];\nif true {\n    fileinto text:\r\nhello\r\n..world\r\n.\r\n;\n}"
	s1 := mustParse(t, original)
	out := s1.ToSieve()
	require.Contains(t, out, "text:", "expected serializer to emit a multiline literal, got %q", out)
	require.Contains(t, out, "\n..world\n", "expected dot-stuffed body line, got %q", out)

	s2 := mustParse(t, out)
	require.True(t, scriptsEqual(s1, s2), "round trip mismatch:\nfirst:\n%s\nsecond:\n%s", dumpString(s1), dumpString(s2))

	mailbox, ok := s1.Body[0].Children[0].Argument("mailbox")
	require.True(t, ok)
	require.Equal(t, "hello\n.world", mailbox.String)
}
