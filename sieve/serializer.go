package sieve

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

const indentUnit = "    "

// ToSieve renders the script as canonical Sieve text: a leading require
// listing the sorted union of required capabilities, four-space
// indentation per nesting level, and tags rendered before positional
// arguments in schema-declared order.
func (s *Script) ToSieve() string {
	var b strings.Builder
	if len(s.RequiredCapabilities) > 0 {
		caps := make([]string, 0, len(s.RequiredCapabilities))
		for c := range s.RequiredCapabilities {
			caps = append(caps, c)
		}
		sort.Strings(caps)
		b.WriteString("require ")
		writeStringList(&b, caps)
		b.WriteString(";\n")
	}
	for _, cmd := range s.Body {
		if cmd.Name == "require" {
			continue
		}
		writeCommand(&b, cmd, 0)
	}
	return b.String()
}

// Dump writes a human-readable indented tree, for debugging and tooling
// built atop the AST (SPEC_FULL §4.4).
func (s *Script) Dump(w io.Writer) {
	for _, cmd := range s.Body {
		dumpCommand(w, cmd, 0)
	}
}

func dumpCommand(w io.Writer, cmd *Command, depth int) {
	fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), cmd.Name)
	for _, arg := range cmd.Arguments {
		if arg.Test != nil {
			dumpCommand(w, arg.Test, depth+1)
		}
		for _, t := range arg.Tests {
			dumpCommand(w, t, depth+1)
		}
	}
	for _, child := range cmd.Children {
		dumpCommand(w, child, depth+1)
	}
}

func writeCommand(b *strings.Builder, cmd *Command, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	b.WriteString(indent)
	b.WriteString(cmd.Name)
	writeArguments(b, cmd)

	if cmd.Def.AcceptsBlock {
		b.WriteString(" {\n")
		for _, child := range cmd.Children {
			writeCommand(b, child, depth+1)
		}
		b.WriteString(indent)
		b.WriteString("}\n")
	} else {
		b.WriteString(";\n")
	}
}

func writeArguments(b *strings.Builder, cmd *Command) {
	for _, spec := range cmd.Def.Args {
		if !spec.isTagGroup() {
			continue
		}
		if arg, ok := cmd.Argument(spec.Name); ok {
			b.WriteString(" ")
			writeArgument(b, arg)
		}
	}
	for _, spec := range cmd.Def.Args {
		if spec.isTagGroup() {
			continue
		}
		if arg, ok := cmd.Argument(spec.Name); ok {
			b.WriteString(" ")
			writeArgument(b, arg)
		}
	}
}

func writeArgument(b *strings.Builder, arg Argument) {
	switch {
	case arg.Tag != "":
		b.WriteString(arg.Tag)
		if arg.Extra != "" {
			b.WriteString(" ")
			if isNumericLiteral(arg.Extra) {
				b.WriteString(arg.Extra)
			} else {
				writeStringValue(b, arg.Extra)
			}
		} else if arg.ExtraList != nil {
			b.WriteString(" ")
			writeStringList(b, arg.ExtraList)
		}
	case arg.Test != nil:
		writeTest(b, arg.Test)
	case arg.Tests != nil:
		b.WriteString("(")
		for i, t := range arg.Tests {
			if i > 0 {
				b.WriteString(", ")
			}
			writeTest(b, t)
		}
		b.WriteString(")")
	case arg.List != nil:
		writeStringList(b, arg.List)
	default:
		if arg.Spec.acceptsType(ArgNumber) && arg.String == "" {
			b.WriteString(strconv.FormatInt(arg.Number, 10))
		} else {
			writeStringValue(b, arg.String)
		}
	}
}

// writeStringValue renders s as a quoted string, or as a `text:` multiline
// literal when s contains a newline (only producible by parsing one) —
// quoted strings can never carry a bare newline (lexer.go rejects it), so
// this is the only way to round-trip such a value.
func writeStringValue(b *strings.Builder, s string) {
	if strings.Contains(s, "\n") {
		writeMultiline(b, s)
		return
	}
	writeQuoted(b, s)
}

// writeMultiline emits a `text:` literal, dot-stuffing any body line that
// begins with "." so the lexer's dot-unstuffing recovers the original text.
func writeMultiline(b *strings.Builder, s string) {
	b.WriteString("text:\n")
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, ".") {
			b.WriteString(".")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(".\n")
}

func writeTest(b *strings.Builder, cmd *Command) {
	b.WriteString(cmd.Name)
	writeArguments(b, cmd)
}

// isNumericLiteral reports whether s is a bare Sieve number token (digits
// with an optional K/M/G quantifier suffix), so it can be emitted
// unquoted rather than as a string literal.
func isNumericLiteral(s string) bool {
	if s == "" {
		return false
	}
	digits := s
	switch s[len(s)-1] {
	case 'K', 'M', 'G':
		digits = s[:len(s)-1]
	}
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func writeStringList(b *strings.Builder, list []string) {
	b.WriteString("[")
	for i, s := range list {
		if i > 0 {
			b.WriteString(", ")
		}
		writeQuoted(b, s)
	}
	b.WriteString("]")
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteString(`"`)
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteString(`"`)
}
