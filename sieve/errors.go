package sieve

import "fmt"

// LexError reports a malformed token: an unterminated string, a bad
// multiline literal marker, or a character the lexer does not recognize.
type LexError struct {
	Line    int
	Column  int
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// ParseError reports a script that fails to satisfy the grammar or the
// command registry's argument schema: an unknown command, a required
// argument missing, a tag used without the extension it depends on, or an
// elsif/else with no preceding if/elsif.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}
