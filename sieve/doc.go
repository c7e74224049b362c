// Package sieve implements a lexer, command registry, recursive-descent
// parser, and canonical serializer for the Sieve mail filtering language
// (RFC 5228) plus the extensions listed in the command registry: copy
// (RFC 3894), envelope, body, date, relational, regex, subaddress,
// mailbox, mboxmetadata, imap4flags (RFC 5232), variables (RFC 5229),
// vacation (RFC 5230), reject/ereject.
//
// Parsing is single-pass and produces a fully validated tree: unknown
// commands, undeclared tags, missing required arguments, and uses of an
// extension not named in a require statement are all rejected at parse
// time rather than deferred to a later validation pass.
//
//	script, err := sieve.Parse(text)
//	if err != nil {
//		var perr *sieve.ParseError
//		if errors.As(err, &perr) {
//			log.Fatalf("line %d: %s", perr.Line, perr.Message)
//		}
//	}
//	fmt.Print(script.ToSieve())
//
// The command registry (DefaultRegistry) is a package-level table
// populated at init() with the built-in commands and tests; Register adds
// or replaces a definition. Callers that want an isolated table instead
// of mutating global state can build one with NewRegistry and pass it to
// ParseWithRegistry.
//
// This package does not evaluate Sieve scripts against mail and does not
// implement the encoded-character extension (RFC 5228 §2.4.2.4).
package sieve
