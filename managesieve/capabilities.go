package managesieve

import "strings"

// Capabilities is the key/value set announced by the server in its
// greeting and re-announced after STARTTLS, per SPEC_FULL §4.6: keys such
// as IMPLEMENTATION, SASL, SIEVE, STARTTLS, NOTIFY, MAXREDIRECTS,
// LANGUAGE, VERSION, UNAUTHENTICATE, RENAME. A key present with no value
// (e.g. bare "STARTTLS") maps to the empty string, still distinguishable
// from "absent" via Has.
type Capabilities map[string]string

// Has reports whether the server announced the named capability at all.
func (c Capabilities) Has(name string) bool {
	_, ok := c[strings.ToUpper(name)]
	return ok
}

// SASLMechanisms returns the space-separated SASL value split into
// individual mechanism names, upper-cased.
func (c Capabilities) SASLMechanisms() []string {
	return splitUpper(c["SASL"])
}

// SieveExtensions returns the space-separated SIEVE value split into
// individual extension names.
func (c Capabilities) SieveExtensions() []string {
	v, ok := c["SIEVE"]
	if !ok {
		return nil
	}
	return strings.Fields(v)
}

// MaxScriptSize returns the server-advertised MAXSCRIPTSIZE, if any.
func (c Capabilities) MaxScriptSize() (int64, bool) {
	v, ok := c["MAXSCRIPTSIZE"]
	if !ok {
		return 0, false
	}
	return parseNumber(v)
}

func splitUpper(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.ToUpper(f)
	}
	return out
}

// readCapabilities consumes the untagged capability lines that follow a
// connection, STARTTLS, or CAPABILITY command, up to and including the
// tagged completion line, per the greeting format in SPEC_FULL §8 scenario 5:
//
//	"IMPLEMENTATION" "X"
//	"SASL" "PLAIN LOGIN"
//	"SIEVE" "fileinto"
//	OK
func readCapabilities(t *transport) (Capabilities, finalResponse, error) {
	caps := make(Capabilities)
	for {
		line, err := t.readLine()
		if err != nil {
			return nil, finalResponse{}, err
		}
		if final, ok := parseFinalLine(line); ok {
			return caps, final, nil
		}
		if n, ok := literalLength(line); ok {
			// A capability line ending in a literal marker: the value is
			// the literal payload; re-parse the key from the prefix.
			prefixStrs, perr := parseQuotedStrings(line[:strings.LastIndexByte(line, '{')])
			if perr != nil || len(prefixStrs) != 1 {
				return nil, finalResponse{}, &ProtocolError{Message: "malformed capability literal line: " + line}
			}
			value, err := t.readLiteral(n)
			if err != nil {
				return nil, finalResponse{}, err
			}
			caps[strings.ToUpper(prefixStrs[0])] = value
			continue
		}
		strs, err := parseQuotedStrings(line)
		if err != nil {
			return nil, finalResponse{}, err
		}
		switch len(strs) {
		case 1:
			caps[strings.ToUpper(strs[0])] = ""
		case 2:
			caps[strings.ToUpper(strs[0])] = strs[1]
		default:
			return nil, finalResponse{}, &ProtocolError{Message: "malformed capability line: " + line}
		}
	}
}
