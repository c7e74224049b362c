package managesieve

import (
	"strconv"
	"strings"
)

// finalResponse is the tagged completion line ending every ManageSieve
// response: OK, NO, or BYE, optionally carrying a parenthesized response
// code and/or a human-readable quoted string (SPEC_FULL §4.6).
type finalResponse struct {
	Status  string // "OK", "NO", or "BYE"
	Code    string // e.g. "AUTH-TOO-WEAK", without parentheses
	Message string
}

// parseFinalLine reports whether line is a tagged completion line and, if
// so, its parsed form.
func parseFinalLine(line string) (finalResponse, bool) {
	trimmed := strings.TrimSpace(line)
	upper := strings.ToUpper(trimmed)
	var status string
	switch {
	case upper == "OK" || strings.HasPrefix(upper, "OK "):
		status = "OK"
	case upper == "NO" || strings.HasPrefix(upper, "NO "):
		status = "NO"
	case upper == "BYE" || strings.HasPrefix(upper, "BYE "):
		status = "BYE"
	default:
		return finalResponse{}, false
	}

	rest := strings.TrimSpace(trimmed[len(status):])
	resp := finalResponse{Status: status}

	if strings.HasPrefix(rest, "(") {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return finalResponse{}, false
		}
		resp.Code = rest[1:end]
		rest = strings.TrimSpace(rest[end+1:])
	}

	if rest != "" {
		strs, err := parseQuotedStrings(rest)
		if err == nil && len(strs) > 0 {
			resp.Message = strs[0]
		} else {
			resp.Message = strings.Trim(rest, `"`)
		}
	}
	return resp, true
}

// parseQuotedStrings extracts the sequence of double-quoted tokens on a
// response line, e.g. `"NAME" "VALUE"`, honoring backslash escapes.
func parseQuotedStrings(line string) ([]string, error) {
	var out []string
	i := 0
	for i < len(line) {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= len(line) {
			break
		}
		if line[i] != '"' {
			return nil, &ProtocolError{Message: "expected quoted string in response line: " + line}
		}
		i++
		var b strings.Builder
		closed := false
		for i < len(line) {
			c := line[i]
			if c == '\\' && i+1 < len(line) {
				b.WriteByte(line[i+1])
				i += 2
				continue
			}
			if c == '"' {
				closed = true
				i++
				break
			}
			b.WriteByte(c)
			i++
		}
		if !closed {
			return nil, &ProtocolError{Message: "unterminated quoted string in response line: " + line}
		}
		out = append(out, b.String())
	}
	return out, nil
}

// parseNumber parses a bare decimal integer, such as the value of the
// MAXSCRIPTSIZE capability.
func parseNumber(s string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
