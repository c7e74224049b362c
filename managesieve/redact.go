package managesieve

import "strings"

// maskSensitiveCommand redacts credential-bearing arguments from a raw
// command line before it is logged, mirroring helpers.MaskSensitive's use
// in session.go (`helpers.MaskSensitive(line, command, "AUTHENTICATE",
// "LOGIN")`) on the server side: AUTHENTICATE and LOGIN lines carry SASL
// payloads or plaintext passwords and must never reach a debug log intact.
func maskSensitiveCommand(line string) string {
	trimmed := strings.TrimSpace(line)
	upper := strings.ToUpper(trimmed)
	for _, sensitive := range []string{"AUTHENTICATE", "LOGIN"} {
		if strings.HasPrefix(upper, sensitive) {
			if idx := strings.IndexByte(trimmed, ' '); idx >= 0 {
				return trimmed[:idx] + " <redacted>"
			}
			return trimmed
		}
	}
	return line
}
