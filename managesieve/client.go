// Package managesieve implements a client for the ManageSieve remote
// script-management protocol (RFC 5804): connect, negotiate STARTTLS,
// authenticate via SASL, and run the mandatory command set against a
// server. It is grounded on the teacher's server-side implementation
// (server/managesieve/session.go, capabilities.go) read backwards: the
// same line/literal framing and capability shape, driven from the dialing
// side instead of the accepting side.
package managesieve

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/migadu/sievekit/internal/metrics"
	"github.com/migadu/sievekit/sievelog"
)

// State is one node of the connection state machine in SPEC_FULL §4.6.
type State int

const (
	StateDisconnected State = iota
	StateGreeted
	StateAuthenticated
	StateLoggedOut
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateGreeted:
		return "greeted"
	case StateAuthenticated:
		return "authenticated"
	case StateLoggedOut:
		return "logged_out"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Options configures a Client. The zero value is usable: it dials with a
// 10s timeout, applies no TLS config, and discards logs and metrics.
type Options struct {
	DialTimeout    time.Duration
	CommandTimeout time.Duration
	TLSConfig      *tls.Config
	Logger         *slog.Logger
	Metrics        *metrics.Recorder
}

// Client is a single ManageSieve session. It is not safe for concurrent
// use (SPEC_FULL §5): every method blocks the calling goroutine until the
// tagged completion line for that command has been read.
type Client struct {
	t     *transport
	state State
	caps  Capabilities
	host  string

	log *slog.Logger
	m   *metrics.Recorder
}

// Dial opens a TCP connection to addr, reads the greeting, and parses the
// initial capability set. On return the Client is in StateGreeted.
func Dial(ctx context.Context, addr string, opts Options) (*Client, error) {
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	t, err := dial(ctx, addr, dialTimeout)
	if err != nil {
		return nil, err
	}
	t.commandTimeout = opts.CommandTimeout

	log := opts.Logger
	if log == nil {
		log = sievelog.Discard()
	}
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.NoopRecorder()
	}

	host := addr
	if i := strings.LastIndexByte(addr, ':'); i >= 0 {
		host = addr[:i]
	}

	c := &Client{t: t, state: StateDisconnected, host: host, log: log, m: rec}

	caps, final, err := readCapabilities(t)
	if err != nil {
		c.state = StateError
		return nil, err
	}
	if final.Status != "OK" {
		c.state = StateError
		return nil, &ProtocolError{Message: "unexpected greeting completion: " + final.Status}
	}
	c.caps = caps
	c.state = StateGreeted
	c.log.Debug("connected", "addr", addr, "sasl", caps.SASLMechanisms(), "sieve", caps.SieveExtensions())
	return c, nil
}

// State reports the client's current state machine node.
func (c *Client) State() State { return c.state }

// Capabilities returns the most recently parsed capability set (from the
// greeting, or the last STARTTLS/CAPABILITY re-announce).
func (c *Client) Capabilities() Capabilities { return c.caps }

// Close releases the underlying connection without sending LOGOUT.
func (c *Client) Close() error {
	return c.t.close()
}

// StartTLS performs the TLS upgrade, then re-reads the capability
// announcement RFC 5804 requires after the handshake. It returns a
// ProtocolError without sending anything if the server did not advertise
// STARTTLS.
func (c *Client) StartTLS(ctx context.Context) error {
	if c.state != StateGreeted {
		return &ProtocolError{Message: fmt.Sprintf("STARTTLS not valid in state %s", c.state)}
	}
	if !c.caps.Has("STARTTLS") {
		return &ProtocolError{Message: "server did not advertise STARTTLS"}
	}
	if err := c.t.writeLine("STARTTLS"); err != nil {
		c.state = StateError
		return err
	}
	line, err := c.t.readLine()
	if err != nil {
		c.state = StateError
		return err
	}
	final, ok := parseFinalLine(line)
	if !ok || final.Status != "OK" {
		return &ServerError{Command: "STARTTLS", Code: final.Code, Message: final.Message}
	}

	cfg := c.tlsConfigFor()
	if err := c.t.startTLS(cfg); err != nil {
		c.state = StateError
		return err
	}

	caps, capFinal, err := readCapabilities(c.t)
	if err != nil {
		c.state = StateError
		return err
	}
	if capFinal.Status != "OK" {
		c.state = StateError
		return &ProtocolError{Message: "unexpected post-STARTTLS completion: " + capFinal.Status}
	}
	c.caps = caps
	return nil
}

func (c *Client) tlsConfigFor() *tls.Config {
	return &tls.Config{ServerName: c.host}
}

// Authenticate runs the SASL exchange described in SPEC_FULL §4.6. An
// empty mechanism selects the strongest one both the caller can perform
// and the server advertised. On failure the client stays in StateGreeted
// so the caller may retry.
func (c *Client) Authenticate(ctx context.Context, username, password, mechanism string) error {
	return c.authenticate(username, password, "", mechanism)
}

// AuthenticateOAuthBearer runs SASL OAUTHBEARER with the given bearer
// token in place of a password.
func (c *Client) AuthenticateOAuthBearer(ctx context.Context, username, token string) error {
	return c.authenticate(username, "", token, "OAUTHBEARER")
}

func (c *Client) authenticate(username, password, token, mechanism string) error {
	if c.state != StateGreeted {
		return &ProtocolError{Message: fmt.Sprintf("AUTHENTICATE not valid in state %s", c.state)}
	}
	if mechanism == "" {
		mechanism = preferredMechanism(c.caps.SASLMechanisms())
	}
	mechanism = strings.ToUpper(mechanism)
	start := time.Now()

	mech, err := newMechanism(mechanism, username, password, token, c.host)
	if err != nil {
		c.m.AuthAttemptsTotal.WithLabelValues(mechanism, "unsupported").Inc()
		return err
	}

	ir, err := mech.Start()
	if err != nil {
		c.m.AuthAttemptsTotal.WithLabelValues(mechanism, "error").Inc()
		return &AuthError{Mechanism: mechanism, Message: err.Error()}
	}

	cmd := fmt.Sprintf(`AUTHENTICATE "%s"`, mechanism)
	if ir != nil {
		cmd += " " + literalOrQuotedBase64(ir)
	}
	c.log.Debug("client command", "line", maskSensitiveCommand(cmd))
	if err := c.t.writeLine(cmd); err != nil {
		c.state = StateError
		return err
	}

	final, err := c.runSASLLoop(mech, mechanism)
	c.m.AuthDuration.WithLabelValues(mechanism).Observe(time.Since(start).Seconds())
	if err != nil {
		c.m.AuthAttemptsTotal.WithLabelValues(mechanism, "failure").Inc()
		return err
	}
	if final.Status != "OK" {
		c.m.AuthAttemptsTotal.WithLabelValues(mechanism, "failure").Inc()
		return &AuthError{Mechanism: mechanism, Message: final.Message}
	}
	c.m.AuthAttemptsTotal.WithLabelValues(mechanism, "success").Inc()
	c.state = StateAuthenticated
	return nil
}

func (c *Client) runSASLLoop(mech saslMechanism, mechanism string) (finalResponse, error) {
	for {
		line, err := c.t.readAtomLine()
		if err != nil {
			c.state = StateError
			return finalResponse{}, err
		}
		if final, ok := parseFinalLine(line); ok {
			return final, nil
		}
		challenge, decodeErr := decodeChallenge(line)
		if decodeErr != nil {
			c.state = StateError
			return finalResponse{}, &ProtocolError{Message: "malformed SASL challenge: " + decodeErr.Error()}
		}
		resp, err := mech.Next(challenge)
		if err != nil {
			c.t.writeLine("*")
			c.t.readLine()
			return finalResponse{}, &AuthError{Mechanism: mechanism, Message: err.Error()}
		}
		if err := c.t.writeLine(literalOrQuotedBase64(resp)); err != nil {
			c.state = StateError
			return finalResponse{}, err
		}
	}
}

func decodeChallenge(line string) ([]byte, error) {
	trimmed := strings.Trim(strings.TrimSpace(line), `"`)
	if trimmed == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(trimmed)
}

func literalOrQuotedBase64(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	if len(encoded) == 0 {
		return `""`
	}
	if needsLiteral(encoded) {
		return fmt.Sprintf("{%d+}\r\n%s", len(encoded), encoded)
	}
	return `"` + encoded + `"`
}

// Capability re-issues CAPABILITY and refreshes the cached capability set.
func (c *Client) Capability() (Capabilities, error) {
	if err := c.t.writeLine("CAPABILITY"); err != nil {
		c.state = StateError
		return nil, err
	}
	caps, final, err := readCapabilities(c.t)
	if err != nil {
		c.state = StateError
		return nil, err
	}
	if final.Status != "OK" {
		return nil, &ServerError{Command: "CAPABILITY", Code: final.Code, Message: final.Message}
	}
	c.caps = caps
	return caps, nil
}

// HaveSpace asks the server whether a script of the given size would fit
// under the named name; returns false with no error on a NO completion.
func (c *Client) HaveSpace(name string, size int64) (bool, error) {
	cmd := fmt.Sprintf("HAVESPACE %s %d", quoteString(name), size)
	final, err := c.runSimple("HAVESPACE", cmd)
	if err != nil {
		if _, ok := err.(*ServerError); ok {
			return false, nil
		}
		return false, err
	}
	return final.Status == "OK", nil
}

// PutScript uploads script under name, replacing any existing script with
// that name.
func (c *Client) PutScript(name, script string) error {
	cmd := fmt.Sprintf("PUTSCRIPT %s %s", quoteString(name), quoteString(script))
	c.m.ScriptBytesSent.WithLabelValues("PUTSCRIPT").Add(float64(len(script)))
	_, err := c.runSimple("PUTSCRIPT", cmd)
	return err
}

// CheckScript asks the server to validate script without storing it.
func (c *Client) CheckScript(script string) error {
	cmd := fmt.Sprintf("CHECKSCRIPT %s", quoteString(script))
	c.m.ScriptBytesSent.WithLabelValues("CHECKSCRIPT").Add(float64(len(script)))
	_, err := c.runSimple("CHECKSCRIPT", cmd)
	return err
}

// ListScripts returns the name of the active script (empty if none) and
// the full list of script names.
func (c *Client) ListScripts() (active string, names []string, err error) {
	if err := c.t.writeLine("LISTSCRIPTS"); err != nil {
		c.state = StateError
		return "", nil, err
	}
	lines, final, err := c.t.readResponse()
	if err != nil {
		c.state = StateError
		return "", nil, err
	}
	if final.Status != "OK" {
		return "", nil, &ServerError{Command: "LISTSCRIPTS", Code: final.Code, Message: final.Message}
	}
	for _, line := range lines {
		name, isActive, perr := parseListScriptsLine(line)
		if perr != nil {
			c.state = StateError
			return "", nil, perr
		}
		names = append(names, name)
		if isActive {
			active = name
		}
	}
	return active, names, nil
}

func parseListScriptsLine(line string) (name string, active bool, err error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, `"`) {
		return "", false, &ProtocolError{Message: "malformed LISTSCRIPTS entry: " + line}
	}
	end := 1
	for end < len(line) {
		if line[end] == '\\' {
			end += 2
			continue
		}
		if line[end] == '"' {
			break
		}
		end++
	}
	if end >= len(line) {
		return "", false, &ProtocolError{Message: "unterminated LISTSCRIPTS entry: " + line}
	}
	strs, perr := parseQuotedStrings(line[:end+1])
	if perr != nil || len(strs) != 1 {
		return "", false, &ProtocolError{Message: "malformed LISTSCRIPTS entry: " + line}
	}
	rest := strings.TrimSpace(line[end+1:])
	return strs[0], strings.EqualFold(rest, "ACTIVE"), nil
}

// GetScript retrieves the named script's contents.
func (c *Client) GetScript(name string) (string, error) {
	if err := c.t.writeLine("GETSCRIPT " + quoteString(name)); err != nil {
		c.state = StateError
		return "", err
	}
	lines, final, err := c.t.readResponse()
	if err != nil {
		c.state = StateError
		return "", err
	}
	if final.Status != "OK" {
		return "", &ServerError{Command: "GETSCRIPT", Code: final.Code, Message: final.Message}
	}
	if len(lines) == 0 {
		return "", nil
	}
	return lines[0], nil
}

// SetActive marks name as the active script, or deactivates the current
// active script when name is empty.
func (c *Client) SetActive(name string) error {
	cmd := "SETACTIVE " + quoteString(name)
	_, err := c.runSimple("SETACTIVE", cmd)
	return err
}

// DeleteScript removes the named script.
func (c *Client) DeleteScript(name string) error {
	cmd := "DELETESCRIPT " + quoteString(name)
	_, err := c.runSimple("DELETESCRIPT", cmd)
	return err
}

// RenameScript renames a script, using the native RENAMESCRIPT command if
// the server advertises RENAME, or simulating it otherwise per SPEC_FULL
// §4.6: LISTSCRIPTS, GETSCRIPT old, PUTSCRIPT new, SETACTIVE new (if old
// was active), DELETESCRIPT old. A failed PUTSCRIPT stops the sequence
// with nothing further sent; a failed SETACTIVE is rolled back with
// DELETESCRIPT new.
func (c *Client) RenameScript(oldName, newName string) error {
	if c.caps.Has("RENAME") {
		cmd := fmt.Sprintf("RENAMESCRIPT %s %s", quoteString(oldName), quoteString(newName))
		_, err := c.runSimple("RENAMESCRIPT", cmd)
		return err
	}
	return c.simulateRename(oldName, newName)
}

func (c *Client) simulateRename(oldName, newName string) error {
	active, names, err := c.ListScripts()
	if err != nil {
		return err
	}
	found := false
	for _, n := range names {
		if n == oldName {
			found = true
			break
		}
	}
	if !found {
		return &ServerError{Command: "RENAMESCRIPT", Message: fmt.Sprintf("no such script %q", oldName)}
	}
	wasActive := active == oldName

	body, err := c.GetScript(oldName)
	if err != nil {
		return err
	}
	if err := c.PutScript(newName, body); err != nil {
		return err
	}
	if wasActive {
		if err := c.SetActive(newName); err != nil {
			c.DeleteScript(newName)
			return err
		}
	}
	if err := c.DeleteScript(oldName); err != nil {
		return err
	}
	return nil
}

// Noop pings the server; some servers accept a tag for round-trip
// correlation but this client always sends the bareword form.
func (c *Client) Noop() error {
	_, err := c.runSimple("NOOP", "NOOP")
	return err
}

// Logout sends LOGOUT and transitions to StateLoggedOut.
func (c *Client) Logout() error {
	if err := c.t.writeLine("LOGOUT"); err != nil {
		c.state = StateError
		return err
	}
	line, err := c.t.readLine()
	if err != nil {
		c.state = StateError
		return err
	}
	if final, ok := parseFinalLine(line); ok && final.Status == "BYE" {
		c.state = StateLoggedOut
		return c.t.close()
	}
	c.state = StateLoggedOut
	return c.t.close()
}

// runSimple sends cmd, reads (and discards) any untagged lines, and
// reports a ServerError for a NO completion.
func (c *Client) runSimple(name, cmd string) (finalResponse, error) {
	start := time.Now()
	if err := c.t.writeLine(cmd); err != nil {
		c.state = StateError
		return finalResponse{}, err
	}
	_, final, err := c.t.readResponse()
	status := "success"
	defer func() {
		c.m.CommandsTotal.WithLabelValues(name, status).Inc()
		c.m.CommandDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()
	if err != nil {
		c.state = StateError
		status = "error"
		return finalResponse{}, err
	}
	if final.Status != "OK" {
		status = "no"
		return final, &ServerError{Command: name, Code: final.Code, Message: final.Message}
	}
	return final, nil
}

// readResponse consumes untagged lines (resolving any literal payloads)
// up to and including the tagged completion line.
func (t *transport) readResponse() ([]string, finalResponse, error) {
	var lines []string
	for {
		line, err := t.readLine()
		if err != nil {
			return nil, finalResponse{}, err
		}
		if final, ok := parseFinalLine(line); ok {
			return lines, final, nil
		}
		if n, ok := literalLength(line); ok {
			payload, err := t.readLiteral(n)
			if err != nil {
				return nil, finalResponse{}, err
			}
			lines = append(lines, payload)
			continue
		}
		lines = append(lines, line)
	}
}
