package managesieve

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/migadu/sievekit/internal/metrics"
	"github.com/migadu/sievekit/sievelog"
)

func discardTestLogger() *slog.Logger { return sievelog.Discard() }

func noopTestMetrics() *metrics.Recorder { return metrics.NoopRecorder() }

// fakeServer drives one side of a net.Pipe with a scripted sequence of
// request/response exchanges, standing in for a real ManageSieve server
// the way sievelib's test suite drives a fake socket.
type fakeServer struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func newFakeServer(t *testing.T, server net.Conn) *fakeServer {
	return &fakeServer{t: t, conn: server, r: bufio.NewReader(server)}
}

func (f *fakeServer) sendRaw(s string) {
	f.t.Helper()
	if _, err := f.conn.Write([]byte(s)); err != nil {
		f.t.Fatalf("fake server write failed: %v", err)
	}
}

func (f *fakeServer) readLine() string {
	f.t.Helper()
	line, err := f.r.ReadString('\n')
	if err != nil {
		f.t.Fatalf("fake server read failed: %v", err)
	}
	return strings.TrimRight(line, "\r\n")
}

func dialFakeClient(t *testing.T, greeting string) (*Client, *fakeServer) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	fs := newFakeServer(t, serverConn)

	go fs.sendRaw(greeting)

	type result struct {
		c   *Client
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := dialWithConn(clientConn)
		ch <- result{c, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			t.Fatalf("Dial failed: %v", res.err)
		}
		return res.c, fs
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Dial")
		return nil, nil
	}
}

// dialWithConn adapts Dial's setup logic to an already-established
// net.Conn (net.Pipe has no listener to Dial against).
func dialWithConn(conn net.Conn) (*Client, error) {
	t := &transport{conn: conn, reader: bufio.NewReader(conn), writer: bufio.NewWriter(conn)}
	c := &Client{t: t, state: StateDisconnected, host: "example.com"}
	c.log = discardTestLogger()
	c.m = noopTestMetrics()

	caps, final, err := readCapabilities(t)
	if err != nil {
		return nil, err
	}
	if final.Status != "OK" {
		return nil, &ProtocolError{Message: "bad greeting"}
	}
	c.caps = caps
	c.state = StateGreeted
	return c, nil
}

func TestDialParsesGreetingCapabilities(t *testing.T) {
	greeting := "\"IMPLEMENTATION\" \"X\"\r\n\"SASL\" \"PLAIN LOGIN\"\r\n\"SIEVE\" \"fileinto\"\r\nOK\r\n"
	c, fs := dialFakeClient(t, greeting)
	defer fs.conn.Close()

	caps := c.Capabilities()
	for _, key := range []string{"IMPLEMENTATION", "SASL", "SIEVE"} {
		require.Truef(t, caps.Has(key), "expected capability %q present, got %#v", key, caps)
	}
	require.Equal(t, []string{"PLAIN", "LOGIN"}, caps.SASLMechanisms())
	require.Equal(t, StateGreeted, c.State())
}

func TestAuthenticatePlainWireFormat(t *testing.T) {
	greeting := "\"SASL\" \"PLAIN\"\r\nOK\r\n"
	c, fs := dialFakeClient(t, greeting)
	defer fs.conn.Close()

	done := make(chan error, 1)
	go func() {
		done <- c.Authenticate(context.Background(), "u", "p", "PLAIN")
	}()

	line := fs.readLine()
	require.True(t, strings.HasPrefix(line, `AUTHENTICATE "PLAIN" `), "expected AUTHENTICATE PLAIN command, got %q", line)
	// \0u\0p base64-encoded, per SPEC_FULL §8 scenario 5.
	require.Contains(t, line, "AHUAcA==")
	fs.sendRaw("OK\r\n")

	require.NoError(t, <-done)
	require.Equal(t, StateAuthenticated, c.State())
}

func TestAuthenticateFailureKeepsGreetedState(t *testing.T) {
	greeting := "\"SASL\" \"PLAIN\"\r\nOK\r\n"
	c, fs := dialFakeClient(t, greeting)
	defer fs.conn.Close()

	done := make(chan error, 1)
	go func() {
		done <- c.Authenticate(context.Background(), "u", "wrong", "PLAIN")
	}()
	fs.readLine()
	fs.sendRaw("NO \"Authentication failed\"\r\n")

	err := <-done
	require.Error(t, err)
	require.IsType(t, &AuthError{}, err)
	require.Equal(t, StateGreeted, c.State(), "expected client to remain StateGreeted after auth failure")
}

func TestSimulatedRenameSequencing(t *testing.T) {
	greeting := "\"SIEVE\" \"fileinto\"\r\nOK\r\n"
	c, fs := dialFakeClient(t, greeting)
	defer fs.conn.Close()

	done := make(chan error, 1)
	go func() {
		done <- c.RenameScript("a", "b")
	}()

	require.Equal(t, "LISTSCRIPTS", fs.readLine())
	fs.sendRaw("\"a\" ACTIVE\r\nOK\r\n")

	require.Equal(t, `GETSCRIPT "a"`, fs.readLine())
	fs.sendRaw("{10}\r\nkeep;stop;\r\nOK\r\n")

	require.Equal(t, `PUTSCRIPT "b" "keep;stop;"`, fs.readLine())
	fs.sendRaw("OK\r\n")

	require.Equal(t, `SETACTIVE "b"`, fs.readLine(), `expected SETACTIVE "b" since "a" was active`)
	fs.sendRaw("OK\r\n")

	require.Equal(t, `DELETESCRIPT "a"`, fs.readLine())
	fs.sendRaw("OK\r\n")

	require.NoError(t, <-done)
}

func TestSimulatedRenameStopsOnPutscriptFailure(t *testing.T) {
	greeting := "\"SIEVE\" \"fileinto\"\r\nOK\r\n"
	c, fs := dialFakeClient(t, greeting)
	defer fs.conn.Close()

	done := make(chan error, 1)
	go func() {
		done <- c.RenameScript("a", "b")
	}()

	fs.readLine() // LISTSCRIPTS
	fs.sendRaw("\"a\"\r\nOK\r\n")

	fs.readLine() // GETSCRIPT "a"
	fs.sendRaw("{4}\r\nstop\r\nOK\r\n")

	fs.readLine() // PUTSCRIPT "b" "stop"
	fs.sendRaw("NO \"quota exceeded\"\r\n")

	err := <-done
	require.Error(t, err, "expected error from failed PUTSCRIPT")
	// No SETACTIVE/DELETESCRIPT may follow a failed PUTSCRIPT. net.Pipe is
	// unbuffered and nothing reads from it here, so a stray extra command
	// would block the client and <-done above would never return.
}

func TestMaskSensitiveCommandRedactsCredentials(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`AUTHENTICATE "PLAIN" "AHUAcA=="`, "AUTHENTICATE <redacted>"},
		{`LOGIN "user" "pass"`, "LOGIN <redacted>"},
		{`PUTSCRIPT "a" "keep;"`, `PUTSCRIPT "a" "keep;"`},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, maskSensitiveCommand(tc.in))
	}
}
