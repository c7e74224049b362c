package managesieve

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// transport owns the TCP (and, after STARTTLS, TLS-wrapped) connection and
// the line/literal framing described in SPEC_FULL §4.5. It mirrors the
// teacher's session pattern of pairing a raw net.Conn with a bufio.Reader
// and bufio.Writer (server/managesieve/session.go's ManageSieveSession),
// but from the dialing side rather than the accepting side.
type transport struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	isTLS  bool

	dialTimeout    time.Duration
	commandTimeout time.Duration
}

func dial(ctx context.Context, addr string, dialTimeout time.Duration) (*transport, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}
	return &transport{
		conn:        conn,
		reader:      bufio.NewReader(conn),
		writer:      bufio.NewWriter(conn),
		dialTimeout: dialTimeout,
	}, nil
}

func (t *transport) close() error {
	return t.conn.Close()
}

func (t *transport) setDeadline() {
	if t.commandTimeout > 0 {
		t.conn.SetDeadline(time.Now().Add(t.commandTimeout))
	} else {
		t.conn.SetDeadline(time.Time{})
	}
}

// startTLS performs the TLS client handshake over the existing connection
// and replaces the buffered reader/writer, exactly as session.go's
// PerformHandshake does on the accept side: the capability set must be
// re-read afterward since RFC 5804 requires the server to re-announce it.
func (t *transport) startTLS(cfg *tls.Config) error {
	t.setDeadline()
	tlsConn := tls.Client(t.conn, cfg)
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		return &TransportError{Op: "starttls", Err: err}
	}
	t.conn = tlsConn
	t.reader = bufio.NewReader(tlsConn)
	t.writer = bufio.NewWriter(tlsConn)
	t.isTLS = true
	return nil
}

// writeLine writes s followed by CRLF and flushes.
func (t *transport) writeLine(s string) error {
	t.setDeadline()
	if _, err := t.writer.WriteString(s); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	if _, err := t.writer.WriteString("\r\n"); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	if err := t.writer.Flush(); err != nil {
		if isTimeout(err) {
			return &TimeoutError{Op: "write"}
		}
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// writeLiteral writes a "{n+}\r\n<bytes>\r\n" literal block, used for
// script bodies and any SASL response too large or unsafe to quote.
func (t *transport) writeLiteral(data []byte) error {
	t.setDeadline()
	if _, err := fmt.Fprintf(t.writer, "{%d+}\r\n", len(data)); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	if _, err := t.writer.Write(data); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	if _, err := t.writer.WriteString("\r\n"); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	if err := t.writer.Flush(); err != nil {
		if isTimeout(err) {
			return &TimeoutError{Op: "write"}
		}
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// readLine reads one CRLF-terminated response line, with the terminator
// stripped.
func (t *transport) readLine() (string, error) {
	t.setDeadline()
	line, err := t.reader.ReadString('\n')
	if err != nil {
		if isTimeout(err) {
			return "", &TimeoutError{Op: "read"}
		}
		if err == io.EOF {
			return "", &TransportError{Op: "read", Err: io.ErrUnexpectedEOF}
		}
		return "", &TransportError{Op: "read", Err: err}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readLiteral reads exactly n octets followed by the trailing CRLF that
// RFC 5804 requires after a literal block.
func (t *transport) readLiteral(n int) (string, error) {
	t.setDeadline()
	buf := make([]byte, n)
	if _, err := io.ReadFull(t.reader, buf); err != nil {
		if isTimeout(err) {
			return "", &TimeoutError{Op: "read literal"}
		}
		return "", &TransportError{Op: "read literal", Err: err}
	}
	// Consume the trailing CRLF (some servers only send LF); tolerate both.
	trailer, err := t.reader.ReadString('\n')
	if err != nil {
		return "", &TransportError{Op: "read literal trailer", Err: err}
	}
	if strings.TrimRight(trailer, "\r\n") != "" {
		return "", &ProtocolError{Message: "unexpected data after literal payload"}
	}
	return string(buf), nil
}

// literalLength parses a trailing "{n}" or "{n+}" marker from line, or
// reports ok=false if line does not end in one.
func literalLength(line string) (n int, ok bool) {
	if !strings.HasSuffix(line, "}") {
		return 0, false
	}
	open := strings.LastIndexByte(line, '{')
	if open < 0 {
		return 0, false
	}
	inner := line[open+1 : len(line)-1]
	inner = strings.TrimSuffix(inner, "+")
	v, err := strconv.Atoi(inner)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// readAtomLine reads one response element: either the fixed text of a plain
// line, or, when the line ends in a literal marker, the literal payload
// read via readLiteral. Used for both quoted-string and literal-string
// server responses uniformly (SPEC_FULL §4.5).
func (t *transport) readAtomLine() (string, error) {
	line, err := t.readLine()
	if err != nil {
		return "", err
	}
	if n, ok := literalLength(line); ok {
		return t.readLiteral(n)
	}
	return line, nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// quoteString renders s per the outbound quoting rule in SPEC_FULL §4.5:
// strings containing CR, LF, NUL, or longer than 1024 octets go out as a
// literal instead of a quoted string.
func quoteString(s string) string {
	if needsLiteral(s) {
		return fmt.Sprintf("{%d+}\r\n%s", len(s), s)
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

func needsLiteral(s string) bool {
	if len(s) > 1024 {
		return true
	}
	return strings.ContainsAny(s, "\r\n\x00")
}
