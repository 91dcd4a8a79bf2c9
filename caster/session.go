package caster

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"

	"github.com/goblimey/go-ntrip-analyser/config"
)

// Session is an open stream from a caster.  Read returns the data that
// follows the response headers.  Close may be called from another goroutine
// while Read is blocked, and it unblocks the Read.  Close may be called more
// than once.
type Session struct {
	// StatusLine is the caster's response, for example "ICY 200 OK".
	StatusLine string

	conn   net.Conn
	reader *bufio.Reader

	// body is the reader that delivers the stream, which may be a chunked
	// decoder reading from reader.
	body io.Reader

	closeOnce sync.Once
	closeErr  error
}

// This is a compile-time check that Session implements io.ReadCloser.
var _ io.ReadCloser = (*Session)(nil)

func newSession(conn net.Conn) *Session {
	reader := bufio.NewReader(conn)
	return &Session{conn: conn, reader: reader, body: reader}
}

// NewSession wraps an established connection.  It's used to read a stream
// that arrives without a handshake and by tests.
func NewSession(conn net.Conn) *Session {
	return newSession(conn)
}

// Read reads the stream.
func (s *Session) Read(p []byte) (int, error) {
	return s.body.Read(p)
}

// Close closes the connection.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// RemoteAddr returns the address of the caster.
func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Dial is HandshakeStream returning the session as an io.ReadCloser, which
// is the form the stream package wants.
func (c *Client) Dial(ctx context.Context, cfg config.Connection) (io.ReadCloser, error) {
	session, err := c.HandshakeStream(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return session, nil
}
