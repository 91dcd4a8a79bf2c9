// The caster package talks to an NTRIP caster.  It performs the handshake
// that opens a stream of RTCM3 data from a mountpoint and fetches the
// caster's source table, the list of its mountpoints.
//
// The NTRIP handshake looks like HTTP but isn't quite:  a version 1 caster
// answers with "ICY 200 OK" and its source table with "SOURCETABLE 200 OK",
// so the requests are written and the responses read by hand rather than
// with net/http.
//
//	client := caster.New(logger, caster.WithDialTimeout(10*time.Second))
//	session, err := client.HandshakeStream(ctx, cfg.Connection)
//	if err != nil {
//	    ...
//	}
//	defer session.Close()
//	n, err := session.Read(buffer)
package caster

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http/httputil"
	"strings"
	"time"

	"github.com/goblimey/go-ntrip-analyser/config"
)

// Version is the version of the software sent in the User-Agent header.
const Version = "0.1"

// DefaultDialTimeout is the time allowed to connect to the caster.
const DefaultDialTimeout = 10 * time.Second

// UserAgent is the value of the User-Agent header.  Casters expect it to
// start with "NTRIP".
const UserAgent = "NTRIP go-ntrip-analyser/" + Version

// Client connects to casters.  It holds no connection itself, so one
// Client can be used for many sessions.
type Client struct {
	logger      *slog.Logger
	dialTimeout time.Duration
	tlsConfig   *tls.Config
	userAgent   string
}

// Option configures a Client.
type Option func(*Client)

// WithDialTimeout sets the time allowed to connect.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// WithTLSConfig sets the TLS configuration used when the connection asks
// for TLS, for example to trust a private certificate authority.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *Client) {
		c.tlsConfig = cfg
	}
}

// WithUserAgent replaces the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a Client.  A nil logger discards the log messages.
func New(logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Client{
		logger:      logger,
		dialTimeout: DefaultDialTimeout,
		userAgent:   UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandshakeStream connects to the caster, asks for the mountpoint's stream
// and reads the response headers.  If the caster accepts, the returned
// Session delivers the stream.  The context limits the handshake only:  once
// the Session is returned, cancelling the context has no effect and the
// caller must Close the session.
func (c *Client) HandshakeStream(ctx context.Context, cfg config.Connection) (*Session, error) {

	conn, err := c.dial(ctx, cfg.Address(), cfg.UseTLS)
	if err != nil {
		return nil, err
	}

	// Closing the connection is the only way to interrupt a blocked read.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	request := BuildStreamRequest(cfg, c.userAgent)
	if _, err := io.WriteString(conn, request); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sending request to %s: %w", cfg.Address(), err)
	}

	session := newSession(conn)
	resp, err := readResponse(session.reader, streamAccepted)
	if err != nil {
		conn.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	session.StatusLine = resp.statusLine
	if resp.chunked() {
		session.body = httputil.NewChunkedReader(session.reader)
	}

	c.logger.Debug("handshake", "caster", cfg.Address(), "mountpoint", cfg.MountpointPath(),
		"status", resp.statusLine, "chunked", resp.chunked())

	return session, nil
}

// FetchSourceTable connects to the caster, asks for the source table and
// returns the streams in it.
func (c *Client) FetchSourceTable(ctx context.Context, host string, port int, useTLS bool, username, password string) ([]SourceTableEntry, error) {
	table, err := c.FetchSourceTableDetail(ctx, host, port, useTLS, username, password)
	if err != nil {
		return nil, err
	}
	return table.Streams, nil
}

// FetchSourceTableDetail is FetchSourceTable returning the casters and
// networks listed in the source table as well as the streams.
func (c *Client) FetchSourceTableDetail(ctx context.Context, host string, port int, useTLS bool, username, password string) (*SourceTable, error) {

	address := net.JoinHostPort(strings.TrimSpace(host), fmt.Sprint(port))
	conn, err := c.dial(ctx, address, useTLS)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	request := BuildSourceTableRequest(strings.TrimSpace(host), username, password, c.userAgent)
	if _, err := io.WriteString(conn, request); err != nil {
		return nil, fmt.Errorf("sending request to %s: %w", address, err)
	}

	session := newSession(conn)
	resp, err := readResponse(session.reader, sourceTableAccepted)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	var body io.Reader = session.reader
	if resp.chunked() {
		body = httputil.NewChunkedReader(session.reader)
	}

	text, err := io.ReadAll(body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("reading source table from %s: %w", address, err)
	}

	table := ParseSourceTableDetail(string(text))
	c.logger.Debug("source table", "caster", address, "streams", len(table.Streams),
		"casters", len(table.Casters), "networks", len(table.Networks))

	return table, nil
}

// dial connects to the address, using TLS if asked.
func (c *Client) dial(ctx context.Context, address string, useTLS bool) (net.Conn, error) {
	netDialer := &net.Dialer{Timeout: c.dialTimeout}

	var conn net.Conn
	var err error
	if useTLS {
		tlsDialer := &tls.Dialer{NetDialer: netDialer, Config: c.tlsConfig}
		conn, err = tlsDialer.DialContext(ctx, "tcp", address)
	} else {
		conn, err = netDialer.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", address, err)
	}

	c.logger.Debug("connected", "caster", address, "tls", useTLS)
	return conn, nil
}

// BuildStreamRequest returns the request for a mountpoint's stream.  A
// REV1 request is HTTP/1.0 with no Ntrip-Version header.
func BuildStreamRequest(cfg config.Connection, userAgent string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "GET /%s %s\r\n", cfg.MountpointPath(), cfg.Protocol.HTTPVersion())
	fmt.Fprintf(&b, "Host: %s\r\n", strings.TrimSpace(cfg.Host))
	fmt.Fprintf(&b, "User-Agent: %s\r\n", userAgent)
	if cfg.Protocol != config.REV1 {
		b.WriteString("Ntrip-Version: Ntrip/2.0\r\n")
	}
	fmt.Fprintf(&b, "Authorization: Basic %s\r\n", basicAuth(cfg.Username, cfg.Password))
	b.WriteString("Accept: */*\r\n")
	b.WriteString("Connection: keep-alive\r\n")
	b.WriteString("\r\n")
	return b.String()
}

// BuildSourceTableRequest returns the request for the source table.
func BuildSourceTableRequest(host, username, password, userAgent string) string {
	var b strings.Builder
	b.WriteString("GET / HTTP/1.1\r\n")
	fmt.Fprintf(&b, "Host: %s\r\n", host)
	fmt.Fprintf(&b, "User-Agent: %s\r\n", userAgent)
	fmt.Fprintf(&b, "Authorization: Basic %s\r\n", basicAuth(username, password))
	b.WriteString("Connection: close\r\n")
	b.WriteString("\r\n")
	return b.String()
}

func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
