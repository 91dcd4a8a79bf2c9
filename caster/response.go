package caster

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strings"
)

// maxHeaderBytes limits the size of the response headers.  A caster that
// sends more than this without a blank line is not talking NTRIP.
const maxHeaderBytes = 16 * 1024

// headerTerminator marks the end of the response headers.
var headerTerminator = []byte("\r\n\r\n")

// ErrNoBody is returned when the caster closes the connection before the
// end of the response headers.
var ErrNoBody = errors.New("No HTTP response body found from caster")

// ErrMissingStatus is returned when the response has no status line.
var ErrMissingStatus = errors.New("Missing HTTP status line from caster")

// ErrHeadersTooLong is returned when the response headers run on for more
// than maxHeaderBytes.
var ErrHeadersTooLong = fmt.Errorf("HTTP response headers from caster exceed %d bytes", maxHeaderBytes)

// RejectedError is returned when the caster answers with anything other
// than a 200 status.
type RejectedError struct {
	// StatusLine is the first line of the response, for example
	// "HTTP/1.1 401 Unauthorized".
	StatusLine string
}

func (e *RejectedError) Error() string {
	return "Caster rejected request: " + e.StatusLine
}

// streamAccepted lists the status lines that a caster uses to accept a
// request for a stream.  ICY is the NTRIP version 1 response.
var streamAccepted = []string{"ICY 200", "HTTP/1.0 200", "HTTP/1.1 200"}

// sourceTableAccepted adds the NTRIP version 1 source table response.
var sourceTableAccepted = append([]string{"SOURCETABLE 200"}, streamAccepted...)

// response is the status line and headers of a caster's response.
type response struct {
	statusLine string
	header     textproto.MIMEHeader
}

// chunked is true if the body is sent with chunked transfer encoding.
func (r *response) chunked() bool {
	for _, v := range r.header.Values("Transfer-Encoding") {
		if strings.EqualFold(strings.TrimSpace(v), "chunked") {
			return true
		}
	}
	return false
}

// ConsumeHeaders reads the response headers from r one byte at a time,
// stopping just after the blank line that ends them, and checks the status.
// Any body bytes are left in r for the caller.  It returns the status line
// or one of ErrNoBody, ErrMissingStatus, ErrHeadersTooLong or a
// *RejectedError.
func ConsumeHeaders(r io.ByteReader) (string, error) {
	resp, err := readResponse(r, streamAccepted)
	if err != nil {
		return "", err
	}
	return resp.statusLine, nil
}

// readResponse reads and checks the status line and headers.
func readResponse(r io.ByteReader, accepted []string) (*response, error) {
	headerBytes, err := readHeaderBytes(r)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(headerBytes), "\r\n")
	statusLine := strings.TrimSpace(lines[0])
	if statusLine == "" {
		return nil, ErrMissingStatus
	}

	if !hasAnyPrefix(statusLine, accepted) {
		return nil, &RejectedError{StatusLine: statusLine}
	}

	return &response{statusLine: statusLine, header: parseHeaderLines(lines[1:])}, nil
}

// readHeaderBytes reads up to and including the terminating blank line.
// The match state rolls forward a byte at a time so that nothing after the
// terminator is read.
func readHeaderBytes(r io.ByteReader) ([]byte, error) {
	var header bytes.Buffer
	matched := 0
	for matched < len(headerTerminator) {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrNoBody
			}
			return nil, fmt.Errorf("reading response headers: %w", err)
		}
		header.WriteByte(b)
		if header.Len() > maxHeaderBytes {
			return nil, ErrHeadersTooLong
		}

		switch {
		case b == headerTerminator[matched]:
			matched++
		case b == headerTerminator[0]:
			matched = 1
		default:
			matched = 0
		}
	}
	return header.Bytes(), nil
}

// parseHeaderLines turns "Name: value" lines into a header map.  Lines
// without a colon are ignored.
func parseHeaderLines(lines []string) textproto.MIMEHeader {
	header := make(textproto.MIMEHeader)
	for _, line := range lines {
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		header.Add(textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(name)),
			strings.TrimSpace(value))
	}
	return header
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
