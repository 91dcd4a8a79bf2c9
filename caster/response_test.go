package caster

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestConsumeHeaders(t *testing.T) {
	var testData = []struct {
		description string
		input       string
		wantStatus  string
		wantBody    string
	}{
		{"icy", "ICY 200 OK\r\n\r\nbody", "ICY 200 OK", "body"},
		{"headers", "HTTP/1.1 200 OK\r\nServer: x\r\nCache-Control: no-store\r\n\r\n\xd3\x00", "HTTP/1.1 200 OK", "\xd3\x00"},
		{"stray return", "ICY 200 OK\r\r\n\r\nz", "ICY 200 OK", "z"},
		{"empty body", "ICY 200 OK\r\n\r\n", "ICY 200 OK", ""},
	}

	for _, td := range testData {
		t.Run(td.description, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(td.input))

			got, err := ConsumeHeaders(r)
			if err != nil {
				t.Fatal(err)
			}
			if td.wantStatus != got {
				t.Errorf("want %q got %q", td.wantStatus, got)
			}

			body, _ := io.ReadAll(r)
			if td.wantBody != string(body) {
				t.Errorf("want body %q got %q", td.wantBody, string(body))
			}
		})
	}
}

func TestConsumeHeadersErrors(t *testing.T) {
	var testData = []struct {
		description string
		input       string
		want        error
	}{
		{"empty", "", ErrNoBody},
		{"unterminated", "ICY 200 OK\r\n", ErrNoBody},
		{"no status", "\r\n\r\n", ErrMissingStatus},
		{"too long", strings.Repeat("x", maxHeaderBytes+1), ErrHeadersTooLong},
	}

	for _, td := range testData {
		t.Run(td.description, func(t *testing.T) {
			_, err := ConsumeHeaders(bufio.NewReader(strings.NewReader(td.input)))
			if !errors.Is(err, td.want) {
				t.Errorf("want %v got %v", td.want, err)
			}
		})
	}
}

func TestConsumeHeadersRejected(t *testing.T) {
	input := "HTTP/1.1 404 Not Found\r\n\r\n"
	_, err := ConsumeHeaders(bufio.NewReader(strings.NewReader(input)))

	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("want a RejectedError got %v", err)
	}
	want := "Caster rejected request: HTTP/1.1 404 Not Found"
	if want != err.Error() {
		t.Errorf("want %q got %q", want, err.Error())
	}
}

func TestChunked(t *testing.T) {
	r, err := readResponse(bufio.NewReader(strings.NewReader(
		"HTTP/1.1 200 OK\r\ntransfer-encoding: Chunked\r\n\r\n")), streamAccepted)
	if err != nil {
		t.Fatal(err)
	}
	if !r.chunked() {
		t.Error("want chunked")
	}
}
