package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goblimey/go-ntrip-analyser/rtcm/handler"
	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
)

// The output formats.
const (
	formatSummary = "summary"
	formatText    = "text"
	formatJSON    = "json"
	formatYAML    = "yaml"
	formatRaw     = "raw"
	formatNone    = "none"
)

// printer writes decoded messages in one of the output formats.  The raw
// format writes the frames that pass the CRC check, which gives a clean
// RTCM3 stream with the junk filtered out.
type printer struct {
	w      io.Writer
	format string
	yaml   *yaml.Encoder

	// types, if not empty, holds the message types to print.
	types map[int]bool
}

func newPrinter(w io.Writer, format string, types []int) (*printer, error) {
	p := printer{w: w, format: format}
	if len(types) > 0 {
		p.types = make(map[int]bool)
		for _, t := range types {
			p.types[t] = true
		}
	}
	switch format {
	case formatSummary, formatText, formatJSON, formatRaw, formatNone:
	case formatYAML:
		p.yaml = yaml.NewEncoder(w)
		p.yaml.SetIndent(2)
	default:
		return nil, fmt.Errorf("unknown output format %q - must be summary, text, json, yaml, raw or none", format)
	}
	return &p, nil
}

// print writes one message.
func (p *printer) print(message *handler.Message) error {
	if p.types != nil && !p.types[message.MessageType] {
		return nil
	}
	switch p.format {
	case formatSummary:
		_, err := fmt.Fprintln(p.w, summary(message))
		return err
	case formatText:
		_, err := fmt.Fprintln(p.w, message.String())
		return err
	case formatJSON:
		j, err := json.Marshal(message)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.w, "%s\n", j)
		return err
	case formatYAML:
		// The decoded records only carry JSON tags, so the message goes
		// through JSON to get the same field names.
		value, err := viaJSON(message)
		if err != nil {
			return err
		}
		return p.yaml.Encode(value)
	case formatRaw:
		if !message.CRCValid {
			return nil
		}
		_, err := p.w.Write(message.RawData)
		return err
	}
	return nil
}

// close flushes any buffered output.
func (p *printer) close() error {
	if p.yaml != nil {
		return p.yaml.Close()
	}
	return nil
}

// summary returns a one-line description of the message.
func summary(message *handler.Message) string {
	line := fmt.Sprintf("%s %4d %-40s %4d bytes",
		message.ReceivedAt.UTC().Format(time.RFC3339),
		message.MessageType,
		utils.GetTitleAndComment(message.MessageType).Title,
		len(message.RawData))
	if !message.CRCValid {
		line += " CRC check failed"
	}
	if message.Malformed() {
		line += " - " + message.ErrorMessage
	}
	return line
}

// viaJSON converts v to the generic form that json.Unmarshal produces.
func viaJSON(v any) (any, error) {
	j, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal(j, &value); err != nil {
		return nil, err
	}
	return value, nil
}
