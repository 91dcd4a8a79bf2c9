// Package reportfeed produces status reports on a running stream:  the
// statistics, the message counts, the recent connection events, a hex dump
// of the last buffer received and the recent messages.  The report is
// available as HTML, served by a small status web server, and as plain text
// for the log.
package reportfeed

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/goblimey/go-ntrip-analyser/clock"
	"github.com/goblimey/go-ntrip-analyser/rtcm/handler"
	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
	"github.com/goblimey/go-ntrip-analyser/stream"
)

// timestampFormat is used for the buffer and message times.
const timestampFormat = "Mon Jan _2 15:04:05 2006"

// maxMessagesShown limits the number of recent messages in the report.
const maxMessagesShown = 20

// refreshSeconds is the refresh period of the status page.
const refreshSeconds = 5

// Source supplies the figures for the report.  stream.Orchestrator is one.
type Source interface {
	Stats() stream.Statistics
	RecentEvents() []stream.Event
	RecentMessages() []handler.Message
	LastBuffer() []byte
}

// ReportFeed produces the reports.
type ReportFeed struct {
	source Source
	clock  clock.Clock
}

// New creates a ReportFeed.  A nil clock means the system clock.
func New(source Source, c clock.Clock) *ReportFeed {
	if c == nil {
		c = clock.NewSystemClock()
	}
	return &ReportFeed{source: source, clock: c}
}

// Status returns the report as a fragment of HTML.
func (rf *ReportFeed) Status() []byte {
	stats := rf.source.Stats()

	bufferLeader := "no buffer"
	bufferHexDump := ""
	if buffer := rf.source.LastBuffer(); len(buffer) > 0 {
		bufferLeader = fmt.Sprintf("%d bytes at %s", len(buffer),
			rf.clock.Now().Format(timestampFormat))
		bufferHexDump = Sanitise(hex.Dump(buffer))
	}

	reportBody := fmt.Sprintf(reportFormat,
		Sanitise(statusLines(&stats)),
		Sanitise(countLines(stats.MessageCounts)),
		Sanitise(eventLines(rf.source.RecentEvents())),
		bufferLeader,
		bufferHexDump,
		Sanitise(messageLines(rf.source.RecentMessages())),
	)

	return []byte(reportBody)
}

// Text returns the report as plain text, without the buffer dump.
func (rf *ReportFeed) Text() string {
	stats := rf.source.Stats()

	report := statusLines(&stats)
	report += "Message counts:\n" + indent(countLines(stats.MessageCounts))
	report += "Recent events:\n" + indent(eventLines(rf.source.RecentEvents()))

	return report
}

// ServeHTTP serves the report as a page that refreshes itself.
func (rf *ReportFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, pageFormat, refreshSeconds, rf.Status())
}

// ServeStats serves the statistics as JSON.
func (rf *ReportFeed) ServeStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	stats := rf.source.Stats()
	if err := json.NewEncoder(w).Encode(&stats); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// NewServer returns a web server for the status page at "/" and the JSON
// statistics at "/stats".  The caller starts and stops it.
func NewServer(address string, rf *ReportFeed) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/", rf)
	mux.HandleFunc("/stats", rf.ServeStats)
	return &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func statusLines(stats *stream.Statistics) string {
	lastMessage := "never"
	if !stats.LastMessageAt.IsZero() {
		lastMessage = stats.LastMessageAt.Format(timestampFormat)
	}
	s := fmt.Sprintf("Status: %s (%s)\n", stats.StatusMessage, stats.State)
	s += fmt.Sprintf("Bytes: %d (%.0f per second)\n", stats.TotalBytes, stats.BytesPerSecond)
	s += fmt.Sprintf("Messages: %d (%.1f per second)\n", stats.TotalMessages, stats.MessagesPerSecond)
	s += fmt.Sprintf("CRC failures: %d, malformed: %d\n", stats.CRCFailures, stats.MalformedFrames)
	s += fmt.Sprintf("Reconnect attempts: %d\n", stats.ReconnectAttempts)
	s += fmt.Sprintf("Uptime: %s, last message: %s\n", stats.SessionUptime.Round(time.Second), lastMessage)
	return s
}

// countLines lists the message counts in order of message type.
func countLines(counts map[int]uint64) string {
	if len(counts) == 0 {
		return "none\n"
	}
	types := make([]int, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Ints(types)

	s := ""
	for _, t := range types {
		s += fmt.Sprintf("%4d %-40s %d\n", t, utils.GetTitleAndComment(t).Title, counts[t])
	}
	return s
}

func eventLines(events []stream.Event) string {
	if len(events) == 0 {
		return "none\n"
	}
	s := ""
	for _, e := range events {
		s += e.String() + "\n"
	}
	return s
}

// messageLines lists the most recent messages, newest last, with the last
// one in full.
func messageLines(messages []handler.Message) string {
	if len(messages) == 0 {
		return "none\n"
	}
	if len(messages) > maxMessagesShown {
		messages = messages[len(messages)-maxMessagesShown:]
	}

	s := ""
	for i := range messages {
		m := &messages[i]
		crc := "ok"
		if !m.CRCValid {
			crc = "bad CRC"
		}
		s += fmt.Sprintf("%s %4d %4d bytes %s", m.ReceivedAt.Format(timestampFormat),
			m.MessageType, m.PayloadLength, crc)
		if m.Malformed() {
			s += " - " + m.ErrorMessage
		}
		s += "\n"
	}

	s += "\n" + messages[len(messages)-1].String()
	return s
}

func indent(s string) string {
	lines := strings.SplitAfter(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = "  " + line
		}
	}
	return strings.Join(lines, "")
}

// Sanitise edits a string, replacing some dangerous HTML characters.
func Sanitise(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
