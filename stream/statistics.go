package stream

import (
	"fmt"
	"time"
)

// State is the state of the orchestrator.
type State int

const (
	// Idle is the state before the first Start.
	Idle State = iota
	Connecting
	Streaming
	Reconnecting
	Disconnected
)

var stateNames = map[State]string{
	Idle:         "idle",
	Connecting:   "connecting",
	Streaming:    "streaming",
	Reconnecting: "reconnecting",
	Disconnected: "disconnected",
}

// String returns the name of the state.
func (s State) String() string {
	name, ok := stateNames[s]
	if !ok {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return name
}

// MarshalText gives the name of the state in JSON and YAML output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Statistics is a snapshot of the state of the stream.  The counters are
// cumulative over all of the connection attempts of one run.  The rates are
// measured over the last one-second window and are zero while not
// connected.
type Statistics struct {
	Connected         bool           `json:"connected"`
	State             State          `json:"state"`
	StatusMessage     string         `json:"status_message"`
	TotalBytes        uint64         `json:"total_bytes"`
	BytesPerSecond    float64        `json:"bytes_per_second"`
	TotalMessages     uint64         `json:"total_messages"`
	MessagesPerSecond float64        `json:"messages_per_second"`
	CRCFailures       uint64         `json:"crc_failures"`
	MalformedFrames   uint64         `json:"malformed_frames"`
	ReconnectAttempts int            `json:"reconnect_attempts"`
	SessionUptime     time.Duration  `json:"session_uptime"`
	LastMessageAt     time.Time      `json:"last_message_at"`
	MessageCounts     map[int]uint64 `json:"message_counts"`
}

// String returns the statistics as one line.
func (s *Statistics) String() string {
	return fmt.Sprintf("%s: %d bytes (%.0f/s), %d messages (%.1f/s), %d CRC failures, %d malformed, %d reconnects, up %s",
		s.StatusMessage, s.TotalBytes, s.BytesPerSecond, s.TotalMessages,
		s.MessagesPerSecond, s.CRCFailures, s.MalformedFrames,
		s.ReconnectAttempts, s.SessionUptime.Round(time.Second))
}

// Event is an entry in the connection log.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// String returns the event as a log line.
func (e Event) String() string {
	return e.Timestamp.Format(time.RFC3339) + " " + e.Message
}

// counters are the cumulative figures kept by the worker.
type counters struct {
	totalBytes    uint64
	totalMessages uint64
	crcFailures   uint64
	malformed     uint64
	messageCounts map[int]uint64
	lastMessageAt time.Time
}

func newCounters() *counters {
	return &counters{messageCounts: make(map[int]uint64)}
}

// snapshot makes a Statistics from the counters.  The map is copied.
func (c *counters) snapshot() Statistics {
	messageCounts := make(map[int]uint64, len(c.messageCounts))
	for k, v := range c.messageCounts {
		messageCounts[k] = v
	}
	return Statistics{
		TotalBytes:      c.totalBytes,
		TotalMessages:   c.totalMessages,
		CRCFailures:     c.crcFailures,
		MalformedFrames: c.malformed,
		LastMessageAt:   c.lastMessageAt,
		MessageCounts:   messageCounts,
	}
}
