package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goblimey/go-ntrip-analyser/caster"
	"github.com/goblimey/go-ntrip-analyser/clock"
	"github.com/goblimey/go-ntrip-analyser/config"
	"github.com/goblimey/go-ntrip-analyser/reconnect"
	"github.com/goblimey/go-ntrip-analyser/rtcm/utils"
)

// waitFor is the time allowed for the worker to reach a state.
const waitFor = 5 * time.Second

// fakeDialer hands out the given sessions in turn.  When they run out, Dial
// fails.
type fakeDialer struct {
	mu       sync.Mutex
	sessions []io.ReadCloser
	calls    int
}

func (d *fakeDialer) Dial(ctx context.Context, cfg config.Connection) (io.ReadCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if len(d.sessions) == 0 {
		return nil, errors.New("connection refused")
	}
	s := d.sessions[0]
	d.sessions = d.sessions[1:]
	return s, nil
}

func (d *fakeDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// bytesSession delivers its data and then io.EOF.
type bytesSession struct {
	*bytes.Reader
}

func (s *bytesSession) Close() error { return nil }

func newBytesSession(data ...[]byte) io.ReadCloser {
	return &bytesSession{bytes.NewReader(bytes.Join(data, nil))}
}

var validConnection = config.Connection{
	Host:       "caster.example.com",
	Port:       2101,
	Mountpoint: "MOUNT1",
	Protocol:   config.REV2,
}

// unsupportedPayload is a three-byte message of type 1019.
var unsupportedPayload = []byte{0x3f, 0xb0, 0x12}

// truncated1005 is a type 1005 message holding only the message type.
var truncated1005 = []byte{0x3e, 0xd0}

func badCRC(frame []byte) []byte {
	bad := append([]byte{}, frame...)
	bad[len(bad)-1] ^= 0xff
	return bad
}

func waitForState(t *testing.T, o *Orchestrator, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return o.State() == want },
		waitFor, time.Millisecond, "want state %s got %s", want, o.State())
}

func newTestOrchestrator(t *testing.T, dialer Dialer, policy *reconnect.Policy, c clock.Clock) *Orchestrator {
	t.Helper()
	o, err := New(Settings{Dialer: dialer, Policy: policy, Clock: c})
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o
}

func eventMessages(events []Event) []string {
	messages := make([]string, 0, len(events))
	for _, e := range events {
		messages = append(messages, e.Message)
	}
	return messages
}

func TestNew(t *testing.T) {
	_, err := New(Settings{})
	assert.ErrorIs(t, err, ErrNoDialer)

	_, err = New(Settings{Dialer: &fakeDialer{}, MessageHistory: -1})
	assert.Error(t, err)

	o, err := New(Settings{Dialer: &fakeDialer{}})
	require.NoError(t, err)
	defer o.Close()
	assert.Equal(t, Idle, o.State())
	assert.Empty(t, o.RecentMessages())
	assert.Empty(t, o.RecentEvents())
}

func TestStartInvalidConfig(t *testing.T) {
	dialer := &fakeDialer{}
	o := newTestOrchestrator(t, dialer, nil, nil)

	cfg := validConnection
	cfg.Host = ""
	err := o.Start(cfg)

	assert.ErrorIs(t, err, config.ErrMissingHost)
	assert.Equal(t, Disconnected, o.State())
	assert.Contains(t, o.Stats().StatusMessage, "host is required")
	assert.Equal(t, 0, dialer.Calls())
}

// TestReconnectAfterStreamEnds checks that a caster that accepts and then
// closes the connection without sending anything causes one reconnection
// after the base delay and leaves the counters at zero.
func TestReconnectAfterStreamEnds(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			reader := bufio.NewReader(conn)
			for {
				line, err := reader.ReadString('\n')
				if err != nil || line == "\r\n" {
					break
				}
			}
			io.WriteString(conn, "ICY 200 OK\r\n\r\n")
			conn.Close()
		}
	}()

	host, portStr, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	cfg := config.Connection{Host: host, Port: port, Mountpoint: "MOUNT1", Protocol: config.REV2}

	policy, err := reconnect.New(1, time.Second, 10*time.Second)
	require.NoError(t, err)
	stoppedClock := clock.NewStoppedClock(2025, time.January, 2, 3, 4, 5, 0, time.UTC)

	o := newTestOrchestrator(t, caster.New(nil), policy, stoppedClock)
	require.NoError(t, o.Start(cfg))
	waitForState(t, o, Disconnected)

	assert.Equal(t, []time.Duration{time.Second}, stoppedClock.Waits())

	stats := o.Stats()
	assert.Equal(t, 1, stats.ReconnectAttempts)
	assert.Equal(t, uint64(0), stats.TotalBytes)
	assert.Equal(t, uint64(0), stats.TotalMessages)
	assert.False(t, stats.Connected)
	assert.Equal(t, "Disconnected after retries: Stream ended", stats.StatusMessage)

	want := []string{
		"Connecting...",
		"Connected",
		"Retrying in 1000ms: Stream ended",
		"Reconnecting... attempt 1/1",
		"Connected",
		"Disconnected after retries: Stream ended",
	}
	assert.Equal(t, want, eventMessages(o.RecentEvents()))
}

func TestCountersPreservedAcrossReconnect(t *testing.T) {
	first := [][]byte{
		utils.BuildFrame(unsupportedPayload),
		badCRC(utils.BuildFrame(unsupportedPayload)),
		{0x01, 0x02},
	}
	second := [][]byte{utils.BuildFrame(truncated1005)}

	var firstLen, secondLen int
	for _, b := range first {
		firstLen += len(b)
	}
	for _, b := range second {
		secondLen += len(b)
	}

	dialer := &fakeDialer{sessions: []io.ReadCloser{
		newBytesSession(first...),
		newBytesSession(second...),
	}}
	policy, err := reconnect.New(1, time.Millisecond, time.Millisecond)
	require.NoError(t, err)
	stoppedClock := clock.NewStoppedClock(2025, time.January, 2, 3, 4, 5, 0, time.UTC)

	o := newTestOrchestrator(t, dialer, policy, stoppedClock)
	require.NoError(t, o.Start(validConnection))
	waitForState(t, o, Disconnected)

	stats := o.Stats()
	assert.Equal(t, uint64(firstLen+secondLen), stats.TotalBytes)
	assert.Equal(t, uint64(3), stats.TotalMessages)
	assert.Equal(t, uint64(1), stats.CRCFailures)
	assert.Equal(t, uint64(1), stats.MalformedFrames)
	assert.Equal(t, map[int]uint64{1019: 2, 1005: 1}, stats.MessageCounts)
	assert.Equal(t, 1, stats.ReconnectAttempts)
	assert.Zero(t, stats.BytesPerSecond)
	assert.Zero(t, stats.MessagesPerSecond)
	assert.Equal(t, stoppedClock.Now(), stats.LastMessageAt)

	messages := o.RecentMessages()
	require.Len(t, messages, 3)
	assert.Equal(t, 1019, messages[0].MessageType)
	assert.False(t, messages[1].CRCValid)
	assert.True(t, messages[2].Malformed())

	assert.Equal(t, utils.BuildFrame(truncated1005), o.LastBuffer())
}

func TestRetriesExhausted(t *testing.T) {
	dialer := &fakeDialer{}
	policy, err := reconnect.New(3, time.Second, 2*time.Second)
	require.NoError(t, err)
	stoppedClock := clock.NewStoppedClock(2025, time.January, 2, 3, 4, 5, 0, time.UTC)

	o := newTestOrchestrator(t, dialer, policy, stoppedClock)
	require.NoError(t, o.Start(validConnection))
	waitForState(t, o, Disconnected)

	assert.Equal(t, 4, dialer.Calls())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 2 * time.Second},
		stoppedClock.Waits())
	assert.Equal(t, "Disconnected after retries: connection refused", o.Stats().StatusMessage)
	assert.Equal(t, 3, o.Stats().ReconnectAttempts)
}

func TestNoRetries(t *testing.T) {
	dialer := &fakeDialer{}
	policy, err := reconnect.New(0, time.Second, time.Second)
	require.NoError(t, err)
	stoppedClock := clock.NewStoppedClock(2025, time.January, 2, 3, 4, 5, 0, time.UTC)

	o := newTestOrchestrator(t, dialer, policy, stoppedClock)
	require.NoError(t, o.Start(validConnection))
	waitForState(t, o, Disconnected)

	assert.Equal(t, 1, dialer.Calls())
	assert.Empty(t, stoppedClock.Waits())
}

// TestStopUnblocksRead checks that Stop closes a session whose read is
// blocked.
func TestStopUnblocksRead(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	dialer := &fakeDialer{sessions: []io.ReadCloser{client}}
	o := newTestOrchestrator(t, dialer, nil, nil)

	require.NoError(t, o.Start(validConnection))
	waitForState(t, o, Streaming)

	stopped := make(chan struct{})
	go func() {
		o.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(waitFor):
		t.Fatal("Stop did not return")
	}

	assert.Equal(t, Disconnected, o.State())
	assert.Equal(t, "Stopped", o.Stats().StatusMessage)
	events := eventMessages(o.RecentEvents())
	assert.Equal(t, "Stopped by user", events[len(events)-1])
	assert.Equal(t, 1, dialer.Calls())

	// Stop is idempotent.
	o.Stop()
	events = eventMessages(o.RecentEvents())
	assert.Equal(t, 1, countOf(events, "Stopped by user"))
}

func countOf(list []string, s string) int {
	n := 0
	for _, v := range list {
		if v == s {
			n++
		}
	}
	return n
}

// TestStopDuringWait checks that Stop interrupts the wait before a
// reconnection.
func TestStopDuringWait(t *testing.T) {
	dialer := &fakeDialer{}
	policy, err := reconnect.New(5, time.Hour, time.Hour)
	require.NoError(t, err)

	o := newTestOrchestrator(t, dialer, policy, clock.NewSystemClock())
	require.NoError(t, o.Start(validConnection))
	waitForState(t, o, Reconnecting)

	o.Stop()
	assert.Equal(t, Disconnected, o.State())
	assert.Equal(t, 1, dialer.Calls())
}

func TestRestart(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	dialer := &fakeDialer{sessions: []io.ReadCloser{client, newBytesSession()}}
	policy, err := reconnect.New(0, time.Second, time.Second)
	require.NoError(t, err)

	o := newTestOrchestrator(t, dialer, policy, nil)
	require.NoError(t, o.Start(validConnection))
	waitForState(t, o, Streaming)

	// Starting again stops the first run.
	require.NoError(t, o.Start(validConnection))
	waitForState(t, o, Disconnected)
	assert.Equal(t, 2, dialer.Calls())
	assert.Equal(t, "Disconnected after retries: Stream ended", o.Stats().StatusMessage)
}

func TestSubscriptions(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	dialer := &fakeDialer{sessions: []io.ReadCloser{client}}

	o := newTestOrchestrator(t, dialer, nil, nil)
	messages := o.Subscribe()
	defer messages.Close()
	events := o.Events()
	defer events.Close()

	require.NoError(t, o.Start(validConnection))

	select {
	case e := <-events.C:
		assert.Equal(t, "Connecting...", e.Message)
	case <-time.After(waitFor):
		t.Fatal("no event")
	}

	go server.Write(utils.BuildFrame(unsupportedPayload))

	select {
	case m := <-messages.C:
		assert.Equal(t, 1019, m.MessageType)
		assert.True(t, m.CRCValid)
	case <-time.After(waitFor):
		t.Fatal("no message")
	}
}

func TestSubscriptionClosedByClose(t *testing.T) {
	o, err := New(Settings{Dialer: &fakeDialer{}})
	require.NoError(t, err)
	messages := o.Subscribe()

	o.Close()

	select {
	case _, ok := <-messages.C:
		assert.False(t, ok)
	case <-time.After(waitFor):
		t.Fatal("subscription not closed")
	}

	// Closing afterwards does no harm.
	messages.Close()
}

func TestStatsUpdatesLatestValue(t *testing.T) {
	o := newTestOrchestrator(t, &fakeDialer{}, nil, nil)

	o.publishStats(Statistics{StatusMessage: "one"})
	o.publishStats(Statistics{StatusMessage: "two"})

	got := <-o.StatsUpdates()
	assert.Equal(t, "two", got.StatusMessage)

	select {
	case s := <-o.StatsUpdates():
		t.Errorf("want no more updates got %q", s.StatusMessage)
	default:
	}
}

// timedSession delivers one chunk per read, moving the clock to the chunk's
// time first.  When the chunks run out it blocks until it's closed.
type timedSession struct {
	clock  *clock.SteppingClock
	times  []time.Time
	chunks [][]byte
	closed chan struct{}
	once   sync.Once
}

func newTimedSession(c *clock.SteppingClock) *timedSession {
	return &timedSession{clock: c, closed: make(chan struct{})}
}

// add queues data to be read at the given time.
func (s *timedSession) add(at time.Time, data ...[]byte) *timedSession {
	s.times = append(s.times, at)
	s.chunks = append(s.chunks, bytes.Join(data, nil))
	return s
}

func (s *timedSession) Read(p []byte) (int, error) {
	if len(s.chunks) > 0 {
		s.clock.SetTimes(s.times[0])
		n := copy(p, s.chunks[0])
		s.times = s.times[1:]
		s.chunks = s.chunks[1:]
		return n, nil
	}
	<-s.closed
	return 0, io.EOF
}

func (s *timedSession) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// TestRates checks that the byte and message rates are measured over the
// one second window while the stream is running.
func TestRates(t *testing.T) {
	start := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	steppingClock := clock.NewSteppingClock(start)

	frame := utils.BuildFrame(unsupportedPayload)
	session := newTimedSession(steppingClock).
		add(start.Add(500*time.Millisecond), frame, frame).
		add(start.Add(1500*time.Millisecond), frame)

	o := newTestOrchestrator(t, &fakeDialer{sessions: []io.ReadCloser{session}}, nil, steppingClock)
	require.NoError(t, o.Start(validConnection))

	require.Eventually(t, func() bool { return o.Stats().StatusMessage == statusStreaming },
		waitFor, time.Millisecond, "want status %q got %q", statusStreaming, o.Stats().StatusMessage)

	// Three 9-byte frames in 1.5 seconds.
	stats := o.Stats()
	assert.Equal(t, Streaming, stats.State)
	assert.True(t, stats.Connected)
	assert.Equal(t, uint64(27), stats.TotalBytes)
	assert.Equal(t, uint64(3), stats.TotalMessages)
	assert.InDelta(t, 18.0, stats.BytesPerSecond, 0.001)
	assert.InDelta(t, 2.0, stats.MessagesPerSecond, 0.001)
	assert.Equal(t, 1500*time.Millisecond, stats.SessionUptime)
	assert.Equal(t, start.Add(1500*time.Millisecond), stats.LastMessageAt)
}

// TestNoFrames checks the status when data arrives for over a second but
// none of it is RTCM.
func TestNoFrames(t *testing.T) {
	start := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	steppingClock := clock.NewSteppingClock(start)

	junk := []byte("$GPGGA,junk\r\n")
	session := newTimedSession(steppingClock).
		add(start.Add(400*time.Millisecond), junk).
		add(start.Add(1200*time.Millisecond), junk)

	o := newTestOrchestrator(t, &fakeDialer{sessions: []io.ReadCloser{session}}, nil, steppingClock)
	require.NoError(t, o.Start(validConnection))

	require.Eventually(t, func() bool { return o.Stats().StatusMessage == statusNoFrames },
		waitFor, time.Millisecond, "want status %q got %q", statusNoFrames, o.Stats().StatusMessage)

	stats := o.Stats()
	assert.Equal(t, Streaming, stats.State)
	assert.Equal(t, uint64(2*len(junk)), stats.TotalBytes)
	assert.Zero(t, stats.TotalMessages)
	assert.InDelta(t, float64(2*len(junk))/1.2, stats.BytesPerSecond, 0.001)
	assert.Zero(t, stats.MessagesPerSecond)
	assert.Empty(t, o.RecentMessages())

	// Stopping the blocked session gives the final state.
	o.Stop()
	assert.Equal(t, Disconnected, o.State())
	assert.Equal(t, statusStopped, o.Stats().StatusMessage)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "streaming", Streaming.String())
	assert.Equal(t, "state(99)", State(99).String())
	text, err := Reconnecting.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "reconnecting", string(text))
}
