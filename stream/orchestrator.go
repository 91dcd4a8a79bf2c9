// The stream package runs an NTRIP stream from start to finish.  The
// Orchestrator opens a session with the caster, feeds the bytes through the
// framer, decodes each frame, keeps the statistics and reconnects with
// exponential backoff when the stream fails.
//
// The work is done by a single worker goroutine.  The results come out
// through three outputs:  the decoded messages and the connection events
// are broadcast to subscribers, and the statistics are available as a
// latest-value snapshot:
//
//	o, err := stream.New(stream.Settings{Dialer: caster.New(logger), Logger: logger})
//	messages := o.Subscribe()
//	defer messages.Close()
//	o.Start(cfg.Connection)
//	for message := range messages.C {
//	    ...
//	}
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/goblimey/go-ntrip-analyser/circularqueue"
	"github.com/goblimey/go-ntrip-analyser/clock"
	"github.com/goblimey/go-ntrip-analyser/config"
	"github.com/goblimey/go-ntrip-analyser/reconnect"
	"github.com/goblimey/go-ntrip-analyser/rtcm/framer"
	"github.com/goblimey/go-ntrip-analyser/rtcm/handler"
)

// ReadBufferSize is the size of each read from the caster.
const ReadBufferSize = 4096

// Defaults for the Settings.
const (
	DefaultMessageHistory   = 200
	DefaultEventHistory     = 50
	DefaultSubscriberBuffer = 512
)

// The status messages.
const (
	statusConnecting   = "Connecting..."
	statusConnected    = "Connected"
	statusStreaming    = "Streaming"
	statusNoFrames     = "Connected: no RTCM frames yet (check mountpoint/GGA requirement)"
	statusDisconnected = "Disconnected"
	statusStopped      = "Stopped"
	statusStreamEnded  = "Stream ended"
	eventStoppedByUser = "Stopped by user"
)

// rateWindow is the period over which the rates are measured.
const rateWindow = time.Second

// ErrNoDialer is returned by New when the settings have no Dialer.
var ErrNoDialer = errors.New("a dialer is required")

// ErrStreamEnded is the error when the caster stops sending.
var ErrStreamEnded = errors.New(statusStreamEnded)

// Dialer opens a stream from a caster.  caster.Client is one.
type Dialer interface {
	Dial(ctx context.Context, cfg config.Connection) (io.ReadCloser, error)
}

// Settings holds the collaborators of an Orchestrator.  Only the Dialer is
// required.
type Settings struct {
	Dialer  Dialer
	Handler *handler.Handler
	Policy  *reconnect.Policy
	Clock   clock.Clock
	Logger  *slog.Logger

	// Capture, if not nil, receives every frame as it arrives.
	Capture io.Writer

	// MessageHistory and EventHistory are the number of recent messages
	// and events kept.  Zero means the default.
	MessageHistory int
	EventHistory   int

	// SubscriberBuffer is the buffer size of each subscription.
	SubscriberBuffer int
}

// Orchestrator runs the stream.  Its methods may be called from any
// goroutine.
type Orchestrator struct {
	dialer  Dialer
	handler *handler.Handler
	policy  *reconnect.Policy
	clock   clock.Clock
	logger  *slog.Logger
	capture io.Writer

	bus            *bus
	recentMessages *circularqueue.CircularQueue[handler.Message]
	recentEvents   *circularqueue.CircularQueue[Event]

	// statsMu guards stats and the handover through statsCh.
	statsMu sync.Mutex
	stats   Statistics
	statsCh chan Statistics

	// mu guards the fields of the current run.
	mu         sync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
	session    io.ReadCloser
	lastBuffer []byte
}

// New creates an Orchestrator in the Idle state.
func New(settings Settings) (*Orchestrator, error) {
	if settings.Dialer == nil {
		return nil, ErrNoDialer
	}
	if settings.MessageHistory < 0 || settings.EventHistory < 0 {
		em := fmt.Sprintf("history sizes must not be negative - got %d and %d",
			settings.MessageHistory, settings.EventHistory)
		return nil, errors.New(em)
	}

	o := Orchestrator{
		dialer:  settings.Dialer,
		handler: settings.Handler,
		policy:  settings.Policy,
		clock:   settings.Clock,
		logger:  settings.Logger,
		capture: settings.Capture,
		statsCh: make(chan Statistics, 1),
	}

	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.handler == nil {
		o.handler = handler.New(o.logger)
	}
	if o.policy == nil {
		o.policy = reconnect.Default()
	}
	if o.clock == nil {
		o.clock = clock.NewSystemClock()
	}

	messageHistory := withDefault(settings.MessageHistory, DefaultMessageHistory)
	eventHistory := withDefault(settings.EventHistory, DefaultEventHistory)
	o.recentMessages = circularqueue.NewCircularQueue[handler.Message](messageHistory)
	o.recentEvents = circularqueue.NewCircularQueue[Event](eventHistory)
	o.bus = newBus(withDefault(settings.SubscriberBuffer, DefaultSubscriberBuffer))

	o.stats = Statistics{State: Idle, MessageCounts: make(map[int]uint64)}

	return &o, nil
}

func withDefault(n, def int) int {
	if n == 0 {
		return def
	}
	return n
}

// Start begins streaming from the caster described by cfg.  Any run already
// in progress is stopped first.  If the configuration is invalid, the state
// becomes Disconnected with the error as the status message, no connection
// is attempted and the error is returned.
func (o *Orchestrator) Start(cfg config.Connection) error {

	o.halt()

	if err := cfg.Validate(); err != nil {
		stats := o.Stats()
		stats.Connected = false
		stats.State = Disconnected
		stats.StatusMessage = err.Error()
		stats.BytesPerSecond = 0
		stats.MessagesPerSecond = 0
		o.publishStats(stats)
		o.event(err.Error())
		return err
	}

	o.logger.Info("start", "connection", cfg.String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	o.mu.Lock()
	o.cancel = cancel
	o.done = done
	o.mu.Unlock()

	o.publishStats(Statistics{
		State:         Connecting,
		StatusMessage: statusConnecting,
		MessageCounts: make(map[int]uint64),
	})

	go o.run(ctx, cfg, done)

	return nil
}

// Stop ends the current run.  It cancels the work in progress, closing the
// session to unblock a read, and waits for the worker to finish.  Calling
// Stop when nothing is running has no effect.
func (o *Orchestrator) Stop() {
	if !o.halt() {
		return
	}

	stats := o.Stats()
	stats.Connected = false
	stats.State = Disconnected
	stats.StatusMessage = statusStopped
	stats.BytesPerSecond = 0
	stats.MessagesPerSecond = 0
	o.publishStats(stats)
	o.event(eventStoppedByUser)
}

// halt cancels the current run and waits for the worker.  It returns true
// if the worker was still running.
func (o *Orchestrator) halt() bool {
	o.mu.Lock()
	cancel := o.cancel
	done := o.done
	o.cancel = nil
	o.done = nil
	if cancel != nil {
		cancel()
	}
	if o.session != nil {
		o.session.Close()
	}
	o.mu.Unlock()

	if done == nil {
		return false
	}

	running := true
	select {
	case <-done:
		running = false
	default:
	}

	<-done
	return running
}

// Close stops the run and closes all of the subscriptions.  The
// Orchestrator can't be used afterwards.
func (o *Orchestrator) Close() {
	o.Stop()
	o.bus.shutdown()
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	return o.stats.State
}

// Stats returns the latest statistics.
func (o *Orchestrator) Stats() Statistics {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	return o.stats
}

// StatsUpdates returns a channel that holds the latest statistics.  A new
// snapshot replaces one that hasn't been read, so a slow reader only ever
// sees the latest.
func (o *Orchestrator) StatsUpdates() <-chan Statistics {
	return o.statsCh
}

// Subscribe returns a subscription to the decoded messages.
func (o *Orchestrator) Subscribe() *Subscription[handler.Message] {
	return subscribe[handler.Message](o.bus, topicMessages)
}

// Events returns a subscription to the connection events.
func (o *Orchestrator) Events() *Subscription[Event] {
	return subscribe[Event](o.bus, topicEvents)
}

// RecentMessages returns the most recent messages, oldest first.
func (o *Orchestrator) RecentMessages() []handler.Message {
	return o.recentMessages.GetItems()
}

// RecentEvents returns the most recent events, oldest first.
func (o *Orchestrator) RecentEvents() []Event {
	return o.recentEvents.GetItems()
}

// LastBuffer returns a copy of the data from the last read.
func (o *Orchestrator) LastBuffer() []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	buffer := make([]byte, len(o.lastBuffer))
	copy(buffer, o.lastBuffer)
	return buffer
}

// publishStats makes stats the latest snapshot.
func (o *Orchestrator) publishStats(stats Statistics) {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	o.stats = stats
	select {
	case <-o.statsCh:
	default:
	}
	o.statsCh <- stats
}

// event records a connection event and broadcasts it.
func (o *Orchestrator) event(message string) {
	e := Event{Timestamp: o.clock.Now(), Message: message}
	o.recentEvents.Add(e)
	o.bus.publish(e, topicEvents)
	o.logger.Info("event", "message", message)
}

// run is the worker.  It connects, streams until the session fails and
// reconnects until the policy gives up or the context is cancelled.  When
// the context is cancelled, Stop publishes the final state.
func (o *Orchestrator) run(ctx context.Context, cfg config.Connection, done chan struct{}) {
	defer close(done)

	startAt := o.clock.Now()
	c := newCounters()
	attempts := 0
	var lastErr error

	for {
		status := statusConnecting
		if attempts > 0 {
			status = fmt.Sprintf("Reconnecting... attempt %d/%d", attempts, o.policy.MaxAttempts())
		}
		o.event(status)
		o.publishCounters(c, Connecting, false, status, attempts, startAt)

		lastErr = o.stream(ctx, cfg, c, attempts, startAt)
		if ctx.Err() != nil {
			return
		}

		o.logger.Warn("session ended", "error", lastErr, "attempts", attempts)

		if attempts >= o.policy.MaxAttempts() {
			break
		}

		attempts++
		delay := o.policy.DelayForAttempt(attempts)
		status = fmt.Sprintf("Retrying in %dms: %v", delay.Milliseconds(), lastErr)
		o.publishCounters(c, Reconnecting, false, status, attempts, startAt)
		o.event(status)

		select {
		case <-ctx.Done():
			return
		case <-o.clock.After(delay):
		}
	}

	status := statusDisconnected
	if lastErr != nil {
		status = fmt.Sprintf("Disconnected after retries: %v", lastErr)
	}
	o.publishCounters(c, Disconnected, false, status, attempts, startAt)
	o.event(status)
}

// publishCounters publishes the counters with zero rates.
func (o *Orchestrator) publishCounters(c *counters, state State, connected bool, status string, attempts int, startAt time.Time) {
	stats := c.snapshot()
	stats.State = state
	stats.Connected = connected
	stats.StatusMessage = status
	stats.ReconnectAttempts = attempts
	stats.SessionUptime = o.clock.Now().Sub(startAt)
	o.publishStats(stats)
}

// stream runs one session.  It always returns an error saying why the
// session ended.
func (o *Orchestrator) stream(ctx context.Context, cfg config.Connection, c *counters, attempts int, startAt time.Time) error {

	session, err := o.dialer.Dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	o.mu.Lock()
	o.session = session
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.session = nil
		o.mu.Unlock()
	}()

	// Stop may have run before the session was recorded.
	if ctx.Err() != nil {
		return ctx.Err()
	}

	o.publishCounters(c, Streaming, true, statusConnected, attempts, startAt)
	o.event(statusConnected)

	f := framer.New()
	buffer := make([]byte, ReadBufferSize)
	windowStart := o.clock.Now()
	var windowBytes, windowMessages uint64

	for {
		n, readErr := session.Read(buffer)

		if n > 0 {
			now := o.clock.Now()
			c.totalBytes += uint64(n)
			windowBytes += uint64(n)

			o.mu.Lock()
			o.lastBuffer = append(o.lastBuffer[:0], buffer[:n]...)
			o.mu.Unlock()

			for _, frame := range f.Push(buffer[:n]) {
				o.handleFrame(frame, now, c)
				windowMessages++
			}

			if elapsed := now.Sub(windowStart); elapsed >= rateWindow {
				status := statusStreaming
				if c.totalBytes > 0 && c.totalMessages == 0 {
					status = statusNoFrames
				}
				stats := c.snapshot()
				stats.State = Streaming
				stats.Connected = true
				stats.StatusMessage = status
				stats.ReconnectAttempts = attempts
				stats.SessionUptime = now.Sub(startAt)
				stats.BytesPerSecond = float64(windowBytes) / elapsed.Seconds()
				stats.MessagesPerSecond = float64(windowMessages) / elapsed.Seconds()
				o.publishStats(stats)

				windowStart = now
				windowBytes = 0
				windowMessages = 0
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return ErrStreamEnded
			}
			return fmt.Errorf("reading from caster: %w", readErr)
		}
		if n == 0 {
			return ErrStreamEnded
		}
	}
}

// handleFrame decodes a frame, counts it, captures it and sends it to the
// subscribers.
func (o *Orchestrator) handleFrame(frame framer.Frame, now time.Time, c *counters) {
	message := o.handler.Decode(frame, now)

	c.totalMessages++
	c.messageCounts[message.MessageType]++
	c.lastMessageAt = now
	if !message.CRCValid {
		c.crcFailures++
	}
	if message.Malformed() {
		c.malformed++
	}

	if o.capture != nil {
		if _, err := o.capture.Write(frame.RawData); err != nil {
			o.logger.Warn("capture", "error", err)
		}
	}

	o.recentMessages.Add(*message)
	o.bus.publish(*message, topicMessages)
}
