package stream

import (
	"sync"

	"github.com/cskr/pubsub"
)

// Topics on the message bus.
const (
	topicMessages = "messages"
	topicEvents   = "events"
)

// bus wraps a PubSub so that nothing is sent to it after shutdown.  Only
// TryPub is used, so a slow subscriber never holds up the publisher.
type bus struct {
	mu     sync.Mutex
	ps     *pubsub.PubSub
	closed bool
}

func newBus(capacity int) *bus {
	return &bus{ps: pubsub.New(capacity)}
}

func (b *bus) publish(msg interface{}, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.ps.TryPub(msg, topic)
}

func (b *bus) sub(topic string) chan interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		ch := make(chan interface{})
		close(ch)
		return ch
	}
	return b.ps.Sub(topic)
}

func (b *bus) unsub(ch chan interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.ps.Unsub(ch)
}

// shutdown closes all of the subscriber channels.
func (b *bus) shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.ps.Shutdown()
}

// Subscription delivers the values published on one topic.  If the
// subscriber doesn't keep up, values are dropped rather than holding up the
// stream.  When its buffer is full the newest value is the one lost and
// the values already queued are kept.  C is closed when the subscription is closed or the orchestrator
// is closed.
type Subscription[T any] struct {
	C <-chan T

	bus  *bus
	raw  chan interface{}
	done chan struct{}
	once sync.Once
}

func subscribe[T any](b *bus, topic string) *Subscription[T] {
	raw := b.sub(topic)
	out := make(chan T)
	s := &Subscription[T]{C: out, bus: b, raw: raw, done: make(chan struct{})}

	go func() {
		defer close(out)
		for v := range raw {
			item, ok := v.(T)
			if !ok {
				continue
			}
			select {
			case out <- item:
			case <-s.done:
				return
			}
		}
	}()

	return s
}

// Close ends the subscription.  It may be called more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		close(s.done)
		s.bus.unsub(s.raw)
	})
}
