package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBusDropsNewest checks that when a subscriber's buffer is full the
// values published after that are lost and the queued ones are kept.
func TestBusDropsNewest(t *testing.T) {
	b := newBus(2)
	defer b.shutdown()
	ch := b.sub(topicMessages)

	for i := 1; i <= 5; i++ {
		b.publish(i, topicMessages)
	}
	// The bus handles one command at a time, so once this is accepted the
	// values above have all been offered to the subscriber.
	b.publish(0, topicEvents)

	got := make([]interface{}, 0, 2)
	for len(ch) > 0 {
		got = append(got, <-ch)
	}

	assert.Equal(t, []interface{}{1, 2}, got)
}

func TestBusAfterShutdown(t *testing.T) {
	b := newBus(2)
	b.shutdown()

	// Nothing is sent and a new subscription is already closed.
	b.publish(1, topicMessages)
	_, ok := <-b.sub(topicMessages)
	assert.False(t, ok)

	// A second shutdown does no harm.
	b.shutdown()
}
