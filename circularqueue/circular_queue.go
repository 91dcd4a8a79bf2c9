// CircularQueue implements a circular queue, used to keep the most recent
// decoded messages and connection events for display.
//
// NewCircularQueue[T](n) creates a circular queue that holds up to n items.
//
// Add(item) adds an item to the queue.  If the queue is already full, it
// removes the oldest item to make way for the new one.
//
// GetItems() gets the items in the circular queue as a slice, in the order
// in which they were added.
package circularqueue

import (
	"sync"
)

// CircularQueue holds a limited number of items.  If an item is added and
// the buffer is already full, the oldest item is removed to make way for
// the new one.  The buffer is safe against asynchronous access.
type CircularQueue[T any] struct {
	// maxItems is the maximum number of items in the circular queue.
	maxItems int

	// items holds the contents.  Once the queue is full, next is the
	// index of the oldest item.
	items []T
	next  int

	// added counts the items added over the life of the queue.
	added uint64

	mutex sync.RWMutex
}

// NewCircularQueue creates a new circular queue.  A queue with a maximum
// size less than 1 holds nothing.
func NewCircularQueue[T any](max int) *CircularQueue[T] {
	if max < 0 {
		max = 0
	}
	return &CircularQueue[T]{maxItems: max, items: make([]T, 0, max)}
}

// Add adds a new item to the queue, removing the oldest if necessary.
func (cq *CircularQueue[T]) Add(item T) {
	cq.mutex.Lock()
	defer cq.mutex.Unlock()

	cq.added++

	if cq.maxItems == 0 {
		return
	}

	if len(cq.items) < cq.maxItems {
		cq.items = append(cq.items, item)
		return
	}

	// The queue is full.  Overwrite the oldest item.
	cq.items[cq.next] = item
	cq.next = (cq.next + 1) % cq.maxItems
}

// GetItems gets the items in the circular queue as a slice, in the order
// that they were added.  The slice is a copy.
func (cq *CircularQueue[T]) GetItems() []T {
	cq.mutex.RLock()
	defer cq.mutex.RUnlock()

	result := make([]T, 0, len(cq.items))
	result = append(result, cq.items[cq.next:]...)
	result = append(result, cq.items[:cq.next]...)
	return result
}

// Len returns the number of items in the queue.
func (cq *CircularQueue[T]) Len() int {
	cq.mutex.RLock()
	defer cq.mutex.RUnlock()
	return len(cq.items)
}

// Added returns the number of items added since the queue was created,
// including those that have since been removed.
func (cq *CircularQueue[T]) Added() uint64 {
	cq.mutex.RLock()
	defer cq.mutex.RUnlock()
	return cq.added
}
