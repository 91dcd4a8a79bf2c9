package clock

import (
	"sync"
	"time"
)

// StoppedClock is a Clock that implements unchanging time.
type StoppedClock struct {
	mutex sync.Mutex
	time  time.Time
	waitRecorder
}

var _ Clock = (*StoppedClock)(nil) // Ensure that StoppedClock implements Clock.

// NewStoppedClock creates a StoppedClock.
func NewStoppedClock(year int, month time.Month, day, hour, minute, second, nanosecond int, location *time.Location) *StoppedClock {
	time := time.Date(year, month, day, hour, minute, second, nanosecond, location)
	return &StoppedClock{time: time}
}

// SetTime sets a new unchanging time.
func (c *StoppedClock) SetTime(time time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.time = time
}

// Now always returns the same time.
func (c *StoppedClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.time
}

// After records the duration and fires immediately.  The time doesn't
// change.
func (c *StoppedClock) After(d time.Duration) <-chan time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.after(c.time, d)
}

// Waits returns the durations passed to After so far.
func (c *StoppedClock) Waits() []time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	result := make([]time.Duration, len(c.waits))
	copy(result, c.waits)
	return result
}
