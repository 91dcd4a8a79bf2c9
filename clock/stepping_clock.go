package clock

import (
	"sync"
	"time"
)

// SteppingClock is a Clock that returns a given series of time values,
// one at a time.  It's useful in a test case that makes a series of calls
// to get the current time.
//
// NewSteppingClock takes a slice of time values.  Each call of Now()
// returns the next one of these.  Once Now() has returned all the values,
// any subsequent call returns the last value.
type SteppingClock struct {
	mutex    sync.Mutex
	nextTime int         // The next time to be returned.
	times    []time.Time // The list of times to be returned.
	waitRecorder
}

// This is a compile-time check that SteppingClock implements Clock.
var _ Clock = (*SteppingClock)(nil)

// NewSteppingClock creates a SteppingClock.
func NewSteppingClock(times ...time.Time) *SteppingClock {
	return &SteppingClock{times: times}
}

// SetTimes sets the list of times to return and starts again from the
// first one.
func (c *SteppingClock) SetTimes(times ...time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.times = times
	c.nextTime = 0
}

// Now returns the next time value from the list.  If previous calls have
// reached the end of the list, it returns the last time value again.  If
// the list is empty, it returns the UNIX Epoch.
func (c *SteppingClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now()
}

func (c *SteppingClock) now() time.Time {
	if len(c.times) == 0 {
		return time.Unix(0, 0).UTC()
	}
	if c.nextTime == len(c.times) {
		// We have reached the end of the list.
		return c.times[len(c.times)-1]
	}

	result := c.times[c.nextTime]
	c.nextTime++
	return result
}

// After records the duration and fires immediately, delivering the next
// time in the list plus the duration.
func (c *SteppingClock) After(d time.Duration) <-chan time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.after(c.now(), d)
}

// Waits returns the durations passed to After so far.
func (c *SteppingClock) Waits() []time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	result := make([]time.Duration, len(c.waits))
	copy(result, c.waits)
	return result
}
