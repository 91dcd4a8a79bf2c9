package clock

import (
	"time"
)

// SystemClock satisfies the Clock interface by supplying the system time.
type SystemClock struct {
}

// This is a compile-time check that SystemClock implements Clock.
var _ Clock = (*SystemClock)(nil)

// NewSystemClock creates a system clock and returns it as a Clock.
func NewSystemClock() Clock {
	var systemClock SystemClock
	return &systemClock
}

// Now returns the system time.
func (c SystemClock) Now() time.Time {
	return time.Now()
}

// After waits for the duration to elapse and then sends the current time
// on the returned channel.
func (c SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
