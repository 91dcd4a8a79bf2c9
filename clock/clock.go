package clock

import (
	"time"
)

// Clock provides a clock service as an alternative to using the standard
// time package.  The intention is that testing and production code be
// 'plug compatible'.  This supports non-invasive testing of software that
// handles events triggered by the system clock, such as the stream's
// one-second statistics window and the wait before a reconnection.  In a
// real application Now yields the system time and After waits for the
// given duration.  In test they can yield suitable chosen values.
//
// Known types that respect this interface are:
//
//	SystemClock, whose methods use the system time.
//	StoppedClock, whose Now method always returns the same time.
//	SteppingClock, whose Now method returns a given series of times.
//
// The StoppedClock and the SteppingClock don't wait:  After fires at once
// and the duration asked for is recorded.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// waitRecorder records the durations passed to After by the test clocks.
type waitRecorder struct {
	waits []time.Duration
}

// after records the duration and returns a channel that fires at once,
// delivering now plus the duration.
func (w *waitRecorder) after(now time.Time, d time.Duration) <-chan time.Time {
	w.waits = append(w.waits, d)
	ch := make(chan time.Time, 1)
	ch <- now.Add(d)
	return ch
}
