// The reconnect package decides how long to wait before each attempt to
// reconnect to a caster.  The delay doubles with each attempt, starting at
// a base delay, until it reaches a ceiling.
package reconnect

import (
	"errors"
	"fmt"
	"time"
)

// maxShift limits the doubling so that the delay can't overflow.
const maxShift = 20

// ErrInvalidPolicy is returned by New if the values make no sense.
var ErrInvalidPolicy = errors.New("invalid reconnect policy")

// Policy is an exponential backoff policy.  It's immutable and safe for
// concurrent use.
type Policy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// New creates a Policy.  maxAttempts must not be negative, baseDelay must
// be positive and maxDelay must be at least baseDelay.
func New(maxAttempts int, baseDelay, maxDelay time.Duration) (*Policy, error) {
	if maxAttempts < 0 {
		return nil, fmt.Errorf("%w: max attempts %d is negative", ErrInvalidPolicy, maxAttempts)
	}
	if baseDelay <= 0 {
		return nil, fmt.Errorf("%w: base delay %v is not positive", ErrInvalidPolicy, baseDelay)
	}
	if maxDelay < baseDelay {
		return nil, fmt.Errorf("%w: max delay %v is less than base delay %v",
			ErrInvalidPolicy, maxDelay, baseDelay)
	}
	return &Policy{maxAttempts: maxAttempts, baseDelay: baseDelay, maxDelay: maxDelay}, nil
}

// Default returns the policy used when none is configured:  5 attempts,
// starting at 1 second, rising to no more than 15 seconds.
func Default() *Policy {
	return &Policy{maxAttempts: 5, baseDelay: time.Second, maxDelay: 15 * time.Second}
}

// MaxAttempts returns the number of reconnection attempts allowed.
func (p *Policy) MaxAttempts() int {
	return p.maxAttempts
}

// BaseDelay returns the delay before the first attempt.
func (p *Policy) BaseDelay() time.Duration {
	return p.baseDelay
}

// MaxDelay returns the longest delay.
func (p *Policy) MaxDelay() time.Duration {
	return p.maxDelay
}

// DelayForAttempt returns the delay before the given attempt, counting from
// 1:  baseDelay * 2^(attempt-1), but no more than maxDelay.  An attempt
// less than 1 is treated as 1.
func (p *Policy) DelayForAttempt(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > maxShift {
		shift = maxShift
	}

	// Check for overflow before multiplying.  The result would be more
	// than maxDelay anyway.
	multiplier := time.Duration(1) << uint(shift)
	if p.baseDelay > p.maxDelay/multiplier {
		return p.maxDelay
	}

	delay := p.baseDelay * multiplier
	if delay > p.maxDelay {
		return p.maxDelay
	}
	return delay
}

// String returns a description of the policy.
func (p *Policy) String() string {
	return fmt.Sprintf("%d attempts, delay %v rising to %v", p.maxAttempts, p.baseDelay, p.maxDelay)
}
