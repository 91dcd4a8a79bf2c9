package reconnect

import (
	"errors"
	"testing"
	"time"
)

func TestDelayForAttempt(t *testing.T) {
	p, err := New(10, 1000*time.Millisecond, 10000*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		10000 * time.Millisecond,
		10000 * time.Millisecond,
	}
	for i, w := range want {
		attempt := i + 1
		if got := p.DelayForAttempt(attempt); w != got {
			t.Errorf("attempt %d: want %v got %v", attempt, w, got)
		}
	}
}

// TestLargeAttempts checks that a large attempt number doesn't overflow.
func TestLargeAttempts(t *testing.T) {
	p, err := New(1, time.Hour, 1000*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	for _, attempt := range []int{20, 21, 64, 100, 1 << 30} {
		if got := p.DelayForAttempt(attempt); got != 1000*time.Hour {
			t.Errorf("attempt %d: want 1000h got %v", attempt, got)
		}
	}
}

// TestLowAttempts checks that attempt numbers below 1 are treated as 1.
func TestLowAttempts(t *testing.T) {
	p := Default()
	for _, attempt := range []int{0, -1, -100} {
		if got := p.DelayForAttempt(attempt); got != time.Second {
			t.Errorf("attempt %d: want 1s got %v", attempt, got)
		}
	}
}

func TestDefault(t *testing.T) {
	p := Default()
	if p.MaxAttempts() != 5 || p.BaseDelay() != time.Second || p.MaxDelay() != 15*time.Second {
		t.Errorf("want 5 attempts 1s 15s got %s", p.String())
	}
	if got := p.DelayForAttempt(5); got != 15*time.Second {
		t.Errorf("want 15s got %v", got)
	}
	const want = "5 attempts, delay 1s rising to 15s"
	if p.String() != want {
		t.Errorf("want %s got %s", want, p.String())
	}
}

func TestNewErrors(t *testing.T) {
	var testData = []struct {
		description string
		maxAttempts int
		base, max   time.Duration
	}{
		{"negative attempts", -1, time.Second, time.Second},
		{"zero base", 1, 0, time.Second},
		{"negative base", 1, -time.Second, time.Second},
		{"max below base", 1, 2 * time.Second, time.Second},
	}
	for _, td := range testData {
		p, err := New(td.maxAttempts, td.base, td.max)
		if p != nil {
			t.Errorf("%s: want nil policy", td.description)
		}
		if !errors.Is(err, ErrInvalidPolicy) {
			t.Errorf("%s: want ErrInvalidPolicy got %v", td.description, err)
		}
	}

	// Zero attempts and equal delays are allowed.
	if _, err := New(0, time.Second, time.Second); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
