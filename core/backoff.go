package core

import (
	"context"
	"time"
)

const (
	defaultBackoffInitialDelay = time.Second
	defaultBackoffMaxDelay     = 60 * time.Second
	defaultBackoffBudget       = 600 * time.Second
)

// Backoff produces Fibonacci-growing delays between reconnect attempts. Each
// delay is capped at maxDelay and the sum of all delays handed out never
// exceeds the cumulative budget; once the budget is spent, Next reports false
// and the caller must give up.
type Backoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	budget       time.Duration

	prev    time.Duration
	current time.Duration
	spent   time.Duration
}

func NewBackoff(initialDelay, maxDelay, budget time.Duration) *Backoff {
	return &Backoff{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		budget:       budget,
	}
}

func NewDefaultBackoff() *Backoff {
	return NewBackoff(defaultBackoffInitialDelay, defaultBackoffMaxDelay, defaultBackoffBudget)
}

// Next returns the delay before the next attempt. The second return value is
// false when the cumulative budget is exhausted.
func (b *Backoff) Next() (time.Duration, bool) {
	if b.spent >= b.budget {
		return 0, false
	}

	if b.current == 0 {
		b.current = b.initialDelay
	} else {
		b.prev, b.current = b.current, b.prev+b.current
	}

	delay := b.current
	if delay > b.maxDelay {
		delay = b.maxDelay
	}
	// the last delay is clamped so the total never exceeds the budget
	if remaining := b.budget - b.spent; delay > remaining {
		delay = remaining
	}
	b.spent += delay

	return delay, true
}

// Reset restarts the progression after a successful reconnect.
func (b *Backoff) Reset() {
	b.prev = 0
	b.current = 0
	b.spent = 0
}

// Wait sleeps for the given delay unless the context ends first.
func Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
