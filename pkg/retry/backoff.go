package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy chooses how long to pause after a failed attempt.
// Attempt numbers start at 1; attempt 0 never waits.
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
	Reset()
}

// ExponentialBackoff grows the pause by Multiplier per attempt, capped at
// MaxDelay, then spreads it by up to JitterFactor in either direction so
// parallel downloads do not hit the CDN in lockstep.
type ExponentialBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64
}

// DefaultExponentialBackoff pauses 1s, 2s, 4s... up to a minute
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2,
		JitterFactor: 0.1,
	}
}

func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	growth := math.Max(eb.Multiplier, 1)
	d := float64(eb.BaseDelay) * math.Pow(growth, float64(attempt-1))
	if eb.MaxDelay > 0 {
		d = math.Min(d, float64(eb.MaxDelay))
	}
	if eb.JitterFactor > 0 {
		d *= 1 + eb.JitterFactor*(2*rand.Float64()-1)
	}
	return time.Duration(math.Max(d, 0))
}

func (eb *ExponentialBackoff) Reset() {}

// ConstantBackoff pauses for the same Delay after every failure
type ConstantBackoff struct {
	Delay time.Duration
}

func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return cb.Delay
}

func (cb *ConstantBackoff) Reset() {}

// Wait sleeps for delay, returning early with ctx.Err() on cancellation
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
