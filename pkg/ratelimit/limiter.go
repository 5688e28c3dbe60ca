package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter gates outgoing requests
type Limiter interface {
	// Allow consumes a slot if one is free, without blocking
	Allow() bool
	// Wait blocks until a slot is free or ctx ends
	Wait(ctx context.Context) error
	Reset()
}

// New returns a limiter allowing n requests per period. strategy is
// "token_bucket" or "sliding_window"; anything else gets a sliding window.
func New(strategy string, n int, period time.Duration) Limiter {
	if strategy == "token_bucket" {
		return NewTokenBucket(n, period)
	}
	return NewSlidingWindow(n, period)
}

// minPoll bounds how often a blocked Wait re-checks the limiter
const minPoll = 10 * time.Millisecond

// TokenBucket hands out capacity tokens, then refills all of them once
// period has elapsed since the last refill.
type TokenBucket struct {
	mu       sync.Mutex
	capacity int
	period   time.Duration
	left     int
	filledAt time.Time
	now      func() time.Time
}

func NewTokenBucket(capacity int, period time.Duration) *TokenBucket {
	tb := &TokenBucket{capacity: capacity, period: period, now: time.Now}
	tb.Reset()
	return tb
}

func (tb *TokenBucket) Allow() bool {
	ok, _ := tb.take()
	return ok
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	return wait(ctx, tb.take)
}

func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	tb.left = tb.capacity
	tb.filledAt = tb.now()
	tb.mu.Unlock()
}

// take consumes a token, or reports how long until the next refill
func (tb *TokenBucket) take() (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	if since := now.Sub(tb.filledAt); since >= tb.period {
		tb.left = tb.capacity
		tb.filledAt = now
	}
	if tb.left > 0 {
		tb.left--
		return true, 0
	}
	return false, tb.period - now.Sub(tb.filledAt)
}

// SlidingWindow allows at most limit requests in any trailing window.
// Request times are kept oldest first.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
	now    func() time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:  limit,
		window: window,
		stamps: make([]time.Time, 0, limit),
		now:    time.Now,
	}
}

func (sw *SlidingWindow) Allow() bool {
	ok, _ := sw.take()
	return ok
}

func (sw *SlidingWindow) Wait(ctx context.Context) error {
	return wait(ctx, sw.take)
}

func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	sw.stamps = sw.stamps[:0]
	sw.mu.Unlock()
}

// take records a request, or reports how long until the oldest one
// leaves the window
func (sw *SlidingWindow) take() (bool, time.Duration) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	cutoff := now.Add(-sw.window)
	expired := 0
	for expired < len(sw.stamps) && sw.stamps[expired].Before(cutoff) {
		expired++
	}
	sw.stamps = append(sw.stamps[:0], sw.stamps[expired:]...)

	if len(sw.stamps) < sw.limit {
		sw.stamps = append(sw.stamps, now)
		return true, 0
	}
	if len(sw.stamps) == 0 {
		return false, 0
	}
	return false, sw.stamps[0].Add(sw.window).Sub(now)
}

func wait(ctx context.Context, take func() (bool, time.Duration)) error {
	for {
		ok, retryIn := take()
		if ok {
			return nil
		}
		if retryIn < minPoll {
			retryIn = minPoll
		}
		t := time.NewTimer(retryIn)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
