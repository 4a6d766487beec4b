// Package ratelimit spaces out outbound requests and provides the
// context-aware sleeps used between polling attempts.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Limiter hands out request slots at a fixed rate with optional positive
// jitter. It is safe for concurrent use. A nil or zero-rate Limiter never
// blocks.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	jitter   float64
	next     time.Time
}

// NewLimiter creates a limiter allowing rps requests per second. jitter is
// clamped to [0, 1] and adds up to jitter*interval of extra delay per slot.
func NewLimiter(rps float64, jitter float64) *Limiter {
	l := &Limiter{jitter: clamp(jitter)}
	if rps > 0 {
		l.interval = time.Duration(float64(time.Second) / rps)
	}
	return l
}

// Wait blocks until the caller's slot arrives or ctx is done. The first call
// on a fresh limiter returns immediately.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.interval <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := time.Now()
	slot := l.next
	if slot.Before(now) {
		slot = now
	}
	l.next = slot.Add(l.interval)
	l.mu.Unlock()

	delay := time.Until(slot)
	if l.jitter > 0 {
		delay += time.Duration(rand.Float64() * l.jitter * float64(l.interval))
	}
	return Pause(ctx, delay)
}

// Interval reports the spacing between slots, zero when unlimited.
func (l *Limiter) Interval() time.Duration {
	if l == nil {
		return 0
	}
	return l.interval
}

// Pause sleeps for d or until ctx is done, returning ctx.Err() in the latter
// case. Non-positive durations only check ctx.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
