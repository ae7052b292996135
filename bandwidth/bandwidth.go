// Package bandwidth implements a token-bucket rate governor for
// replication traffic, wrapping golang.org/x/time/rate so call sites pay
// per byte transferred rather than per call.
package bandwidth

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles byte throughput to a configured rate. A nil *Limiter
// is unlimited, so callers can hold one as an optional field without a
// separate "has limit" check.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter builds a limiter admitting bytesPerSec bytes per second, with
// a one-second burst allowance. bytesPerSec <= 0 yields an unlimited
// limiter.
func NewLimiter(bytesPerSec int64) *Limiter {
	if bytesPerSec <= 0 {
		return nil
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(bytesPerSec), int(bytesPerSec))}
}

// WaitN blocks until n bytes' worth of budget is available or ctx is
// cancelled. Called with a nil receiver, it returns immediately.
func (l *Limiter) WaitN(ctx context.Context, n int) error {
	if l == nil || l.rl == nil {
		return nil
	}
	return l.rl.WaitN(ctx, n)
}

// Limit reports the configured bytes-per-second rate, or 0 if unlimited.
func (l *Limiter) Limit() float64 {
	if l == nil || l.rl == nil {
		return 0
	}
	return float64(l.rl.Limit())
}
