// Package ratelimit paces outgoing requests. It wraps a token-bucket
// limiter and adds optional jitter so request timing doesn't form a
// mechanical pattern.
package ratelimit

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// Limiter controls the rate of operations. A nil Limiter, or one built with
// rps <= 0, never blocks. Safe for concurrent use.
type Limiter struct {
	limiter  *rate.Limiter
	jitter   float64
	interval time.Duration
}

// NewLimiter creates a limiter allowing rps requests per second with a
// jitter factor between 0.0 and 1.0 applied on top of each wait.
func NewLimiter(rps float64, jitter float64) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	return &Limiter{
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		jitter:   jitter,
		interval: time.Duration(float64(time.Second) / rps),
	}
}

// Wait blocks until the next operation may proceed or ctx is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	if l.jitter > 0 {
		// Only positive jitter: the token bucket already enforces the
		// minimum spacing, so we can only delay, never run early.
		extra := time.Duration(rand.Float64() * l.jitter * float64(l.interval))
		if extra > 0 {
			select {
			case <-time.After(extra):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}
