// Package ratelimit implements the leaky-bucket limiter guarding the
// broker adapter's request path, grounded on the source's
// asyncio-lock-protected deque-of-timestamps RateLimiter but built on
// golang.org/x/time/rate's token bucket, which gives the same
// trailing-window suspend-until-allowed semantics with a burst size
// equal to the per-window budget.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBudget is the default trading-request budget: 50 requests per
// 1-second trailing window.
const DefaultBudget = 50

// DefaultWindow is the default window width for DefaultBudget.
const DefaultWindow = time.Second

// Limiter suspends callers until a slot within the trailing window is
// free, mirroring acquire() in the source.
type Limiter struct {
	lim *rate.Limiter
}

// New returns a Limiter allowing budget requests per window, with burst
// capacity equal to budget so a cold start can use the full window
// immediately, matching the source's empty-deque fast path.
func New(budget int, window time.Duration) *Limiter {
	perSecond := float64(budget) / window.Seconds()
	return &Limiter{lim: rate.NewLimiter(rate.Limit(perSecond), budget)}
}

// NewDefault returns a Limiter using DefaultBudget over DefaultWindow.
func NewDefault() *Limiter {
	return New(DefaultBudget, DefaultWindow)
}

// Acquire blocks until a slot is available or ctx is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.lim.Wait(ctx)
}

// CurrentUsage reports how many tokens are currently in use, for
// telemetry purposes.
func (l *Limiter) CurrentUsage() float64 {
	return float64(l.lim.Burst()) - l.lim.Tokens()
}
