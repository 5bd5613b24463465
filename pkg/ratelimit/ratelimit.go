// Package ratelimit paces outbound probes. The limiter holds a single
// slot, so probes are spaced at least 1/R seconds apart with no burst
// credit accruing while the caller is busy elsewhere.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter enforces a minimum inter-request interval of 1/perSecond.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter allowing perSecond requests per second. A
// non-positive rate disables pacing.
func New(perSecond float64) *Limiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{limiter: rate.NewLimiter(limit, 1)}
}

// Acquire blocks until issuing another request would not exceed the
// configured rate, or until ctx is done. This is the only suspension
// point in a scan session.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
