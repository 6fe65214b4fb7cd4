package transport

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter throttles how fast a worker receives.
type Limiter interface {
	// Wait blocks until one envelope may be received or ctx is done.
	Wait(ctx context.Context) error
}

// LimiterFunc adapts a function to Limiter.
type LimiterFunc func(ctx context.Context) error

// Wait calls f.
func (f LimiterFunc) Wait(ctx context.Context) error {
	return f(ctx)
}

// NewRateLimiter returns a token bucket limiter that admits r envelopes per
// second with bursts of up to burst envelopes. The bucket starts full.
// Panics if r or burst is not positive.
func NewRateLimiter(r float64, burst int) *rate.Limiter {
	if r <= 0 || burst <= 0 {
		panic(fmt.Sprintf("transport: invalid rate limit %v/s burst %d", r, burst))
	}
	return rate.NewLimiter(rate.Limit(r), burst)
}

var _ Limiter = (*rate.Limiter)(nil)
