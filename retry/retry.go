// Package retry provides retry policies that request transport-level retries
// by stamping a dispatch with envelope.RetryStamp.
//
// The policies only describe retries. Executing them is up to the transport
// consuming the message, which can use Backoff to compute wait durations.
package retry

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/policy"
)

// Policy requests retries with exponential backoff.
type Policy struct {
	// MaxAttempts limits the total number of attempts, including the first.
	// Default is 3.
	MaxAttempts int

	// Delay is the wait before the first retry. Default is 1 second.
	Delay time.Duration

	// Multiplier grows the delay per attempt. Values below 1 mean a
	// constant delay.
	Multiplier float64

	// MaxDelay caps the delay. Zero means no cap.
	MaxDelay time.Duration

	// Jitter randomizes each delay: 0.0 = none, 0.2 = ±20%.
	Jitter float64

	// AsyncOnly restricts the policy to asynchronous dispatch.
	AsyncOnly bool
}

func (p Policy) parse() Policy {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 3
	}
	if p.Delay <= 0 {
		p.Delay = time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Jitter > 1 {
		p.Jitter = 1
	}
	return p
}

// RetryStamps implements policy.RetryPolicy.
func (p Policy) RetryStamps(_ any, mode busroute.Mode) []envelope.Stamp {
	if p.AsyncOnly && mode != busroute.Async {
		return nil
	}
	p = p.parse()
	return []envelope.Stamp{envelope.RetryStamp{
		MaxAttempts: p.MaxAttempts,
		Delay:       p.Delay,
		Multiplier:  p.Multiplier,
		MaxDelay:    p.MaxDelay,
		Jitter:      p.Jitter,
	}}
}

// Constant creates a policy with a fixed delay between attempts.
func Constant(maxAttempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: maxAttempts, Delay: delay, Multiplier: 1}
}

// Exponential creates a policy whose delay grows by factor per attempt.
func Exponential(maxAttempts int, initialDelay time.Duration, factor float64, maxDelay time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Delay:       initialDelay,
		Multiplier:  factor,
		MaxDelay:    maxDelay,
	}
}

// Combine returns a policy contributing the stamps of all policies in order.
func Combine(policies ...policy.RetryPolicy) policy.RetryPolicy {
	return policy.RetryPolicyFunc(func(msg any, mode busroute.Mode) []envelope.Stamp {
		var stamps []envelope.Stamp
		for _, p := range policies {
			stamps = append(stamps, p.RetryStamps(msg, mode)...)
		}
		return stamps
	})
}

// BackoffFunc returns the wait duration for a retry attempt.
// The attempt parameter is one-based (1 for first retry, 2 for second, etc.).
type BackoffFunc func(attempt int) time.Duration

// ConstantBackoff creates a backoff function that returns a constant duration with optional jitter.
func ConstantBackoff(delay time.Duration, jitter float64) BackoffFunc {
	applyJitter := newApplyJitterFunc(jitter)
	return func(attempt int) time.Duration {
		return applyJitter(delay)
	}
}

// ExponentialBackoff creates a backoff function with exponential backoff and jitter.
// Each retry attempt uses initialDelay * factor^(attempt-1) with random jitter applied.
// The maxDelay parameter caps the maximum backoff duration (0 = no limit).
func ExponentialBackoff(initialDelay time.Duration, factor float64, maxDelay time.Duration, jitter float64) BackoffFunc {
	applyJitter := newApplyJitterFunc(jitter)
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		backoff := time.Duration(float64(initialDelay) * math.Pow(factor, float64(attempt-1)))
		if maxDelay > 0 && backoff > maxDelay {
			backoff = maxDelay
		}
		return applyJitter(backoff)
	}
}

// Backoff returns the backoff function described by s.
func Backoff(s envelope.RetryStamp) BackoffFunc {
	if s.Multiplier <= 1 {
		return ConstantBackoff(s.Delay, s.Jitter)
	}
	return ExponentialBackoff(s.Delay, s.Multiplier, s.MaxDelay, s.Jitter)
}

func newApplyJitterFunc(jitter float64) func(d time.Duration) time.Duration {
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	return func(d time.Duration) time.Duration {
		if jitter == 0 {
			return d
		}
		jitterFactor := 1.0 + (rand.Float64()*2*jitter - jitter)
		return time.Duration(float64(d) * jitterFactor)
	}
}

var _ policy.RetryPolicy = Policy{}
