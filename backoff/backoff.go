// Package backoff provides redelivery delay strategies for commands whose
// handling failed transiently (for example a store outage). The transport
// asks the strategy how long the broker should hold a message before
// redelivering it. All strategies are safe for concurrent use (they are
// stateless).
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a redelivery attempt.
type Strategy interface {
	// Delay returns how long to wait before redelivery attempt n
	// (1-indexed). Attempt 1 is the first redelivery after the initial
	// failure. Values below 1 are treated as 1.
	Delay(attempt int) time.Duration
}

// ceiling keeps uncapped delays well inside the int64 range of
// time.Duration.
const ceiling = float64(1 << 62)

// exp returns initial * 2^(attempt-1) capped at maxDelay (when positive),
// guarding against float overflow for large attempts.
func exp(initial, maxDelay time.Duration, attempt int) float64 {
	attempt = max(attempt, 1)
	base := float64(initial) * math.Pow(2, float64(attempt-1))
	if maxDelay > 0 && base > float64(maxDelay) {
		return float64(maxDelay)
	}
	return min(base, ceiling)
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant always returns the same delay regardless of attempt number.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Linear
// ──────────────────────────────────────────────────

// Linear increases the delay linearly with the attempt number.
// Delay = min(Initial * attempt, Max).
type Linear struct {
	Initial time.Duration
	Max     time.Duration
}

// NewLinear creates a linear backoff strategy.
func NewLinear(initial, maxDelay time.Duration) *Linear {
	return &Linear{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * attempt, capped at Max.
func (l *Linear) Delay(attempt int) time.Duration {
	d := l.Initial * time.Duration(max(attempt, 1))
	if l.Max > 0 && d > l.Max {
		return l.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential doubles the delay each attempt.
// Delay = min(Initial * 2^(attempt-1), Max).
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential creates an exponential backoff strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * 2^(attempt-1), capped at Max.
func (e *Exponential) Delay(attempt int) time.Duration {
	return time.Duration(exp(e.Initial, e.Max, attempt))
}

// ──────────────────────────────────────────────────
// ExponentialWithJitter (full jitter)
// ──────────────────────────────────────────────────

// ExponentialWithJitter applies full jitter to an exponential base.
// Delay = random value in [0, min(Initial * 2^(attempt-1), Max)].
type ExponentialWithJitter struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponentialWithJitter creates an exponential backoff with full jitter.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay}
}

// Delay returns a random duration in [0, min(Initial * 2^(attempt-1), Max)].
func (e *ExponentialWithJitter) Delay(attempt int) time.Duration {
	return time.Duration(rand.Float64() * exp(e.Initial, e.Max, attempt)) //nolint:gosec // jitter intentionally uses non-crypto rand
}

// ──────────────────────────────────────────────────
// EqualJitter
// ──────────────────────────────────────────────────

// EqualJitter keeps half of the exponential base and randomizes the other
// half. Delay = base/2 + random value in [0, base/2]. Unlike full jitter
// it never redelivers immediately, so a redelivered command does not hit
// an unavailable store again right away.
type EqualJitter struct {
	Initial time.Duration
	Max     time.Duration
}

// NewEqualJitter creates an exponential backoff with equal jitter.
func NewEqualJitter(initial, maxDelay time.Duration) *EqualJitter {
	return &EqualJitter{Initial: initial, Max: maxDelay}
}

// Delay returns a random duration in [base/2, base].
func (e *EqualJitter) Delay(attempt int) time.Duration {
	half := exp(e.Initial, e.Max, attempt) / 2
	return time.Duration(half + rand.Float64()*half) //nolint:gosec // jitter intentionally uses non-crypto rand
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultStrategy returns the default redelivery backoff:
// EqualJitter with 1s initial and 1m max.
func DefaultStrategy() Strategy {
	return NewEqualJitter(1*time.Second, 1*time.Minute)
}
