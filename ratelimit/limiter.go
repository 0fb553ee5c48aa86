// Package ratelimit provides a token-bucket rate limiter backed by
// golang.org/x/time/rate, used as an optional gate in front of wrapped
// operations so a storm of cache misses cannot overwhelm a recovering
// dependency.
package ratelimit

import (
	"context"

	"github.com/agilira/go-errors"
	"golang.org/x/time/rate"
)

// ErrCodeLimited identifies calls rejected by the limiter.
const ErrCodeLimited errors.ErrorCode = "SHIELD_RATE_LIMITED"

// ErrLimited is returned when a call is rejected because the bucket is empty.
var ErrLimited = errors.New(ErrCodeLimited, "rate limit exceeded")

// Limiter wraps a token-bucket limiter that decides whether an outgoing
// call should proceed.
type Limiter struct {
	lim *rate.Limiter
}

// NewLimiter creates a Limiter that permits rps calls per second with the
// given burst size.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Allow reports whether a single call may proceed without waiting.
func (l *Limiter) Allow() bool {
	return l.lim.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.lim.Wait(ctx)
}
