// Package ratelimit provides a wrapper around golang.org/x/time/rate.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/fd1az/crossarb/internal/apperror"
)

// Limiter is a token bucket. A nil *Limiter never blocks.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerMinute with a 10% burst.
// A non-positive rate returns nil (unlimited).
func New(requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}

	rps := float64(requestsPerMinute) / 60.0
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// NewWithBurst creates a limiter with an explicit per-second rate and burst.
func NewWithBurst(requestsPerSecond float64, burst int) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}
	return nil
}

// Allow reports whether an event may happen now.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}

// Tokens returns the current number of available tokens.
func (l *Limiter) Tokens() float64 {
	if l == nil {
		return 0
	}
	return l.limiter.Tokens()
}
