// Package retry provides an explicit retry policy for calls to external
// services (Support API, STS, Bedrock, S3, SQS). Transient failures are
// absorbed here with bounded exponential backoff; they only surface to the
// caller once the attempt budget is exhausted.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// Policy describes how a call is retried: how many attempts, the base delay,
// and whether delays are jittered. The zero value is not usable; use Default
// or construct explicitly.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      bool
}

// Default matches the platform redelivery posture: 5 attempts, 1s base,
// jittered exponential backoff (1s, 2s, 4s, 8s between attempts).
var Default = Policy{
	MaxAttempts: 5,
	BaseDelay:   time.Second,
	Jitter:      true,
}

// Permanent wraps an error to mark it as not retryable. Do returns it
// immediately without consuming further attempts.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// Abort marks err as permanent so Do stops retrying.
func Abort(err error) error {
	return &Permanent{Err: err}
}

// Delay returns the backoff delay before the given attempt (0-based).
// Jitter shaves up to 20% off the exponential delay.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay * (1 << attempt)
	if p.Jitter {
		d = time.Duration(float64(d) * (0.8 + 0.2*rand.Float64()))
	}
	return d
}

// Do invokes fn up to MaxAttempts times, sleeping the policy delay between
// failures. A *Permanent error or context cancellation stops retrying
// immediately. The label appears in retry log lines.
func (p Policy) Do(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		var perm *Permanent
		if errors.As(lastErr, &perm) {
			return perm.Err
		}

		if attempt == p.MaxAttempts-1 {
			break
		}

		delay := p.Delay(attempt)
		log.Warn().
			Err(lastErr).
			Str("operation", label).
			Int("attempt", attempt+1).
			Int("maxAttempts", p.MaxAttempts).
			Dur("delay", delay).
			Msg("Attempt failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	log.Error().
		Err(lastErr).
		Str("operation", label).
		Int("maxAttempts", p.MaxAttempts).
		Msg("All retry attempts failed")
	return lastErr
}
