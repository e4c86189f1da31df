// Package resilience retries transient failures of external services.
package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	simerrors "github.com/daysim/daysim/pkg/errors"
)

// Backoff controls Retry.
type Backoff struct {
	Attempts   int           // total tries, including the first
	Initial    time.Duration // wait after the first failure
	Max        time.Duration // cap on a single wait
	Multiplier float64

	// OnRetry is called before each wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// DefaultBackoff tries three times, waiting 200ms then 400ms.
func DefaultBackoff() Backoff {
	return Backoff{
		Attempts:   3,
		Initial:    200 * time.Millisecond,
		Max:        5 * time.Second,
		Multiplier: 2,
	}
}

// exponential builds the schedule without jitter.
func (b Backoff) exponential() *backoff.ExponentialBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = b.Initial
	exp.RandomizationFactor = 0
	exp.Multiplier = b.Multiplier
	if exp.Multiplier < 1 {
		exp.Multiplier = 1
	}
	exp.MaxInterval = b.Max
	if exp.MaxInterval <= 0 {
		exp.MaxInterval = backoff.DefaultMaxInterval
	}
	exp.MaxElapsedTime = 0
	exp.Reset()
	return exp
}

// Wait returns the pause after the given failed attempt (1-based).
func (b Backoff) Wait(attempt int) time.Duration {
	exp := b.exponential()
	wait := exp.NextBackOff()
	for i := 1; i < attempt; i++ {
		wait = exp.NextBackOff()
	}
	return wait
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Retry calls op until it succeeds, returns a Permanent error, the
// attempts run out or ctx is done. It returns the last error unwrapped from
// Permanent.
func Retry(ctx context.Context, b Backoff, op func(ctx context.Context) error) error {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b.exponential(), uint64(attempts-1)), ctx)

	var last error
	attempt := 0
	err := backoff.RetryNotify(func() error {
		last = op(ctx)
		return last
	}, policy, func(err error, wait time.Duration) {
		attempt++
		if b.OnRetry != nil {
			b.OnRetry(attempt, wait, err)
		}
	})
	if err != nil && err == ctx.Err() {
		wrapped := simerrors.Wrap(err, simerrors.CodeContextCanceled, "retry interrupted")
		if last != nil {
			wrapped = wrapped.WithContext("last_error", last.Error())
		}
		return wrapped
	}
	return err
}
