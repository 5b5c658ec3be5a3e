// Package retry wraps flaky upstream calls in bounded exponential backoff
// with jitter. Precondition failures are marked permanent and never retried.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/team-leekim/newsnack-ai/internal/config"
)

// Policy bounds retry behaviour for a group of calls.
type Policy struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

// FromConfig builds a Policy from the retry config section.
func FromConfig(cfg config.Retry) Policy {
	return Policy{
		MaxAttempts: cfg.MaxAttempts,
		MinDelay:    time.Duration(cfg.MinDelaySeconds) * time.Second,
		MaxDelay:    time.Duration(cfg.MaxDelaySeconds) * time.Second,
	}
}

// Permanent marks an error as non-retryable. Attempts stop immediately and
// the original error is returned to the caller.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// IsPermanent reports whether an error was marked with Permanent.
func IsPermanent(err error) bool {
	var permanent *backoff.PermanentError
	return errors.As(err, &permanent)
}

func (p Policy) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.MinDelay
	exp.MaxInterval = p.MaxDelay
	// RandomizationFactor stays at the library default so waits jitter
	// around the exponential curve instead of stepping in lockstep
	// across concurrent pipelines.
	exp.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var b backoff.BackOff = backoff.WithMaxRetries(exp, uint64(attempts-1))
	return backoff.WithContext(b, ctx)
}

// Do invokes fn until it succeeds, the attempt budget is exhausted, the
// error is permanent, or the context ends. The last error is returned.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	return backoff.Retry(func() error {
		return fn(ctx)
	}, p.newBackOff(ctx))
}

// DoValue is Do for calls that produce a value.
func DoValue[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func(ctx context.Context) error {
		value, err := fn(ctx)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	return result, err
}
