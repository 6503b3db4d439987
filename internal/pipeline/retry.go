package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"apm-exporter/internal/model"
)

// newBackOff builds the schedule BaseDelay * 2^n for n = 0..MaxRetries-1, without jitter
func newBackOff(ctx context.Context, cfg model.RetryConfig) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = cfg.Delay(cfg.MaxRetries)
	exp.MaxElapsedTime = 0
	exp.Reset()

	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}

// RetryNotify is called before each retry with the failed attempt number (1-based) and the wait
type RetryNotify func(attempt int, err error, wait time.Duration)

// retry runs op until it succeeds, returns a permanent error, or the retry budget is spent.
// op marks non-retryable failures with backoff.Permanent. It returns the number of attempts made.
func retry(ctx context.Context, cfg model.RetryConfig, op func(attempt int) error, notify RetryNotify) (int, error) {
	attempts := 0
	err := backoff.RetryNotify(func() error {
		attempts++
		return op(attempts)
	}, newBackOff(ctx, cfg), func(err error, wait time.Duration) {
		if notify != nil {
			notify(attempts, err, wait)
		}
	})
	return attempts, err
}
