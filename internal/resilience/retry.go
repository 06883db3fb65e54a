// Package resilience implements the withRetry utility used by the
// embedding, discovery and parser adapters; LLM calls do not go through it
// (they are guarded by the circuit breaker in internal/llm/breaker). It never guards
// transactional database operations — those carry their own
// serialization-retry policy next to the transaction itself.
package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/paperkg/paperkg/internal/apperr"
)

// Options tunes a withRetry call. Zero value yields the defaults from the
// component design: 3 retries, backoff factor 2, 1s floor, 10s ceiling.
type Options struct {
	Retries    int
	Factor     float64
	MinTimeout time.Duration
	MaxTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Retries <= 0 {
		o.Retries = 3
	}
	if o.Factor <= 0 {
		o.Factor = 2
	}
	if o.MinTimeout <= 0 {
		o.MinTimeout = time.Second
	}
	if o.MaxTimeout <= 0 {
		o.MaxTimeout = 10 * time.Second
	}
	return o
}

// backOff builds a cenkalti/backoff/v4 ExponentialBackOff whose schedule is
// min(minTimeout * factor^(attempt-1), maxTimeout), the component design's
// backoff curve, with no jitter.
func (o Options) backOff() *backoff.ExponentialBackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = o.MinTimeout
	eb.Multiplier = o.Factor
	eb.MaxInterval = o.MaxTimeout
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	eb.Reset()
	return eb
}

// WithRetry runs operation up to opts.Retries+1 times, sleeping between
// attempts on the interval cenkalti/backoff/v4's ExponentialBackOff computes.
// It stops immediately on a non-retryable classified error (apperr.Retryable
// returns false), and on context cancellation.
func WithRetry(ctx context.Context, name string, opts Options, operation func(ctx context.Context) error) error {
	opts = opts.withDefaults()
	eb := opts.backOff()

	var lastErr error
	for attempt := 1; attempt <= opts.Retries+1; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(eb.NextBackOff()):
			}
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !apperr.Retryable(err) {
			return err
		}
	}

	return apperr.Wrap(name, apperr.KindTransient, lastErr)
}
