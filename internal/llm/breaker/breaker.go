// Package breaker wraps an llm.Provider with a circuit breaker so a
// misbehaving or rate-limited backend stops being hammered by the extractor
// and definer once failures cross a threshold, instead of each caller
// re-deriving its own cooldown logic.
package breaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/paperkg/paperkg/internal/apperr"
	"github.com/paperkg/paperkg/internal/llm"
)

// Provider wraps an llm.Provider with a circuit breaker. While open, calls
// fail fast with a transient error instead of reaching the backend.
type Provider struct {
	inner llm.Provider
	cb    *gobreaker.CircuitBreaker
}

// New wraps inner. name identifies the breaker in logs/metrics (the
// provider's configured name, e.g. "anthropic" or "openai").
func New(name string, inner llm.Provider) *Provider {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Provider{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(settings),
	}
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	result, err := p.cb.Execute(func() (interface{}, error) {
		return p.inner.Complete(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, apperr.Wrap("llm circuit breaker", apperr.KindTransient, err)
		}
		return nil, err
	}
	return result.(*llm.Response), nil
}
