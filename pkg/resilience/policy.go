package resilience

import (
	"context"
	"time"
)

// Policy composes the primitives for one remote dependency. Each attempt is
// bounded by Timeout and gated by Breaker; failed attempts are retried per
// Retry. A nil Breaker or zero Timeout disables that layer.
type Policy struct {
	Name    string
	Timeout time.Duration
	Retry   RetryConfig
	Breaker *CircuitBreaker
}

// Do runs fn under the policy. Attempts that fail because ctx itself ended
// are neither retried nor held against the breaker.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	call := func(ctx context.Context) error {
		return WithTimeout(ctx, p.Timeout, p.Name, fn)
	}
	attempt := func() error {
		if p.Breaker == nil {
			return call(ctx)
		}
		return p.Breaker.Do(ctx, call)
	}
	return Retry(ctx, p.Name, p.Retry, attempt)
}
