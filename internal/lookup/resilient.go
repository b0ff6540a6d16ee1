package lookup

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/resilience"
)

// Resilient decorates a Lookup with a per-attempt timeout, retries and a
// circuit breaker. Every backend failure it returns wraps
// errors.ErrLookupFailed. When the caller's context ends first, Counts
// returns the context's error as is.
type Resilient struct {
	next    Lookup
	backend string
	policy  *resilience.Policy
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewResilient wraps next. m may be nil.
func NewResilient(next Lookup, backend string, cfg config.IndexConfig, m *metrics.Metrics) *Resilient {
	breakerCfg := resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.BreakerThreshold,
		ResetTimeout:     cfg.BreakerReset,
		IsFailure:        backendFault,
	}
	if m != nil {
		breakerCfg.OnStateChange = func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
		m.CircuitBreakerState.WithLabelValues(backend + "-index").Set(float64(resilience.StateClosed))
	}
	return &Resilient{
		next:    next,
		backend: backend,
		policy: &resilience.Policy{
			Name:    backend + "-lookup",
			Timeout: cfg.LookupTimeout,
			Retry: resilience.RetryConfig{
				MaxAttempts:  cfg.RetryAttempts,
				InitialDelay: 50 * time.Millisecond,
				MaxDelay:     time.Second,
				Retryable: func(err error) bool {
					return backendFault(err) && !errors.Is(err, resilience.ErrCircuitOpen)
				},
			},
			Breaker: resilience.NewCircuitBreaker(backend+"-index", breakerCfg),
		},
		metrics: m,
		logger:  slog.Default().With("component", "index-lookup", "backend", backend),
	}
}

// Counts implements Lookup.
func (r *Resilient) Counts(ctx context.Context, term string) (map[string]int, error) {
	start := time.Now()
	var (
		mu     sync.Mutex
		counts map[string]int
	)
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		c, err := r.next.Counts(ctx, term)
		if err != nil {
			return err
		}
		mu.Lock()
		if counts == nil {
			counts = c
		}
		mu.Unlock()
		return nil
	})
	elapsed := time.Since(start).Seconds()
	if err != nil && ctx.Err() != nil {
		r.observe("canceled", elapsed)
		r.logger.Debug("lookup abandoned by caller", "term", term, "error", err)
		return nil, ctx.Err()
	}
	if err != nil {
		r.observe("error", elapsed)
		if r.metrics != nil {
			r.metrics.LookupErrorsTotal.WithLabelValues(r.backend).Inc()
		}
		r.logger.Error("lookup failed", "term", term, "error", err)
		return nil, apperrors.LookupFailed(r.backend, term, err)
	}
	r.observe("ok", elapsed)

	mu.Lock()
	defer mu.Unlock()
	if counts == nil {
		return map[string]int{}, nil
	}
	return counts, nil
}

// backendFault reports whether err says something about the backend's health.
// Cancellation comes from the caller and corrupt data from the stored values,
// so neither is retried or held against the breaker.
func backendFault(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, apperrors.ErrCorruptData)
}

// BreakerState reports the state of the wrapped circuit breaker.
func (r *Resilient) BreakerState() resilience.State {
	return r.policy.Breaker.State()
}

func (r *Resilient) observe(outcome string, seconds float64) {
	if r.metrics == nil {
		return
	}
	r.metrics.LookupDuration.WithLabelValues(r.backend, outcome).Observe(seconds)
}
