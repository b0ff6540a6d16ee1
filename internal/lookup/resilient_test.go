package lookup

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/resilience"
)

func testIndexConfig() config.IndexConfig {
	return config.IndexConfig{
		LookupTimeout:    50 * time.Millisecond,
		RetryAttempts:    2,
		BreakerThreshold: 2,
		BreakerReset:     time.Minute,
	}
}

func TestResilientPassesThroughCounts(t *testing.T) {
	m := metrics.New(nil)
	inner := Func(func(ctx context.Context, term string) (map[string]int, error) {
		return map[string]int{"docA": 3}, nil
	})

	counts, err := NewResilient(inner, "memory", testIndexConfig(), m).Counts(context.Background(), "java")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"docA": 3}, counts)
	assert.Equal(t, 1, testutil.CollectAndCount(m.LookupDuration))
}

func TestResilientNilCountsBecomeEmpty(t *testing.T) {
	inner := Func(func(ctx context.Context, term string) (map[string]int, error) {
		return nil, nil
	})
	counts, err := NewResilient(inner, "memory", testIndexConfig(), nil).Counts(context.Background(), "absent")
	require.NoError(t, err)
	assert.NotNil(t, counts)
	assert.Empty(t, counts)
}

func TestResilientRetriesTransientFailure(t *testing.T) {
	calls := 0
	inner := Func(func(ctx context.Context, term string) (map[string]int, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection reset")
		}
		return map[string]int{"docB": 1}, nil
	})

	counts, err := NewResilient(inner, "redis", testIndexConfig(), nil).Counts(context.Background(), "java")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"docB": 1}, counts)
	assert.Equal(t, 2, calls)
}

func TestResilientWrapsFailures(t *testing.T) {
	m := metrics.New(nil)
	backendErr := errors.New("connection refused")
	inner := Func(func(ctx context.Context, term string) (map[string]int, error) {
		return nil, backendErr
	})
	r := NewResilient(inner, "redis", testIndexConfig(), m)

	_, err := r.Counts(context.Background(), "java")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrLookupFailed)
	assert.ErrorIs(t, err, backendErr)
	assert.Equal(t, resilience.StateOpen, r.BreakerState())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupErrorsTotal.WithLabelValues("redis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("redis-index")))

	_, err = r.Counts(context.Background(), "java")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.ErrorIs(t, err, apperrors.ErrLookupFailed)
}

func TestResilientTimesOutSlowBackend(t *testing.T) {
	inner := Func(func(ctx context.Context, term string) (map[string]int, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	cfg := testIndexConfig()
	cfg.RetryAttempts = 1

	_, err := NewResilient(inner, "postgres", cfg, nil).Counts(context.Background(), "java")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, apperrors.ErrLookupFailed)
}

func TestResilientIgnoresCallerCancellation(t *testing.T) {
	m := metrics.New(nil)
	cfg := testIndexConfig()
	cfg.BreakerThreshold = 5
	inner := Func(func(ctx context.Context, term string) (map[string]int, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return map[string]int{"docA": 1}, nil
	})
	r := NewResilient(inner, "redis", cfg, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		_, err := r.Counts(ctx, "java")
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, apperrors.ErrLookupFailed)
	}
	assert.Equal(t, resilience.StateClosed, r.BreakerState())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LookupErrorsTotal.WithLabelValues("redis")))

	counts, err := r.Counts(context.Background(), "java")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"docA": 1}, counts)
}

func TestResilientCallerDeadlineIsNotBackendFailure(t *testing.T) {
	cfg := testIndexConfig()
	cfg.LookupTimeout = time.Second
	cfg.BreakerThreshold = 1
	inner := Func(func(ctx context.Context, term string) (map[string]int, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	r := NewResilient(inner, "postgres", cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := r.Counts(ctx, "java")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, apperrors.ErrLookupFailed)
	assert.Equal(t, resilience.StateClosed, r.BreakerState())
}

func TestResilientCorruptDataIsNotRetried(t *testing.T) {
	calls := 0
	inner := Func(func(ctx context.Context, term string) (map[string]int, error) {
		calls++
		return nil, fmt.Errorf("%w: malformed count %q", apperrors.ErrCorruptData, "lots")
	})
	r := NewResilient(inner, "bolt", testIndexConfig(), nil)

	for i := 0; i < 3; i++ {
		_, err := r.Counts(context.Background(), "java")
		assert.ErrorIs(t, err, apperrors.ErrCorruptData)
		assert.ErrorIs(t, err, apperrors.ErrLookupFailed)
	}
	assert.Equal(t, 3, calls, "one attempt per call")
	assert.Equal(t, resilience.StateClosed, r.BreakerState())
}
