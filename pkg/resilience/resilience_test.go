package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

var errBackend = errors.New("backend down")

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker("redis-index", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     20 * time.Millisecond,
		OnStateChange:    func(_ string, to State) { transitions = append(transitions, to) },
	})

	fail := func() error { return errBackend }
	ok := func() error { return nil }

	assert.ErrorIs(t, cb.Execute(fail), errBackend)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(fail), errBackend)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, cb.Execute(ok))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("pg-index", CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     10 * time.Millisecond,
	})
	_ = cb.Execute(func() error { return errBackend })
	time.Sleep(15 * time.Millisecond)

	assert.ErrorIs(t, cb.Execute(func() error { return errBackend }), errBackend)
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerWithFakeClock(t *testing.T) {
	now := time.Unix(1700000000, 0)
	cb := NewCircuitBreaker("bolt-index", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute, HalfOpenMaxRequests: 1})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errBackend })
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(59 * time.Second)
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitOpen)

	now = now.Add(time.Second)
	assert.Equal(t, StateHalfOpen, cb.State())

	started := make(chan struct{})
	release := make(chan struct{})
	probeDone := make(chan error)
	go func() {
		probeDone <- cb.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitOpen, "second probe is rejected while the first is in flight")
	close(release)
	require.NoError(t, <-probeDone)
	assert.Equal(t, StateClosed, cb.State())
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	var calls int
	err := Retry(context.Background(), "lookup", RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errBackend
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUp(t *testing.T) {
	var calls int
	err := Retry(context.Background(), "lookup", RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}, func() error {
		calls++
		return errBackend
	})
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, 2, calls)
}

func TestRetryStopsOnOpenCircuit(t *testing.T) {
	var calls int
	err := Retry(context.Background(), "lookup", RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond}, func() error {
		calls++
		return ErrCircuitOpen
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 1, calls)
}

func TestRetryAbortsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, "lookup", RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}, func() error {
		return errBackend
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)

	err = WithTimeout(context.Background(), time.Second, "fast", func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, err)

	err = WithTimeout(context.Background(), 0, "unbounded", func(ctx context.Context) error {
		return errBackend
	})
	assert.ErrorIs(t, err, errBackend)
}

func TestPolicyRetriesThroughBreaker(t *testing.T) {
	var calls atomic.Int32
	p := &Policy{
		Name:    "index",
		Timeout: time.Second,
		Retry:   RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond},
		Breaker: NewCircuitBreaker("index", CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute}),
	}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls.Add(1)
		return errBackend
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load(), "third attempt is rejected by the open breaker")
}

func TestPolicyIgnoresCallerCancellation(t *testing.T) {
	p := &Policy{
		Name:    "redis-lookup",
		Timeout: time.Second,
		Retry:   RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond},
		Breaker: NewCircuitBreaker("redis-index", CircuitBreakerConfig{FailureThreshold: 5, ResetTimeout: time.Minute}),
	}
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancelExpired := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancelExpired()
	<-expired.Done()

	for i := 0; i < 5; i++ {
		ctx := cancelled
		if i%2 == 1 {
			ctx = expired
		}
		err := p.Do(ctx, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, StateClosed, p.Breaker.State())

	require.NoError(t, p.Do(context.Background(), func(ctx context.Context) error { return nil }))
}

func TestCircuitBreakerIsFailure(t *testing.T) {
	errCorrupt := errors.New("corrupt value")
	cb := NewCircuitBreaker("bolt-index", CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		IsFailure:        func(err error) bool { return !errors.Is(err, errCorrupt) },
	})

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errCorrupt }), errCorrupt)
	}
	assert.Equal(t, StateClosed, cb.State())

	_ = cb.Execute(func() error { return errBackend })
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreakerHalfOpenSlotFreedOnCancellation(t *testing.T) {
	now := time.Unix(1700000000, 0)
	cb := NewCircuitBreaker("pg-index", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute, HalfOpenMaxRequests: 1})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errBackend })
	now = now.Add(time.Minute)
	require.Equal(t, StateHalfOpen, cb.State())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := cb.Do(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateHalfOpen, cb.State(), "an abandoned call is not a verdict")

	require.NoError(t, cb.Do(context.Background(), func(ctx context.Context) error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}
