// Package cache stores executed search results in Redis. Concurrent misses
// for the same query are collapsed with singleflight so only one execution
// reaches the index. The shared execution is detached from whichever caller
// started it, so one client hanging up does not fail the others.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/redis"
)

const (
	keyPrefix             = "search:"
	defaultComputeTimeout = 30 * time.Second
)

// QueryCache is a read-through cache of executor results.
type QueryCache struct {
	client         *pkgredis.Client
	ttl            time.Duration
	computeTimeout time.Duration
	group          singleflight.Group
	metrics        *metrics.Metrics
	logger         *slog.Logger
	hits           atomic.Int64
	misses         atomic.Int64
}

// Option configures a QueryCache.
type Option func(*QueryCache)

// WithComputeTimeout bounds a shared execution started by GetOrCompute.
// Non-positive values keep the default of thirty seconds.
func WithComputeTimeout(d time.Duration) Option {
	return func(c *QueryCache) {
		if d > 0 {
			c.computeTimeout = d
		}
	}
}

// New returns a QueryCache writing entries with the given TTL. m may be nil.
func New(client *pkgredis.Client, ttl time.Duration, m *metrics.Metrics, opts ...Option) *QueryCache {
	c := &QueryCache{
		client:         client,
		ttl:            ttl,
		computeTimeout: defaultComputeTimeout,
		metrics:        m,
		logger:         slog.Default().With("component", "query-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached result for q. Redis errors and undecodable entries
// count as misses.
func (c *QueryCache) Get(ctx context.Context, q executor.Query, opts executor.Options) (*executor.SearchResult, bool) {
	key := BuildKey(q, opts)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.recordMiss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	c.logger.Debug("cache hit", "query", q.String(), "key", key)
	return &result, true
}

// Set stores result under q's key. Failures are logged and otherwise ignored.
func (c *QueryCache) Set(ctx context.Context, q executor.Query, opts executor.Options, result *executor.SearchResult) {
	key := BuildKey(q, opts)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or runs compute, caching its
// result. Errors from compute are not cached. The bool reports a cache hit.
//
// compute receives a context that keeps the caller's values but not its
// cancellation, bounded by the compute timeout. Each caller waits only as
// long as its own ctx allows; leaving early does not stop the execution
// other callers are waiting on.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	q executor.Query,
	opts executor.Options,
	compute func(ctx context.Context) (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, q, opts); ok {
		return result, true, nil
	}
	key := BuildKey(q, opts)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.computeTimeout)
		defer cancel()
		result, err := compute(shared)
		if err != nil {
			return nil, err
		}
		c.Set(shared, q, opts, result)
		return result, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*executor.SearchResult), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Invalidate deletes every cached search result.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Stats returns hit and miss counts since start.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Ping checks the Redis connection.
func (c *QueryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

// BuildKey derives the Redis key for a query and its options.
func BuildKey(q executor.Query, opts executor.Options) string {
	order := opts.Order
	if order == "" {
		order = executor.OrderAsc
	}
	raw := fmt.Sprintf("%s|limit=%d|order=%s", q.Key(), opts.Limit, order)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

func (c *QueryCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
