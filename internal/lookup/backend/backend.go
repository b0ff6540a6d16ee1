// Package backend builds the configured term-count store and wraps it in
// the resilient lookup decorator.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup/boltindex"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup/memindex"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup/pgindex"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup/redisindex"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/redis"
)

// Deps carries connections the caller already holds. Nil fields are opened
// on demand and then owned by the Backend.
type Deps struct {
	Redis    *pkgredis.Client
	Postgres *postgres.Client
}

// Backend is an opened term-count store.
type Backend struct {
	Name string
	// Lookup is the store behind timeouts, retries and a circuit breaker.
	Lookup lookup.Lookup
	// Seeder writes directly to the store.
	Seeder lookup.Seeder
	// Memory is set only for the memory backend.
	Memory *memindex.Index

	ping    func(ctx context.Context) error
	closers []func() error
}

// Open builds the backend selected by cfg.Index.Backend.
func Open(cfg *config.Config, deps Deps, m *metrics.Metrics) (*Backend, error) {
	b := &Backend{Name: cfg.Index.Backend}
	var store interface {
		lookup.Lookup
		lookup.Seeder
	}

	switch cfg.Index.Backend {
	case config.BackendMemory:
		idx := memindex.New()
		b.Memory = idx
		store = idx

	case config.BackendRedis:
		client := deps.Redis
		if client == nil {
			var err error
			client, err = pkgredis.NewClient(cfg.Redis)
			if err != nil {
				return nil, fmt.Errorf("connecting to redis index: %w", err)
			}
			b.closers = append(b.closers, client.Close)
		}
		idx := redisindex.New(client)
		b.ping = idx.Ping
		store = idx

	case config.BackendPostgres:
		db := deps.Postgres
		if db == nil {
			var err error
			db, err = postgres.New(cfg.Postgres)
			if err != nil {
				return nil, fmt.Errorf("connecting to postgres index: %w", err)
			}
			b.closers = append(b.closers, db.Close)
		}
		idx := pgindex.New(db, cfg.Index.PostgresTable)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := idx.EnsureSchema(ctx)
		cancel()
		if err != nil {
			slog.Warn("could not ensure index table, assuming it is managed externally", "error", err)
		}
		b.ping = idx.Ping
		store = idx

	case config.BackendBolt:
		idx, err := boltindex.Open(cfg.Index.BoltPath)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, idx.Close)
		store = idx

	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}

	b.Lookup = lookup.NewResilient(store, b.Name, cfg.Index, m)
	b.Seeder = store
	slog.Info("index backend ready", "backend", b.Name)
	return b, nil
}

// Ping checks the store's connection. Local stores always succeed.
func (b *Backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// Close releases everything Open acquired.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
