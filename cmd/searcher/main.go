// Command searcher serves ranked multi-term search over the configured term
// index and accepts new documents into it at POST /api/v1/documents.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/analytics"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/wikisearch/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/ingestion/writer"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup/backend"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "index_backend", cfg.Index.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		if err := m.Serve(ctx, cfg.Metrics.Port); err != nil {
			slog.Error("metrics server failed", "error", err)
		}
	}

	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable", "addr", cfg.Redis.Addr, "error", err)
	} else {
		defer redisClient.Close()
	}

	idx, err := backend.Open(cfg, backend.Deps{Redis: redisClient}, m)
	if err != nil {
		slog.Error("failed to open index backend", "error", err)
		os.Exit(1)
	}
	defer idx.Close()

	var queryCache *cache.QueryCache
	if cfg.Search.CacheEnabled && redisClient != nil {
		queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m, cache.WithComputeTimeout(cfg.Server.WriteTimeout))
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	} else {
		slog.Info("search cache disabled")
	}

	var tracker handler.EventTracker
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer[analytics.SearchEvent](cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, cfg.Analytics.BufferSize)
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector
		slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}

	checker := health.NewChecker(5 * time.Second)
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		if err := idx.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: idx.Name}
	})
	var cachePing func(context.Context) error
	if queryCache != nil {
		cachePing = queryCache.Ping
	}
	checker.Register("cache", health.PingCheck(cachePing, health.StatusDegraded))

	exec := executor.New(idx.Lookup, cfg.Search.MaxConcurrentLookups)
	h := handler.New(exec, queryCache, tracker, m, handler.Config{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxResults:   cfg.Search.MaxResults,
		DefaultOrder: executor.Order(cfg.Search.DefaultOrder),
	})

	var invalidator writer.Invalidator
	if queryCache != nil {
		invalidator = queryCache
	}
	ingest := ingesthandler.New(writer.New(idx.Seeder, idx.Memory, invalidator))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	admin := middleware.RequireToken(cfg.Server.AdminToken)
	mux.Handle("POST /api/v1/documents", admin(http.HandlerFunc(ingest.Ingest)))
	mux.Handle("POST /api/v1/cache/invalidate", admin(http.HandlerFunc(h.CacheInvalidate)))
	if cfg.Server.AdminToken == "" {
		slog.Warn("admin token not set, write endpoints are unauthenticated")
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		limiter := ratelimit.New(cfg.Server.RateLimit, time.Minute)
		go limiter.RunSweeper(ctx, 5*time.Minute)
		chain = middleware.RateLimit(limiter, 60)(chain)
		slog.Info("rate limiting enabled", "per_minute", cfg.Server.RateLimit)
	}
	chain = middleware.CORS(cfg.Server.CORSOrigins)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
