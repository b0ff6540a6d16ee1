// Package handler exposes the query executor over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/middleware"
)

// CacheHeader reports whether a search was served from the result cache:
// "hit", "miss" or "disabled".
const CacheHeader = "X-Cache"

type SearchExecutor interface {
	Execute(ctx context.Context, q executor.Query, opts executor.Options) (*executor.SearchResult, error)
}

// EventTracker receives one event per search. *analytics.Collector
// satisfies it.
type EventTracker interface {
	Track(event analytics.SearchEvent)
}

// Config holds request defaults and bounds.
type Config struct {
	DefaultLimit int
	MaxResults   int
	DefaultOrder executor.Order
}

type Handler struct {
	executor SearchExecutor
	cache    *cache.QueryCache
	tracker  EventTracker
	metrics  *metrics.Metrics
	cfg      Config
	logger   *slog.Logger
}

// New builds a Handler. queryCache, tracker and m may each be nil.
func New(exec SearchExecutor, queryCache *cache.QueryCache, tracker EventTracker, m *metrics.Metrics, cfg Config) *Handler {
	if cfg.DefaultOrder == "" {
		cfg.DefaultOrder = executor.OrderAsc
	}
	return &Handler{
		executor: exec,
		cache:    queryCache,
		tracker:  tracker,
		metrics:  m,
		cfg:      cfg,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Search serves GET /api/v1/search?term=a&term=b&op=and|or&not=c&limit=n&order=asc|desc.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	q, opts, err := h.parseRequest(r)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), errorMessage(err))
		return
	}

	var (
		result   *executor.SearchResult
		cacheHit bool
	)
	compute := func(ctx context.Context) (*executor.SearchResult, error) {
		return h.executor.Execute(ctx, q, opts)
	}
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, q, opts, compute)
	} else {
		result, err = compute(ctx)
	}

	latency := time.Since(start)
	if err != nil && ctx.Err() != nil {
		// Client went away. Not an index failure.
		log.Info("search abandoned by client", "query", q.String(), "error", err)
		h.observe("canceled", "", latency, 0)
		return
	}
	if err != nil {
		log.Error("search execution failed", "query", q.String(), "error", err)
		h.observe("error", "", latency, 0)
		h.track(ctx, analytics.EventLookupError, q, nil, false, latency)
		status := apperrors.HTTPStatusCode(err)
		msg := "search failed"
		if status == http.StatusServiceUnavailable {
			msg = "index unavailable"
		}
		h.writeError(w, status, msg)
		return
	}

	log.Info("search completed",
		"query", result.Query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)

	eventType := analytics.EventCacheMiss
	resultType := "miss"
	switch {
	case result.TotalHits == 0:
		eventType, resultType = analytics.EventZeroResult, "zero_result"
	case cacheHit:
		eventType, resultType = analytics.EventCacheHit, "hit"
	}
	h.observe(resultType, h.cacheStatus(cacheHit), latency, result.TotalHits)
	h.track(ctx, eventType, q, result, cacheHit, latency)

	w.Header().Set(CacheHeader, h.cacheStatus(cacheHit))
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) parseRequest(r *http.Request) (executor.Query, executor.Options, error) {
	params := r.URL.Query()

	op, err := executor.ParseOp(params.Get("op"))
	if err != nil {
		return executor.Query{}, executor.Options{}, err
	}
	order, err := executor.ParseOrder(params.Get("order"), h.cfg.DefaultOrder)
	if err != nil {
		return executor.Query{}, executor.Options{}, err
	}

	limit := h.cfg.DefaultLimit
	if s := params.Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 {
			return executor.Query{}, executor.Options{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}
	if h.cfg.MaxResults > 0 && limit > h.cfg.MaxResults {
		limit = h.cfg.MaxResults
	}

	q := executor.Query{Op: op, Terms: params["term"], Exclude: params["not"]}.Normalize()
	if len(q.Terms) == 0 {
		return executor.Query{}, executor.Options{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'term' is required")
	}
	return q, executor.Options{Limit: limit, Order: order}, nil
}

func (h *Handler) track(ctx context.Context, t analytics.EventType, q executor.Query, result *executor.SearchResult, cacheHit bool, latency time.Duration) {
	if h.tracker == nil {
		return
	}
	event := analytics.SearchEvent{
		Type:      t,
		Query:     q.String(),
		Op:        string(q.Op),
		Terms:     q.Terms,
		Excluded:  q.Exclude,
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	}
	if result != nil {
		event.TotalHits = result.TotalHits
		event.Returned = len(result.Results)
	}
	h.tracker.Track(event)
}

func (h *Handler) observe(resultType, cacheStatus string, latency time.Duration, hits int) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	if cacheStatus == "" {
		return
	}
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	h.metrics.SearchResultsCount.Observe(float64(hits))
}

func (h *Handler) cacheStatus(hit bool) string {
	switch {
	case h.cache == nil:
		return "disabled"
	case hit:
		return "hit"
	default:
		return "miss"
	}
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
