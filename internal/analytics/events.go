// Package analytics records what users search for. The search handler
// Tracks one SearchEvent per request through a Collector, which publishes
// them to Kafka; an Aggregator consumes the topic and keeps running totals
// that are served over HTTP and periodically snapshotted to PostgreSQL.
package analytics

import "time"

type EventType string

const (
	EventSearch      EventType = "search"
	EventCacheHit    EventType = "cache_hit"
	EventCacheMiss   EventType = "cache_miss"
	EventZeroResult  EventType = "zero_result"
	EventLookupError EventType = "lookup_error"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Op        string    `json:"op"`
	Terms     []string  `json:"terms"`
	Excluded  []string  `json:"excluded,omitempty"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}
