package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Index.Backend)
	assert.Equal(t, "asc", cfg.Search.DefaultOrder)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, "analytics-events", cfg.Kafka.Topics.AnalyticsEvents)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlData := `
server:
  port: 9999
index:
  backend: postgres
  lookupTimeout: 500ms
search:
  defaultLimit: 25
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o600))
	t.Setenv("SP_SEARCH_DEFAULT_ORDER", "DESC")
	t.Setenv("SP_REDIS_ADDR", "redis:6380")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, BackendPostgres, cfg.Index.Backend)
	assert.Equal(t, 500*time.Millisecond, cfg.Index.LookupTimeout)
	assert.Equal(t, 25, cfg.Search.DefaultLimit)
	assert.Equal(t, "desc", cfg.Search.DefaultOrder)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "term_counts", cfg.Index.PostgresTable, "unset keys keep defaults")
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"SP_INDEX_BACKEND": "cassandra"}},
		{"unknown order", map[string]string{"SP_SEARCH_DEFAULT_ORDER": "random"}},
		{"negative rate limit", map[string]string{"SP_SERVER_RATE_LIMIT": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestListEnvOverrides(t *testing.T) {
	t.Setenv("SP_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SP_SERVER_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("SP_SERVER_RATE_LIMIT", "120")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 120, cfg.Server.RateLimit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := defaultConfig()
	assert.Equal(t,
		"host=localhost port=5432 user=wikisearch password=localdev dbname=wikisearch sslmode=disable",
		cfg.Postgres.DSN(),
	)
}
