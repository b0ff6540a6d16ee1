package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsesPrivateRegistry(t *testing.T) {
	m1 := New(nil)
	m2 := New(nil)

	m1.CacheHitsTotal.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m1.CacheHitsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(m2.CacheHitsTotal))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(nil)
	m.LookupErrorsTotal.WithLabelValues("redis").Inc()
	m.SearchQueriesTotal.WithLabelValues("miss").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `index_lookup_errors_total{backend="redis"} 1`)
	assert.Contains(t, string(body), `search_queries_total{result_type="miss"} 1`)
}

func TestServeStopsWithContext(t *testing.T) {
	m := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Serve(ctx, 0))
	cancel()
}

func TestServeReportsBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	assert.Error(t, New(nil).Serve(context.Background(), port))
}
