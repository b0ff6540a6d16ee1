package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchURL(t *testing.T) {
	raw := searchURL("http://localhost:8080", loadQuery{
		Terms:   []string{"java", "programming"},
		Exclude: []string{"coffee"},
		Op:      "and",
	}, 5)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/search", u.Path)
	q := u.Query()
	assert.Equal(t, []string{"java", "programming"}, q["term"])
	assert.Equal(t, "coffee", q.Get("not"))
	assert.Equal(t, "and", q.Get("op"))
	assert.Equal(t, "5", q.Get("limit"))
}

func TestPercentile(t *testing.T) {
	lat := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(lat, 50))
	assert.Equal(t, time.Duration(10), percentile(lat, 99))
	assert.Equal(t, time.Duration(1), percentile(lat, 0))
	assert.Zero(t, percentile(nil, 50))
}

func TestRunAgainstServer(t *testing.T) {
	var n atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1)%2 == 0 {
			w.Header().Set("X-Cache", "hit")
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s := run(ctx, srv.URL, 2, 10, defaultQueries)

	require.Positive(t, s.total.Load())
	assert.Zero(t, s.errors.Load())
	assert.Positive(t, s.cacheHits.Load())

	var out bytes.Buffer
	assert.True(t, report(&out, s, 100*time.Millisecond))
	assert.Contains(t, out.String(), "200:")
}

func TestReportEmpty(t *testing.T) {
	var out bytes.Buffer
	assert.False(t, report(&out, newStats(), time.Second))
}
