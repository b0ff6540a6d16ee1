// Command loadtest drives concurrent searches against a running searcher
// and reports throughput, latency percentiles, cache hit rate and status
// codes.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:8080] [-concurrency 10] [-duration 30s]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

type loadQuery struct {
	Terms   []string
	Exclude []string
	Op      string
}

var defaultQueries = []loadQuery{
	{Terms: []string{"java"}},
	{Terms: []string{"programming"}},
	{Terms: []string{"java", "programming"}, Op: "and"},
	{Terms: []string{"java", "programming"}, Op: "or"},
	{Terms: []string{"java"}, Exclude: []string{"coffee"}},
	{Terms: []string{"programming", "language"}, Op: "and"},
	{Terms: []string{"search", "engine"}, Op: "or"},
	{Terms: []string{"inverted", "index"}, Op: "and"},
	{Terms: []string{"philosophy"}},
	{Terms: []string{"knowledge", "science"}, Op: "or", Exclude: []string{"fiction"}},
}

type stats struct {
	total     atomic.Int64
	success   atomic.Int64
	errors    atomic.Int64
	cacheHits atomic.Int64

	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func newStats() *stats {
	return &stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

func (s *stats) record(latency time.Duration, statusCode int, cacheStatus string, err error) {
	s.total.Add(1)
	if err != nil {
		s.errors.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.success.Add(1)
	} else {
		s.errors.Add(1)
	}
	if cacheStatus == "hit" {
		s.cacheHits.Add(1)
	}

	s.mu.Lock()
	s.latencies = append(s.latencies, latency)
	s.statusCodes[statusCode]++
	s.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	limit := flag.Int("limit", 10, "results per query")
	flag.Parse()

	fmt.Println("=== wikisearch load test ===")
	fmt.Printf("Target:      %s\n", *baseURL)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n", *duration)
	fmt.Printf("Queries:     %d unique\n\n", len(defaultQueries))

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	s := run(ctx, *baseURL, *concurrency, *limit, defaultQueries)
	if !report(os.Stdout, s, *duration) {
		fmt.Println("\nWARNING: no requests completed. Is the service running?")
		os.Exit(1)
	}
}

func searchURL(base string, q loadQuery, limit int) string {
	v := url.Values{}
	for _, t := range q.Terms {
		v.Add("term", t)
	}
	for _, t := range q.Exclude {
		v.Add("not", t)
	}
	if q.Op != "" {
		v.Set("op", q.Op)
	}
	v.Set("limit", fmt.Sprint(limit))
	return base + "/api/v1/search?" + v.Encode()
}

func run(ctx context.Context, base string, concurrency, limit int, queries []loadQuery) *stats {
	s := newStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	var wg sync.WaitGroup
	for w := range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; ctx.Err() == nil; i++ {
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL(base, queries[i%len(queries)], limit), nil)
				if err != nil {
					s.record(0, 0, "", err)
					return
				}
				start := time.Now()
				resp, err := client.Do(req)
				latency := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						s.record(latency, 0, "", err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				s.record(latency, resp.StatusCode, resp.Header.Get("X-Cache"), nil)
			}
		}()
	}
	wg.Wait()
	return s
}

// report prints the summary and reports whether any request completed.
func report(out io.Writer, s *stats, duration time.Duration) bool {
	total := s.total.Load()
	errs := s.errors.Load()

	fmt.Fprintln(out, "=== Results ===")
	fmt.Fprintf(out, "Total Requests:  %d\n", total)
	fmt.Fprintf(out, "Successful:      %d\n", s.success.Load())
	fmt.Fprintf(out, "Errors:          %d\n", errs)
	if total > 0 {
		fmt.Fprintf(out, "Error Rate:      %.2f%%\n", float64(errs)/float64(total)*100)
		fmt.Fprintf(out, "Cache Hit Rate:  %.2f%%\n", float64(s.cacheHits.Load())/float64(total)*100)
		fmt.Fprintf(out, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	s.mu.Lock()
	latencies := slices.Clone(s.latencies)
	codes := make([]int, 0, len(s.statusCodes))
	for code := range s.statusCodes {
		codes = append(codes, code)
	}
	counts := make(map[int]int64, len(s.statusCodes))
	for code, n := range s.statusCodes {
		counts[code] = n
	}
	s.mu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))
		var sq float64
		for _, l := range latencies {
			d := float64(l - avg)
			sq += d * d
		}

		fmt.Fprintln(out, "\n=== Latency ===")
		fmt.Fprintf(out, "Min:    %s\n", latencies[0])
		fmt.Fprintf(out, "Avg:    %s\n", avg)
		for _, p := range []float64{50, 90, 95, 99} {
			fmt.Fprintf(out, "P%-2.0f:    %s\n", p, percentile(latencies, p))
		}
		fmt.Fprintf(out, "Max:    %s\n", latencies[len(latencies)-1])
		fmt.Fprintf(out, "StdDev: %s\n", time.Duration(math.Sqrt(sq/float64(len(latencies)))))
	}

	fmt.Fprintln(out, "\n=== Status Codes ===")
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(out, "  %d: %d\n", code, counts[code])
	}
	return total > 0
}

// percentile uses the nearest-rank method over an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
