// Command wikisearch looks up "java" and "programming" in the configured
// term index and prints each ranked result set followed by their union,
// intersection and difference.
//
// Usage:
//
//	go run ./cmd/wikisearch [-config path] [-backend memory|redis|postgres|bolt] [-seed] [-desc]
//
// With -seed the index is first loaded with a small fixture so the demo is
// meaningful against an empty store. Without a running Redis, use
// -backend memory -seed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup/backend"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/resultset"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
)

const defaultConfigPath = "configs/development.yaml"

var fixture = map[string]map[string]int{
	"java":        {"docA": 3, "docB": 1},
	"programming": {"docB": 2, "docC": 4},
}

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to config file (built-in defaults when empty)")
	backendName := flag.String("backend", "", "override index.backend")
	seed := flag.Bool("seed", false, "load the demo fixture into the index first")
	desc := flag.Bool("desc", false, "rank most relevant first")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *backendName != "" {
		cfg.Index.Backend = *backendName
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid backend: %v\n", err)
			os.Exit(1)
		}
	}
	logger.Setup(cfg.Logging.Level, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idx, err := backend.Open(cfg, backend.Deps{}, nil)
	if err != nil {
		slog.Error("failed to open index backend", "error", err)
		os.Exit(1)
	}
	defer idx.Close()

	if *seed {
		if err := seedFixture(ctx, idx.Seeder); err != nil {
			slog.Error("seeding failed", "error", err)
			os.Exit(1)
		}
	}

	if err := run(ctx, os.Stdout, idx.Lookup, *desc); err != nil {
		slog.Error("demo failed", "error", err)
		os.Exit(1)
	}
}

func seedFixture(ctx context.Context, s lookup.Seeder) error {
	for term, postings := range fixture {
		if err := s.Seed(ctx, term, postings); err != nil {
			return fmt.Errorf("seeding %q: %w", term, err)
		}
	}
	return nil
}

func run(ctx context.Context, out io.Writer, idx lookup.Lookup, desc bool) error {
	java, err := searcher.Search(ctx, "java", idx)
	if err != nil {
		return err
	}
	programming, err := searcher.Search(ctx, "programming", idx)
	if err != nil {
		return err
	}

	printSet(out, "java", java, desc)
	printSet(out, "programming", programming, desc)
	printSet(out, "java OR programming", java.Union(programming), desc)
	printSet(out, "java AND programming", java.Intersect(programming), desc)
	printSet(out, "java NOT programming", java.Difference(programming), desc)
	return nil
}

func printSet(out io.Writer, title string, rs *resultset.ResultSet, desc bool) {
	fmt.Fprintf(out, "Query: %s\n", title)
	entries := rs.Sort()
	if desc {
		entries = rs.SortDescending()
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "  (no results)")
	}
	for _, e := range entries {
		fmt.Fprintf(out, "  %s %d\n", e.DocID, e.Score)
	}
	fmt.Fprintln(out)
}
