// Package redisindex reads term counts from the Redis layout written by the
// Wikipedia crawler:
//
//	URLSet:<term>      set of document URLs that contain term
//	TermCounter:<url>  hash of term -> occurrence count for that document
//
// A lookup is one SMEMBERS followed by a single pipelined round of HGETs.
package redisindex

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/redis"
)

const (
	urlSetPrefix      = "URLSet:"
	termCounterPrefix = "TermCounter:"
)

// URLSetKey returns the key of the set listing documents that contain term.
func URLSetKey(term string) string { return urlSetPrefix + term }

// TermCounterKey returns the key of the per-document count hash.
func TermCounterKey(url string) string { return termCounterPrefix + url }

// Index is a lookup.Lookup over Redis.
type Index struct {
	client *pkgredis.Client
	logger *slog.Logger
}

// New returns an Index reading through client.
func New(client *pkgredis.Client) *Index {
	return &Index{
		client: client,
		logger: slog.Default().With("component", "redis-index"),
	}
}

// Counts implements lookup.Lookup. Set members whose counter hash lacks the
// term are skipped; such members are left behind when a page is re-crawled
// and no longer mentions the term.
func (i *Index) Counts(ctx context.Context, term string) (map[string]int, error) {
	urls, err := i.client.SMembers(ctx, URLSetKey(term))
	if err != nil {
		return nil, fmt.Errorf("reading url set for %q: %w", term, err)
	}
	if len(urls) == 0 {
		return map[string]int{}, nil
	}

	keys := make([]string, len(urls))
	for n, url := range urls {
		keys[n] = TermCounterKey(url)
	}
	values, err := i.client.HGetMany(ctx, keys, term)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(urls))
	for n, v := range values {
		if !v.OK {
			i.logger.Debug("stale url set member", "term", term, "url", urls[n])
			continue
		}
		count, err := strconv.Atoi(v.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed count %q for %q in %s: %w", apperrors.ErrCorruptData, v.Value, term, keys[n], err)
		}
		counts[urls[n]] = count
	}
	return counts, nil
}

// Seed writes postings in the crawler's layout. Each posting's set member
// and count land in one transaction.
func (i *Index) Seed(ctx context.Context, term string, postings map[string]int) error {
	if err := lookup.ValidateCounts("document", postings); err != nil {
		return err
	}
	for _, url := range lookup.SortedKeys(postings) {
		fields := map[string]interface{}{term: postings[url]}
		if err := i.client.AddMemberWithHash(ctx, []string{URLSetKey(term)}, url, TermCounterKey(url), fields); err != nil {
			return fmt.Errorf("seeding %q for %s: %w", term, url, err)
		}
	}
	return nil
}

// SeedDocument adds url to the set of every term in counts and writes the
// whole TermCounter hash in a single transaction.
func (i *Index) SeedDocument(ctx context.Context, url string, counts map[string]int) error {
	if url == "" {
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "empty document url")
	}
	if err := lookup.ValidateCounts("term", counts); err != nil {
		return err
	}
	terms := lookup.SortedKeys(counts)
	setKeys := make([]string, len(terms))
	fields := make(map[string]interface{}, len(terms))
	for n, term := range terms {
		setKeys[n] = URLSetKey(term)
		fields[term] = counts[term]
	}
	if err := i.client.AddMemberWithHash(ctx, setKeys, url, TermCounterKey(url), fields); err != nil {
		return fmt.Errorf("seeding %s: %w", url, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (i *Index) Ping(ctx context.Context) error {
	return i.client.Ping(ctx)
}
