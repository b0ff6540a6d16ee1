// Package executor runs structured multi-term queries: it resolves every
// term through the injected lookup, combines the per-term result sets with
// the boolean operator, removes excluded documents and ranks what is left.
package executor

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/resultset"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher"
)

// SearchResult is the ranked answer to a Query.
type SearchResult struct {
	Query     string            `json:"query"`
	Op        Op                `json:"op"`
	Order     Order             `json:"order"`
	TotalHits int               `json:"total_hits"`
	Results   []resultset.Entry `json:"results"`
	TermStats map[string]int    `json:"term_stats"`
}

// Options tunes a single execution. Limit <= 0 returns every match.
type Options struct {
	Limit int
	Order Order
}

// Executor resolves queries against one Lookup.
type Executor struct {
	lookup        lookup.Lookup
	maxConcurrent int
	combiner      resultset.Combiner
	logger        *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithCombiner overrides the relevance combination policy.
func WithCombiner(c resultset.Combiner) Option {
	return func(e *Executor) { e.combiner = c }
}

// New returns an Executor issuing at most maxConcurrent lookups at once.
// Non-positive maxConcurrent means unbounded.
func New(l lookup.Lookup, maxConcurrent int, opts ...Option) *Executor {
	e := &Executor{
		lookup:        l,
		maxConcurrent: maxConcurrent,
		logger:        slog.Default().With("component", "query-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs q. Terms are combined left to right with Intersect for OpAnd
// or Union for OpOr; documents matching any excluded term are then removed.
// A failed lookup fails the whole query with an error wrapping
// errors.ErrLookupFailed.
func (e *Executor) Execute(ctx context.Context, q Query, opts Options) (*SearchResult, error) {
	q = q.Normalize()
	order := opts.Order
	if order == "" {
		order = OrderAsc
	}
	if len(q.Terms) == 0 {
		return &SearchResult{
			Query:     q.String(),
			Op:        q.Op,
			Order:     order,
			Results:   []resultset.Entry{},
			TermStats: map[string]int{},
		}, nil
	}

	sets, err := e.fetch(ctx, append(append([]string(nil), q.Terms...), q.Exclude...))
	if err != nil {
		return nil, err
	}

	var matched *resultset.ResultSet
	for i, term := range q.Terms {
		rs := sets[term]
		switch {
		case i == 0:
			matched = rs
		case q.Op == OpOr:
			matched = matched.Union(rs)
		default:
			matched = matched.Intersect(rs)
		}
	}
	if len(q.Exclude) > 0 {
		excluded := e.empty()
		for _, term := range q.Exclude {
			excluded = excluded.Union(sets[term])
		}
		matched = matched.Difference(excluded)
	}

	var ranked []resultset.Entry
	if order == OrderDesc {
		ranked = matched.SortDescending()
	} else {
		ranked = matched.Sort()
	}
	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}

	stats := make(map[string]int, len(sets))
	for term, rs := range sets {
		stats[term] = rs.Len()
	}

	e.logger.Info("query executed",
		"query", q.String(),
		"terms", len(q.Terms),
		"excluded", len(q.Exclude),
		"matched", matched.Len(),
		"returned", len(ranked),
	)
	return &SearchResult{
		Query:     q.String(),
		Op:        q.Op,
		Order:     order,
		TotalHits: matched.Len(),
		Results:   ranked,
		TermStats: stats,
	}, nil
}

// fetch looks up every distinct term concurrently. The first failure
// cancels the remaining lookups.
func (e *Executor) fetch(ctx context.Context, terms []string) (map[string]*resultset.ResultSet, error) {
	distinct := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			distinct = append(distinct, t)
		}
	}

	results := make([]*resultset.ResultSet, len(distinct))
	g, gctx := errgroup.WithContext(ctx)
	if e.maxConcurrent > 0 {
		g.SetLimit(e.maxConcurrent)
	}
	for i, term := range distinct {
		g.Go(func() error {
			rs, err := searcher.Search(gctx, term, e.lookup, e.setOptions()...)
			if err != nil {
				return err
			}
			results[i] = rs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			e.logger.Debug("term lookups abandoned", "error", err)
			return nil, err
		}
		e.logger.Error("term lookup failed", "error", err)
		return nil, err
	}

	sets := make(map[string]*resultset.ResultSet, len(distinct))
	for i, term := range distinct {
		sets[term] = results[i]
	}
	return sets, nil
}

func (e *Executor) setOptions() []resultset.Option {
	if e.combiner == nil {
		return nil
	}
	return []resultset.Option{resultset.WithCombiner(e.combiner)}
}

func (e *Executor) empty() *resultset.ResultSet {
	return resultset.Empty(e.setOptions()...)
}
