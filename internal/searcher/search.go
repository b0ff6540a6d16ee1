// Package searcher turns index lookups into ranked result sets. Search
// resolves one term; the executor, cache and handler subpackages build the
// multi-term query service on top of it.
package searcher

import (
	"context"
	"errors"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/resultset"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

// Search fetches the postings of term from idx and scores each document by
// its occurrence count. A term with no postings yields an empty set. If ctx
// ended, its error is returned as is; any other lookup error is returned
// wrapping errors.ErrLookupFailed.
func Search(ctx context.Context, term string, idx lookup.Lookup, opts ...resultset.Option) (*resultset.ResultSet, error) {
	counts, err := idx.Counts(ctx, term)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, apperrors.ErrLookupFailed) {
			return nil, err
		}
		return nil, apperrors.LookupFailed("index", term, err)
	}
	return resultset.FromCounts(counts, opts...), nil
}
