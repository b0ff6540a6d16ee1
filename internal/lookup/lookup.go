// Package lookup defines the term-count lookup consumed by the query driver
// and the fault-tolerance decorator applied to remote backends. Concrete
// stores live in the memindex, redisindex, pgindex and boltindex packages;
// the backend package selects one from configuration.
package lookup

import (
	"context"
	"net/http"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

// Lookup returns, for one term, the mapping from document identifier to the
// number of times the term occurs in that document. A term absent from the
// index yields an empty map and a nil error; errors are reserved for a store
// that could not answer.
type Lookup interface {
	Counts(ctx context.Context, term string) (map[string]int, error)
}

// Func adapts a plain function to Lookup.
type Func func(ctx context.Context, term string) (map[string]int, error)

// Counts calls f.
func (f Func) Counts(ctx context.Context, term string) (map[string]int, error) {
	return f(ctx, term)
}

// Seeder writes postings. Backends implement it so fixtures, demos and the
// ingestion writer can populate any store the same way.
//
// Seed merges one term's document counts into the store. SeedDocument merges
// every term count of one document in a single write, so a failure leaves
// none of that document's postings behind. Both reject non-positive counts
// with errors.ErrInvalidInput before writing anything.
type Seeder interface {
	Seed(ctx context.Context, term string, postings map[string]int) error
	SeedDocument(ctx context.Context, docID string, counts map[string]int) error
}

// ValidateCounts rejects empty keys and non-positive counts. keyKind names
// the keys in the error ("document" or "term").
func ValidateCounts(keyKind string, counts map[string]int) error {
	for _, k := range SortedKeys(counts) {
		if k == "" {
			return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "empty %s", keyKind)
		}
		if n := counts[k]; n <= 0 {
			return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "count for %s %q must be positive, got %d", keyKind, k, n)
		}
	}
	return nil
}

// SortedKeys returns the keys of counts in lexical order, so batch writes
// touch rows in a stable order.
func SortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
