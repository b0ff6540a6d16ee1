// Package writer stores the term counts of incoming documents in the
// configured index backend.
package writer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup/memindex"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

// Invalidator drops cached query results after the index changes.
// *cache.QueryCache satisfies it.
type Invalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

// Writer indexes documents. The in-process index gets stemmed terms and
// replace-on-write semantics; remote stores get lower-cased words merged
// into their existing postings.
type Writer struct {
	seeder      lookup.Seeder
	memory      *memindex.Index
	invalidator Invalidator
	logger      *slog.Logger
}

// New builds a Writer. When memory is non-nil it is written instead of
// seeder. inv may be nil.
func New(seeder lookup.Seeder, memory *memindex.Index, inv Invalidator) *Writer {
	return &Writer{
		seeder:      seeder,
		memory:      memory,
		invalidator: inv,
		logger:      slog.Default().With("component", "document-writer"),
	}
}

// Write indexes req and returns the identifier it was stored under. Remote
// stores receive all of a document's terms in one atomic write. The query
// cache is invalidated after every write attempt, failed ones included.
func (w *Writer) Write(ctx context.Context, req *ingestion.DocumentRequest) (*ingestion.DocumentResponse, error) {
	docID := req.DocumentID
	if docID == "" {
		docID = uuid.NewString()
	}

	var terms int
	if w.memory != nil {
		terms = len(tokenizer.Count(req.Title + " " + req.Body))
		if terms == 0 {
			return nil, noTerms()
		}
		w.memory.AddDocument(docID, req.Title, req.Body)
	} else {
		counts := tokenizer.CountWords(req.Title + " " + req.Body)
		if len(counts) == 0 {
			return nil, noTerms()
		}
		err := w.seeder.SeedDocument(ctx, docID, counts)
		if err != nil {
			w.invalidate(ctx, docID)
			return nil, fmt.Errorf("indexing %s: %w", docID, err)
		}
		terms = len(counts)
	}

	w.invalidate(ctx, docID)
	return &ingestion.DocumentResponse{DocumentID: docID, Status: "indexed", Terms: terms}, nil
}

func (w *Writer) invalidate(ctx context.Context, docID string) {
	if w.invalidator == nil {
		return
	}
	if _, err := w.invalidator.Invalidate(context.WithoutCancel(ctx)); err != nil {
		w.logger.Warn("cache invalidation failed", "doc_id", docID, "error", err)
	}
}

func noTerms() error {
	return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "document has no indexable terms")
}
