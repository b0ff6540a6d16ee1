// Package memindex is an in-process term-count index. Documents are
// tokenised on insert; lookups normalise the queried term the same way, so
// "Programming" finds documents containing "programs" or "programming".
package memindex

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/lookup/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

// Index maps term to document to occurrence count. It is safe for
// concurrent use.
type Index struct {
	mu       sync.RWMutex
	postings map[string]map[string]int
	docTerms map[string][]string
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		postings: make(map[string]map[string]int),
		docTerms: make(map[string][]string),
	}
}

// AddDocument indexes the title and body of docID, replacing whatever was
// previously indexed under that identifier.
func (m *Index) AddDocument(docID, title, body string) {
	counts := tokenizer.Count(title + " " + body)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(docID)
	terms := make([]string, 0, len(counts))
	for term, n := range counts {
		m.put(term, docID, n)
		terms = append(terms, term)
	}
	m.docTerms[docID] = terms
}

// RemoveDocument drops every posting for docID. It reports whether the
// document was present.
func (m *Index) RemoveDocument(docID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(docID)
}

// Seed sets the counts of term for the given documents, merging with any
// postings already stored.
func (m *Index) Seed(_ context.Context, term string, postings map[string]int) error {
	normalized, err := normalizeTerm(term)
	if err != nil {
		return err
	}
	if err := lookup.ValidateCounts("document", postings); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for docID, n := range postings {
		m.seedLocked(normalized, docID, n)
	}
	return nil
}

// SeedDocument sets the counts of every term in counts for docID under one
// lock. Terms are normalised first; nothing is written if any is rejected.
func (m *Index) SeedDocument(_ context.Context, docID string, counts map[string]int) error {
	if docID == "" {
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "empty document id")
	}
	if err := lookup.ValidateCounts("term", counts); err != nil {
		return err
	}
	normalized := make(map[string]int, len(counts))
	for term, n := range counts {
		key, err := normalizeTerm(term)
		if err != nil {
			return err
		}
		normalized[key] += n
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for term, n := range normalized {
		m.seedLocked(term, docID, n)
	}
	return nil
}

// Counts implements lookup.Lookup. The returned map is a copy.
func (m *Index) Counts(ctx context.Context, term string) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	normalized := tokenizer.Normalize(term)

	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := m.postings[normalized]
	out := make(map[string]int, len(docs))
	for docID, n := range docs {
		out[docID] = n
	}
	return out, nil
}

// Terms lists every indexed term in lexical order.
func (m *Index) Terms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	terms := make([]string, 0, len(m.postings))
	for term := range m.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// DocCount returns the number of documents with at least one posting.
func (m *Index) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docTerms)
}

// Reset empties the index.
func (m *Index) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postings = make(map[string]map[string]int)
	m.docTerms = make(map[string][]string)
}

func normalizeTerm(term string) (string, error) {
	normalized := tokenizer.Normalize(term)
	if normalized == "" {
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "term %q has no indexable form", term)
	}
	return normalized, nil
}

func (m *Index) seedLocked(term, docID string, n int) {
	if _, seen := m.postings[term][docID]; !seen {
		m.docTerms[docID] = append(m.docTerms[docID], term)
	}
	m.put(term, docID, n)
}

func (m *Index) put(term, docID string, n int) {
	docs, ok := m.postings[term]
	if !ok {
		docs = make(map[string]int)
		m.postings[term] = docs
	}
	docs[docID] = n
}

func (m *Index) removeLocked(docID string) bool {
	terms, ok := m.docTerms[docID]
	if !ok {
		return false
	}
	for _, term := range terms {
		delete(m.postings[term], docID)
		if len(m.postings[term]) == 0 {
			delete(m.postings, term)
		}
	}
	delete(m.docTerms, docID)
	return true
}
