// Package resultset implements the scored document set produced by a term
// lookup and the boolean algebra used to compose multi-term queries. A
// ResultSet maps document identifiers to integer relevance scores and is never
// mutated after construction: every operator returns a freshly built set.
package resultset

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Combiner merges the scores of a document present in both operands of an
// operator.
type Combiner func(score1, score2 int) int

// TotalRelevance is the default Combiner: relevance is the sum of the
// per-term scores.
func TotalRelevance(score1, score2 int) int {
	return score1 + score2
}

// MaxRelevance keeps the larger of the two scores.
func MaxRelevance(score1, score2 int) int {
	if score1 >= score2 {
		return score1
	}
	return score2
}

// Entry is one ranked (document, score) pair.
type Entry struct {
	DocID string `json:"doc_id"`
	Score int    `json:"score"`
}

// ResultSet is an immutable mapping from document identifier to relevance.
type ResultSet struct {
	scores  map[string]int
	combine Combiner
}

// Option configures a ResultSet at construction.
type Option func(*ResultSet)

// WithCombiner replaces the policy used when both operands of Union or
// Intersect contain a document. Results inherit the receiver's combiner.
func WithCombiner(c Combiner) Option {
	return func(r *ResultSet) {
		if c != nil {
			r.combine = c
		}
	}
}

// FromCounts wraps a term's posting map. Scores equal the counts exactly; the
// input map is copied so later changes to it are not observed.
func FromCounts(postings map[string]int, opts ...Option) *ResultSet {
	scores := make(map[string]int, len(postings))
	for docID, count := range postings {
		scores[docID] = count
	}
	return newSet(scores, opts...)
}

// Empty returns a ResultSet with no entries.
func Empty(opts ...Option) *ResultSet {
	return newSet(make(map[string]int), opts...)
}

func newSet(scores map[string]int, opts ...Option) *ResultSet {
	r := &ResultSet{scores: scores, combine: TotalRelevance}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// derive builds a result that shares the receiver's policy but owns scores.
func (r *ResultSet) derive(scores map[string]int) *ResultSet {
	return &ResultSet{scores: scores, combine: r.combiner()}
}

func (r *ResultSet) combiner() Combiner {
	if r == nil || r.combine == nil {
		return TotalRelevance
	}
	return r.combine
}

// Relevance returns the score for docID, or 0 if the document is absent.
func (r *ResultSet) Relevance(docID string) int {
	if r == nil {
		return 0
	}
	return r.scores[docID]
}

// Contains reports whether docID has an entry.
func (r *ResultSet) Contains(docID string) bool {
	if r == nil {
		return false
	}
	_, ok := r.scores[docID]
	return ok
}

// Len returns the number of entries.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.scores)
}

// IsEmpty reports whether the set has no entries.
func (r *ResultSet) IsEmpty() bool {
	return r.Len() == 0
}

// DocIDs returns the identifiers in lexical order.
func (r *ResultSet) DocIDs() []string {
	ids := make([]string, 0, r.Len())
	if r == nil {
		return ids
	}
	for docID := range r.scores {
		ids = append(ids, docID)
	}
	sort.Strings(ids)
	return ids
}

// Scores returns a copy of the underlying mapping.
func (r *ResultSet) Scores() map[string]int {
	out := make(map[string]int, r.Len())
	if r == nil {
		return out
	}
	for docID, score := range r.scores {
		out[docID] = score
	}
	return out
}

// Union (OR) contains every document of either operand. A document present in
// both is scored by the combiner; otherwise its single score is kept.
func (r *ResultSet) Union(other *ResultSet) *ResultSet {
	combine := r.combiner()
	scores := make(map[string]int, r.Len()+other.Len())
	if r != nil {
		for docID, score := range r.scores {
			scores[docID] = score
		}
	}
	if other != nil {
		for docID, score := range other.scores {
			if existing, ok := scores[docID]; ok {
				scores[docID] = combine(existing, score)
				continue
			}
			scores[docID] = score
		}
	}
	return r.derive(scores)
}

// Intersect (AND) contains the documents present in both operands, scored by
// the combiner. The smaller operand is scanned and the larger probed.
func (r *ResultSet) Intersect(other *ResultSet) *ResultSet {
	combine := r.combiner()
	scores := make(map[string]int)
	if r.Len() == 0 || other.Len() == 0 {
		return r.derive(scores)
	}
	scan, probe, swapped := r, other, false
	if other.Len() < r.Len() {
		scan, probe, swapped = other, r, true
	}
	for docID, score := range scan.scores {
		probed, ok := probe.scores[docID]
		if !ok {
			continue
		}
		// keep the receiver's score as the first argument
		if swapped {
			scores[docID] = combine(probed, score)
		} else {
			scores[docID] = combine(score, probed)
		}
	}
	return r.derive(scores)
}

// Difference (MINUS) contains the receiver's documents that are absent from
// other, with the receiver's scores unchanged.
func (r *ResultSet) Difference(other *ResultSet) *ResultSet {
	scores := make(map[string]int, r.Len())
	if r == nil {
		return r.derive(scores)
	}
	for docID, score := range r.scores {
		if other.Contains(docID) {
			continue
		}
		scores[docID] = score
	}
	return r.derive(scores)
}

// Sort returns every entry ordered by ascending score. Order among equal
// scores is unspecified.
func (r *ResultSet) Sort() []Entry {
	entries := r.entries()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Score < entries[j].Score
	})
	return entries
}

// SortDescending returns every entry ordered most relevant first. Order among
// equal scores is unspecified.
func (r *ResultSet) SortDescending() []Entry {
	entries := r.entries()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}

func (r *ResultSet) entries() []Entry {
	entries := make([]Entry, 0, r.Len())
	if r == nil {
		return entries
	}
	for docID, score := range r.scores {
		entries = append(entries, Entry{DocID: docID, Score: score})
	}
	return entries
}

// String renders the set in ascending rank order.
func (r *ResultSet) String() string {
	return fmt.Sprintf("%v", r.Sort())
}

// MarshalJSON encodes the set as a plain object of docID to score.
func (r *ResultSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Scores())
}

// UnmarshalJSON decodes a plain object of docID to score. The combiner resets
// to TotalRelevance.
func (r *ResultSet) UnmarshalJSON(data []byte) error {
	var scores map[string]int
	if err := json.Unmarshal(data, &scores); err != nil {
		return fmt.Errorf("decoding result set: %w", err)
	}
	if scores == nil {
		scores = make(map[string]int)
	}
	r.scores = scores
	r.combine = TotalRelevance
	return nil
}
