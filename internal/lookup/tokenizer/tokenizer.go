// Package tokenizer normalises text into index terms: lower-cased,
// split on non-alphanumeric boundaries, stop-words dropped and suffixes
// stripped by a small rule-based stemmer. Both the in-memory index and the
// query driver use it so stored and queried terms agree.
package tokenizer

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

type suffixRule struct {
	suffix      string
	replacement string
	minLen      int
}

// Longest suffixes first; the first rule whose result is long enough wins.
var suffixRules = []suffixRule{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

// Terms splits text into normalised terms in document order. Repeated
// words produce repeated terms.
func Terms(text string) []string {
	words := split(text)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if t := normalizeWord(word); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// Words is Terms without stemming. Stores that match query terms verbatim
// are filled with these.
func Words(text string) []string {
	words := split(text)
	out := words[:0]
	for _, word := range words {
		if keep(word) {
			out = append(out, word)
		}
	}
	return out
}

// CountWords returns the occurrence count of every word Words yields.
func CountWords(text string) map[string]int {
	counts := make(map[string]int)
	for _, w := range Words(text) {
		counts[w]++
	}
	return counts
}

// Count returns the occurrence count of every term in text.
func Count(text string) map[string]int {
	counts := make(map[string]int)
	for _, t := range Terms(text) {
		counts[t]++
	}
	return counts
}

// Normalize maps a single query term to its index form. It returns "" for
// stop-words, one-character words and input with no letters or digits. When
// the input holds several words only the first survivor is kept.
func Normalize(term string) string {
	terms := Terms(term)
	if len(terms) == 0 {
		return ""
	}
	return terms[0]
}

func split(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func keep(word string) bool {
	if len(word) < 2 {
		return false
	}
	_, isStop := stopWords[word]
	return !isStop
}

func normalizeWord(word string) string {
	if !keep(word) {
		return ""
	}
	return stem(word)
}

func stem(word string) string {
	for _, rule := range suffixRules {
		if !strings.HasSuffix(word, rule.suffix) {
			continue
		}
		if stemmed := word[:len(word)-len(rule.suffix)] + rule.replacement; len(stemmed) >= rule.minLen {
			return stemmed
		}
	}
	return word
}
