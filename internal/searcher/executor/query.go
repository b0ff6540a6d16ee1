package executor

import (
	"net/http"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

// Op is the boolean operator joining a query's terms.
type Op string

const (
	OpAnd Op = "and"
	OpOr  Op = "or"
)

// ParseOp accepts "and" or "or" in any case. Empty means OpAnd.
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(OpAnd):
		return OpAnd, nil
	case string(OpOr):
		return OpOr, nil
	default:
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "op must be %q or %q, got %q", OpAnd, OpOr, s)
	}
}

// Order is the direction results are ranked in.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ParseOrder accepts "asc" or "desc" in any case. Empty yields def.
func ParseOrder(s string, def Order) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case string(OrderAsc):
		return OrderAsc, nil
	case string(OrderDesc):
		return OrderDesc, nil
	default:
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "order must be %q or %q, got %q", OrderAsc, OrderDesc, s)
	}
}

// Query is a structured multi-term search.
type Query struct {
	Op      Op
	Terms   []string
	Exclude []string
}

// Normalize trims and lower-cases terms, drops blanks and duplicates while
// keeping first-seen order, and defaults Op to OpAnd.
func (q Query) Normalize() Query {
	op := q.Op
	if op == "" {
		op = OpAnd
	}
	return Query{
		Op:      op,
		Terms:   cleanTerms(q.Terms),
		Exclude: cleanTerms(q.Exclude),
	}
}

// String renders the query as "java AND programming NOT coffee".
func (q Query) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(q.Terms, " "+strings.ToUpper(string(q.Op))+" "))
	for _, t := range q.Exclude {
		b.WriteString(" NOT ")
		b.WriteString(t)
	}
	return strings.TrimSpace(b.String())
}

// Key is a canonical form that is equal for queries matching the same
// documents: term order does not matter.
func (q Query) Key() string {
	n := q.Normalize()
	terms := append([]string(nil), n.Terms...)
	excludes := append([]string(nil), n.Exclude...)
	sort.Strings(terms)
	sort.Strings(excludes)
	parts := []string{string(n.Op), strings.Join(terms, ",")}
	if len(excludes) > 0 {
		parts = append(parts, "not:"+strings.Join(excludes, ","))
	}
	return strings.Join(parts, "|")
}

func cleanTerms(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
