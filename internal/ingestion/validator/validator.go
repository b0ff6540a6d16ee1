// Package validator checks document indexing requests and reports
// per-field failures.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/ingestion"
)

const (
	maxDocIDLength = 255
	maxTitleLength = 1024
	maxBodyLength  = 1 << 20
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateDocument requires a body, bounds every field and rejects
// identifiers containing whitespace.
func ValidateDocument(req *ingestion.DocumentRequest) error {
	errs := make(map[string]string)

	if id := req.DocumentID; id != "" {
		switch {
		case len(id) > maxDocIDLength:
			errs["doc_id"] = fmt.Sprintf("doc_id must be at most %d characters", maxDocIDLength)
		case strings.ContainsAny(id, " \t\r\n"):
			errs["doc_id"] = "doc_id must not contain whitespace"
		}
	}
	if len(req.Title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		errs["body"] = "body is required"
	} else if len(body) > maxBodyLength {
		errs["body"] = fmt.Sprintf("body must be at most %d characters", maxBodyLength)
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
