package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/ingestion"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name   string
		req    ingestion.DocumentRequest
		fields []string
	}{
		{"valid", ingestion.DocumentRequest{DocumentID: "docA", Title: "Java", Body: "java coffee"}, nil},
		{"generated id", ingestion.DocumentRequest{Body: "java"}, nil},
		{"empty body", ingestion.DocumentRequest{Body: "   "}, []string{"body"}},
		{"url id", ingestion.DocumentRequest{DocumentID: "https://en.wikipedia.org/wiki/Java", Body: "x"}, nil},
		{"id with space", ingestion.DocumentRequest{DocumentID: "a b", Body: "x"}, []string{"doc_id"}},
		{"id too long", ingestion.DocumentRequest{DocumentID: strings.Repeat("a", 256), Body: "x"}, []string{"doc_id"}},
		{"title too long", ingestion.DocumentRequest{Title: strings.Repeat("t", 1025)}, []string{"body", "title"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(&tt.req)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			got := make([]string, 0, len(verr.Fields))
			for f := range verr.Fields {
				got = append(got, f)
			}
			assert.ElementsMatch(t, tt.fields, got)
		})
	}
}

func TestValidationErrorMessageIsStable(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"title": "too long", "body": "required"}}
	assert.Equal(t, "body: required; title: too long", err.Error())
}
