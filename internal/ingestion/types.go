// Package ingestion defines the request and response types of the document
// indexing endpoint.
package ingestion

// DocumentRequest is the JSON body accepted by POST /api/v1/documents. An
// empty DocumentID is replaced by a generated one.
type DocumentRequest struct {
	DocumentID string `json:"doc_id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

// DocumentResponse is returned once every term of the document is stored.
type DocumentResponse struct {
	DocumentID string `json:"doc_id"`
	Status     string `json:"status"`
	Terms      int    `json:"terms"`
}
