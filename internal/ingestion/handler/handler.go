package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
)

// maxRequestBytes bounds the decoded body; the validator enforces the
// per-field limits.
const maxRequestBytes = 2 << 20

// DocumentWriter is satisfied by *writer.Writer.
type DocumentWriter interface {
	Write(ctx context.Context, req *ingestion.DocumentRequest) (*ingestion.DocumentResponse, error)
}

type Handler struct {
	writer DocumentWriter
	logger *slog.Logger
}

func New(w DocumentWriter) *Handler {
	return &Handler{
		writer: w,
		logger: slog.Default().With("component", "ingestion-handler"),
	}
}

// Ingest serves POST /api/v1/documents.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req ingestion.DocumentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateDocument(&req); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.writer.Write(ctx, &req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("indexing failed", "error", err, "status_code", statusCode)
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			h.writeError(w, statusCode, appErr.Message)
			return
		}
		h.writeError(w, statusCode, "indexing failed")
		return
	}
	log.Info("document indexed", "doc_id", resp.DocumentID, "terms", resp.Terms)
	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
