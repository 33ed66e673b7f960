package handler

import (
	"context"
	"net/http"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/circuit"
	"github.com/tddproof/tddproof-backend/internal/twoddoc/domain"
	"github.com/tddproof/tddproof-backend/pkg/httputil"
	"github.com/tddproof/tddproof-backend/pkg/logger"
)

// DocumentService is the pipeline behind the document endpoints
type DocumentService interface {
	ParseDocument(ctx context.Context, requestID, raw string) (*domain.Document, error)
	BuildCircuitInput(ctx context.Context, requestID, idRaw, taxesRaw string) (*circuit.CircuitInput, error)
}

// ParseRequest is the body of POST /documents/parse
type ParseRequest struct {
	Raw string `json:"raw" validate:"required"`
}

// CircuitInputRequest is the body of POST /circuit-inputs
type CircuitInputRequest struct {
	IDRaw    string `json:"id_raw" validate:"required"`
	TaxesRaw string `json:"taxes_raw" validate:"required"`
}

// DocumentHandler handles parse and circuit input endpoints
type DocumentHandler struct {
	service DocumentService
	logger  *logger.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(svc DocumentService, log *logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		service: svc,
		logger:  log,
	}
}

// Parse decodes one 2D-DOC payload
func (h *DocumentHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	doc, err := h.service.ParseDocument(r.Context(), httputil.GetRequestID(r.Context()), req.Raw)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, doc)
}

// BuildCircuitInput parses an identity document and a tax notice and returns
// the circuit input relating them
func (h *DocumentHandler) BuildCircuitInput(w http.ResponseWriter, r *http.Request) {
	var req CircuitInputRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	input, err := h.service.BuildCircuitInput(r.Context(), httputil.GetRequestID(r.Context()), req.IDRaw, req.TaxesRaw)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, input)
}
