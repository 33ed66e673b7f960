package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tddproof/tddproof-backend/internal/twoddoc/catalog"
	"github.com/tddproof/tddproof-backend/pkg/errors"
	"github.com/tddproof/tddproof-backend/pkg/httputil"
)

// CatalogHandler serves the field catalog and the document-type registry
type CatalogHandler struct{}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

func (h *CatalogHandler) ListFields(w http.ResponseWriter, r *http.Request) {
	fields := catalog.Fields()
	httputil.JSONWithMeta(w, http.StatusOK, fields, &httputil.Meta{Total: int64(len(fields))})
}

func (h *CatalogHandler) ListDocumentTypes(w http.ResponseWriter, r *http.Request) {
	types := catalog.DocumentTypes()
	httputil.JSONWithMeta(w, http.StatusOK, types, &httputil.Meta{Total: int64(len(types))})
}

// GetDocumentType resolves one (perimeter, type) pair; unknown pairs are 404
func (h *CatalogHandler) GetDocumentType(w http.ResponseWriter, r *http.Request) {
	docType := catalog.LookupDocumentType(chi.URLParam(r, "perimeter"), chi.URLParam(r, "docType"))
	if !docType.Supported() {
		httputil.Error(w, errors.NotFound("document type"))
		return
	}
	httputil.JSON(w, http.StatusOK, docType)
}
