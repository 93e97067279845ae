package httpapi

import (
	"errors"
	"net/http"

	"github.com/R3E-Network/records_service/internal/app/storage"
	"github.com/R3E-Network/records_service/internal/app/validation"
	"github.com/R3E-Network/records_service/internal/httputil"
	"github.com/R3E-Network/records_service/internal/middleware"
)

// writeError maps domain errors onto HTTP responses. Unclassified errors are
// logged and reported as 500 without detail.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if verr, ok := validation.AsError(err); ok {
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeInvalidInput, "validation failed", verr.Fields)
		return
	}
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, httputil.CodeNotFound, "record not found", nil)
		return
	}
	h.log.WithError(err).
		WithField("trace_id", middleware.TraceID(r.Context())).
		WithField("path", r.URL.Path).
		Error("request failed")
	httputil.WriteError(w, http.StatusInternalServerError, httputil.CodeInternal, "internal error", nil)
}
