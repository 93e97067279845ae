package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/R3E-Network/records_service/internal/httputil"
	"github.com/R3E-Network/records_service/pkg/logger"
)

// Recover turns handler panics into 500 responses.
func Recover(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					traceID := TraceID(r.Context())
					if traceID == "" {
						traceID = w.Header().Get(TraceIDHeader)
					}
					log.WithField("trace_id", traceID).
						WithField("panic", v).
						WithField("stack", string(debug.Stack())).
						Error("handler panic")
					httputil.WriteError(w, http.StatusInternalServerError, httputil.CodeInternal, "internal server error", nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
