package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	app "github.com/R3E-Network/records_service/internal/app"
	"github.com/R3E-Network/records_service/internal/app/domain/record"
	"github.com/R3E-Network/records_service/internal/app/metrics"
	"github.com/R3E-Network/records_service/internal/app/validation"
	"github.com/R3E-Network/records_service/internal/httputil"
	"github.com/R3E-Network/records_service/pkg/logger"
)

// Router engines accepted by WithRouter.
const (
	RouterMux = "mux"
	RouterChi = "chi"
	RouterGin = "gin"
)

const defaultMaxBodyBytes int64 = 1 << 20

// handler bundles HTTP endpoints for the records API.
type handler struct {
	app     *app.Application
	log     *logger.Logger
	audit   *AuditLog
	router  string
	maxBody int64
}

// Option customises the HTTP handler.
type Option func(*handler)

// WithLogger sets the handler logger.
func WithLogger(log *logger.Logger) Option {
	return func(h *handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithAuditLog replaces the default in-memory audit log.
func WithAuditLog(audit *AuditLog) Option {
	return func(h *handler) {
		if audit != nil {
			h.audit = audit
		}
	}
}

// WithRouter selects the routing engine: mux (default), chi or gin.
func WithRouter(name string) Option {
	return func(h *handler) {
		if name != "" {
			h.router = name
		}
	}
}

// WithMaxBodyBytes bounds request bodies. Non-positive values keep 1 MiB.
func WithMaxBodyBytes(n int64) Option {
	return func(h *handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// NewHandler returns an HTTP handler exposing the records API.
func NewHandler(application *app.Application, opts ...Option) (http.Handler, error) {
	h := &handler{
		app:     application,
		log:     logger.NewDefault("httpapi"),
		router:  RouterMux,
		maxBody: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.audit == nil {
		h.audit = NewAuditLog(0, nil)
	}

	notFound := http.HandlerFunc(h.notFound)
	methodNotAllowed := http.HandlerFunc(h.methodNotAllowed)

	var router http.Handler
	switch h.router {
	case RouterMux:
		router = newMuxRouter(h.routes(), notFound, methodNotAllowed)
	case RouterChi:
		router = newChiRouter(h.routes(), notFound, methodNotAllowed)
	case RouterGin:
		router = newGinRouter(h.routes(), notFound, methodNotAllowed)
	default:
		return nil, errors.New("unknown router engine " + strconv.Quote(h.router))
	}
	return h.audit.Middleware(router), nil
}

func (h *handler) notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, http.StatusNotFound, httputil.CodeNotFound, "no route for "+r.URL.Path, nil)
}

func (h *handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, http.StatusMethodNotAllowed, httputil.CodeMethodNotAllowed,
		"method "+r.Method+" not allowed on "+r.URL.Path, nil)
}

func (h *handler) listRecords(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Records.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []record.Record{}
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (h *handler) getRecord(w http.ResponseWriter, r *http.Request) {
	raw := pathParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeInvalidInput, "id must be an integer",
			[]validation.FieldError{{Field: "id", Rule: "type", Message: "must be an integer, got " + strconv.Quote(raw)}})
		return
	}
	rec, err := h.app.Records.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *handler) createRecord(w http.ResponseWriter, r *http.Request) {
	body, err := httputil.ReadAllStrict(r.Body, h.maxBody)
	if err != nil {
		metrics.RecordCreate("invalid")
		httputil.WriteError(w, http.StatusBadRequest, httputil.CodeInvalidInput, "request body too large or unreadable",
			[]validation.FieldError{{Field: "body", Rule: "max", Message: "must be at most " + strconv.FormatInt(h.maxBody, 10) + " bytes"}})
		return
	}
	input, err := validation.DecodeCreate(body)
	if err != nil {
		metrics.RecordCreate("invalid")
		h.writeError(w, r, err)
		return
	}
	rec, err := h.app.Records.Create(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/records/"+strconv.FormatInt(rec.ID, 10))
	httputil.WriteJSON(w, http.StatusCreated, rec)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, http.StatusBadRequest, httputil.CodeInvalidInput, "limit must be a non-negative integer",
				[]validation.FieldError{{Field: "limit", Rule: "type", Message: "must be a non-negative integer"}})
			return
		}
		limit = n
	}
	httputil.WriteJSON(w, http.StatusOK, h.audit.Recent(limit))
}

func (h *handler) metrics(w http.ResponseWriter, r *http.Request) {
	metrics.Handler().ServeHTTP(w, r)
}
