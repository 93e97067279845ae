package httpapi

import (
	"context"
	"net/http"
)

// route is one entry of the routing table. Patterns use {name} placeholders.
type route struct {
	method  string
	pattern string
	handler http.HandlerFunc
}

func (h *handler) routes() []route {
	return []route{
		{http.MethodGet, "/records", h.listRecords},
		{http.MethodPost, "/records", h.createRecord},
		{http.MethodGet, "/records/{id}", h.getRecord},
		{http.MethodGet, "/healthz", h.health},
		{http.MethodGet, "/info", h.info},
		{http.MethodGet, "/audit", h.auditEntries},
		{http.MethodGet, "/metrics", h.metrics},
	}
}

type paramsKey struct{}

// withPathParams stores the path parameters extracted by the router engine.
func withPathParams(r *http.Request, params map[string]string) *http.Request {
	if len(params) == 0 {
		return r
	}
	return r.WithContext(context.WithValue(r.Context(), paramsKey{}, params))
}

func pathParam(r *http.Request, name string) string {
	params, _ := r.Context().Value(paramsKey{}).(map[string]string)
	return params[name]
}
