package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func newChiRouter(routes []route, notFound, methodNotAllowed http.Handler) http.Handler {
	r := chi.NewRouter()
	r.NotFound(notFound.ServeHTTP)
	r.MethodNotAllowed(methodNotAllowed.ServeHTTP)

	for _, rt := range routes {
		h := rt.handler
		r.MethodFunc(rt.method, rt.pattern, func(w http.ResponseWriter, req *http.Request) {
			var params map[string]string
			if rctx := chi.RouteContext(req.Context()); rctx != nil && len(rctx.URLParams.Keys) > 0 {
				params = make(map[string]string, len(rctx.URLParams.Keys))
				for i, key := range rctx.URLParams.Keys {
					params[key] = rctx.URLParams.Values[i]
				}
			}
			h(w, withPathParams(req, params))
		})
	}
	return r
}
