package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

func newMuxRouter(routes []route, notFound, methodNotAllowed http.Handler) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = methodNotAllowed

	for _, rt := range routes {
		h := rt.handler
		r.HandleFunc(rt.pattern, func(w http.ResponseWriter, req *http.Request) {
			h(w, withPathParams(req, mux.Vars(req)))
		}).Methods(rt.method)
	}
	return r
}
