package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func newGinRouter(routes []route, notFound, methodNotAllowed http.Handler) http.Handler {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(gin.WrapH(notFound))
	engine.NoMethod(gin.WrapH(methodNotAllowed))

	for _, rt := range routes {
		h := rt.handler
		engine.Handle(rt.method, ginPattern(rt.pattern), func(c *gin.Context) {
			var params map[string]string
			if len(c.Params) > 0 {
				params = make(map[string]string, len(c.Params))
				for _, p := range c.Params {
					params[p.Key] = p.Value
				}
			}
			h(c.Writer, withPathParams(c.Request, params))
		})
	}
	return engine
}

// ginPattern rewrites "/records/{id}" as "/records/:id".
func ginPattern(pattern string) string {
	parts := strings.Split(pattern, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			parts[i] = ":" + p[1:len(p)-1]
		}
	}
	return strings.Join(parts, "/")
}
