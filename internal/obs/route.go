package obs

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouteOf returns the matched chi route pattern for r. It is only complete
// once the router has served the request.
func RouteOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

// cartID returns the cart id path parameter when the route carries one.
func cartID(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.URLParam("id")
	}
	return ""
}
