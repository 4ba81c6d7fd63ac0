package kit

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const unmatchedRoute = "unmatched"

// ChiRoutePattern returns the matched chi route pattern. Unmatched
// requests collapse to a single label so arbitrary paths cannot blow up
// metric cardinality.
func ChiRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if rp := rctx.RoutePattern(); rp != "" {
		return rp
	}
	return unmatchedRoute
}
