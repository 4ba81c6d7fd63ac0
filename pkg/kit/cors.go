package kit

import (
	"net/http"

	"github.com/go-chi/cors"
)

const corsMaxAge = 86400

// CORS allows read-only cross-origin access from the given origins.
// No origins means no CORS headers are emitted.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         corsMaxAge,
	})
}
