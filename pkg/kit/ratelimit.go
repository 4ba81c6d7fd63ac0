package kit

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitByIP limits requests per client address, preferring
// X-Forwarded-For / X-Real-IP when the service sits behind a proxy.
// A limit <= 0 disables limiting.
func RateLimitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			WriteError(w, r, http.StatusTooManyRequests, "too many requests", nil)
		}),
	)
}
