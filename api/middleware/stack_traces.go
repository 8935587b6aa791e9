package middleware

import (
	"net/http"

	"github.com/resinart/storefront-api/api/responses"
)

// StackTraces exposes error chains in error bodies outside production.
func StackTraces(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(responses.WithStackTraces(r.Context())))
		})
	}
}
