package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

// BearerAuth guards a route group with a static bearer token, used for the
// provider webhook intake. An empty token disables the check so local
// setups can run without one.
func BearerAuth(token string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, map[string]interface{}{
					"error":   ErrorCodeUnauthorized,
					"message": ErrorMessageUnauthorized,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
