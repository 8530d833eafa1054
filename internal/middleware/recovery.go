package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/go-chi/render"
	"go.uber.org/zap"
)

// Recovery converts a downstream panic into a 500 response and a log line
// carrying the stack and request id.
func Recovery(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				logger.Error("Panic recovered",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("stack", string(debug.Stack())),
				)

				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, map[string]interface{}{
					"error":   ErrorCodeInternal,
					"message": ErrorMessageInternal,
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
