package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds middleware configuration.
type Config struct {
	Logger *zap.Logger

	CORS *CORSConfig

	RateLimit      rate.Limit
	RateLimitBurst int

	RequestTimeout time.Duration
}

// Chain assembles the full middleware stack. Order matters: the request id
// is assigned before the logger so access logs carry it, recovery wraps the
// handlers so no panic escapes, and the timeout sits innermost so its
// deadline only covers handler work.
func Chain(config *Config) func(http.Handler) http.Handler {
	rateLimiter := NewRateLimiter(config.RateLimit, config.RateLimitBurst)

	outermostFirst := []func(http.Handler) http.Handler{
		RequestID,
		Logger(config.Logger),
		Recovery(config.Logger),
	}
	if config.CORS != nil {
		outermostFirst = append(outermostFirst, CORS(config.CORS))
	}
	outermostFirst = append(outermostFirst,
		rateLimiter.Middleware(),
		Timeout(config.RequestTimeout),
	)

	return func(handler http.Handler) http.Handler {
		h := handler
		for i := len(outermostFirst) - 1; i >= 0; i-- {
			h = outermostFirst[i](h)
		}
		return h
	}
}
