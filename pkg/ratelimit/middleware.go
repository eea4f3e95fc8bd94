package ratelimit

import (
	"log/slog"
	"net/http"

	"github.com/rogertalk/roger-api-sub001/pkg/logger"
)

// MiddlewareOption configures middleware behavior.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	logger         *slog.Logger
	onLimitReached http.HandlerFunc
}

// WithMiddlewareLogger sets the logger for store failures.
func WithMiddlewareLogger(log *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if log != nil {
			c.logger = log
		}
	}
}

// WithOnLimitReached sets a custom handler for rate limit exceeded.
func WithOnLimitReached(fn http.HandlerFunc) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.onLimitReached = fn
		}
	}
}

// Middleware spends one token on scope plus the parts returned by keyFunc
// for each request and answers 429 when the bucket is empty. Store errors
// fail open.
func Middleware(spender Spender, scope string, keyFunc KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if spender == nil || keyFunc == nil {
		panic("ratelimit.Middleware: spender and keyFunc are required")
	}

	cfg := &middlewareConfig{
		logger: slog.Default(),
		onLimitReached: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := keyFunc(r)
			if len(parts) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			parts = append([]string{scope}, parts...)

			ok, err := spender.Spend(r.Context(), parts...)
			if err != nil {
				cfg.logger.LogAttrs(r.Context(), slog.LevelWarn, "rate limit check failed",
					logger.RateLimitKey(Key(parts...)),
					logger.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				cfg.onLimitReached(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
