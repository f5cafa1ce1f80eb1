// Package shield provides the HTTP middleware stack of the extraction API:
// request IDs and per-request loggers, security headers, HEAD handling,
// upload size limits and per-client rate limiting.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.APIStack(shield.StackConfig{MaxBody: 100 << 20}) {
//	    r.Use(mw)
//	}
package shield

import (
	"log/slog"
	"net/http"
	"time"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// StackConfig configures APIStack.
type StackConfig struct {
	// MaxBody caps request bodies in bytes. Zero disables the cap.
	MaxBody int64
	// RateLimit is the number of requests a client may make per RateWindow.
	// Zero disables rate limiting.
	RateLimit  int
	RateWindow time.Duration
	// Exempt path prefixes skip rate limiting (health checks).
	Exempt []string
	Logger *slog.Logger
}

// APIStack returns the middleware chain in order: HeadToGet, SecurityHeaders,
// RequestContext, RateLimiter (when enabled), MaxBody.
func APIStack(cfg StackConfig) []func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	stack := []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		RequestContext(cfg.Logger),
	}
	if cfg.RateLimit > 0 {
		stack = append(stack, NewRateLimiter(cfg.RateLimit, cfg.RateWindow, cfg.Exempt...).Middleware)
	}
	if cfg.MaxBody > 0 {
		stack = append(stack, MaxBody(cfg.MaxBody))
	}
	return stack
}

// HeadToGet serves HEAD through GET routes; net/http drops the body.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			r.Method = http.MethodGet
		}
		next.ServeHTTP(w, r)
	})
}

// MaxBody caps every request body at maxBytes. Reads past the cap fail with
// *http.MaxBytesError.
func MaxBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_, _ = w.Write([]byte(`{"error":"request body too large","kind":"too_large"}` + "\n"))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
