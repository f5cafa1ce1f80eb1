package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/mdextract/idgen"
	"github.com/hazyhaar/mdextract/kit"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestContext tags each request with a request ID, reusing a well-formed
// incoming X-Request-ID, picks up the trace id of a W3C traceparent header and
// attaches a per-request logger. The request ID is echoed in the response.
func RequestContext(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := idgen.Parse(idgen.RequestPrefix, id); err != nil {
				id = idgen.NewRequestID()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := kit.WithRequestID(r.Context(), id)
			ctx = kit.WithTransport(ctx, "http")
			ctx = kit.WithRemoteAddr(ctx, ClientIP(r))

			attrs := []any{"request_id", id, "method", r.Method, "path", r.URL.Path}
			if trace := kit.TraceIDFromTraceparent(r.Header.Get("traceparent")); trace != "" {
				ctx = kit.WithTraceID(ctx, trace)
				attrs = append(attrs, "trace_id", trace)
			}
			logger := base.With(attrs...)
			ctx = context.WithValue(ctx, LoggerKey, logger)
			logger.Debug("request")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger returns the per-request logger, or slog.Default().
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
