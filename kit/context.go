package kit

import (
	"context"
	"strings"
)

type contextKey string

const (
	TransportKey  contextKey = "kit_transport" // "http", "grpc", "mcp", "cli"
	RequestIDKey  contextKey = "kit_request_id"
	TraceIDKey    contextKey = "kit_trace_id"
	CallerKey     contextKey = "kit_caller"
	RemoteAddrKey contextKey = "kit_remote_addr"
)

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}

// GetTransport returns "" when no transport tagged ctx.
func GetTransport(ctx context.Context) string {
	v, _ := ctx.Value(TransportKey).(string)
	return v
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}
func GetTraceID(ctx context.Context) string {
	v, _ := ctx.Value(TraceIDKey).(string)
	return v
}

// WithCaller records the label of the API key that authenticated the call.
func WithCaller(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, CallerKey, label)
}
func GetCaller(ctx context.Context) string {
	v, _ := ctx.Value(CallerKey).(string)
	return v
}

func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, RemoteAddrKey, addr)
}
func GetRemoteAddr(ctx context.Context) string {
	v, _ := ctx.Value(RemoteAddrKey).(string)
	return v
}

// TraceIDFromTraceparent extracts the trace id from a W3C traceparent value
// ("00-<32 hex>-<16 hex>-<2 hex>"). It returns "" when h is malformed.
func TraceIDFromTraceparent(h string) string {
	parts := strings.Split(strings.TrimSpace(h), "-")
	if len(parts) != 4 || len(parts[1]) != 32 {
		return ""
	}
	for _, c := range parts[1] {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return ""
		}
	}
	if strings.Trim(parts[1], "0") == "" {
		return ""
	}
	return parts[1]
}
