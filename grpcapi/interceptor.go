package grpcapi

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/hazyhaar/mdextract/idgen"
	"github.com/hazyhaar/mdextract/kit"
)

// RequestIDKey is the metadata key carrying the request ID in both
// directions.
const RequestIDKey = "x-request-id"

// LoggingInterceptor tags the context with a request ID (reusing a
// well-formed incoming x-request-id), the transport, the peer address and
// the traceparent trace id, then logs method, code and duration.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		md, _ := metadata.FromIncomingContext(ctx)

		id := first(md, RequestIDKey)
		if _, err := idgen.Parse(idgen.RequestPrefix, id); err != nil {
			id = idgen.NewRequestID()
		}
		ctx = kit.WithRequestID(ctx, id)
		ctx = kit.WithTransport(ctx, "grpc")
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			ctx = kit.WithRemoteAddr(ctx, p.Addr.String())
		}
		attrs := []any{"request_id", id, "method", info.FullMethod}
		if trace := kit.TraceIDFromTraceparent(first(md, "traceparent")); trace != "" {
			ctx = kit.WithTraceID(ctx, trace)
			attrs = append(attrs, "trace_id", trace)
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDKey, id))

		resp, err := handler(ctx, req)

		code := status.Code(err)
		attrs = append(attrs, "code", code.String(), "duration_ms", time.Since(start).Milliseconds())
		switch code {
		case codes.OK:
			logger.DebugContext(ctx, "grpc call", attrs...)
		case codes.InvalidArgument, codes.Canceled:
			logger.InfoContext(ctx, "grpc call", attrs...)
		default:
			logger.WarnContext(ctx, "grpc call", append(attrs, "error", err)...)
		}
		return resp, err
	}
}

// RecoveryInterceptor turns a handler panic into codes.Internal.
func RecoveryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if p := recover(); p != nil {
				logger.ErrorContext(ctx, "grpc panic", "method", info.FullMethod, "panic", p, "stack", string(debug.Stack()))
				resp, err = nil, status.Error(codes.Internal, "internal_failure: internal error")
			}
		}()
		return handler(ctx, req)
	}
}

func first(md metadata.MD, key string) string {
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}
