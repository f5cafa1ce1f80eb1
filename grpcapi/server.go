// Package grpcapi serves the extraction router over gRPC.
//
// The service is extractor.Extractor with one unary method, Extract. The
// schema (see extractorProto) is built at init from a descriptor and
// registered globally, so protobuf clients generated from extractor.proto
// interoperate, and server reflection lists it. A "json" content subtype
// carries the same messages in their canonical JSON mapping.
//
//	conn, _ := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
//	doc, err := grpcapi.NewClient(conn).Extract(ctx, &grpcapi.ExtractRequest{File: &grpcapi.File{...}})
package grpcapi

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/hazyhaar/mdextract/extractor"
)

const (
	// ServiceName is the fully qualified service name.
	ServiceName = "extractor.Extractor"
	// ExtractMethod is the full method name of Extract.
	ExtractMethod = "/" + ServiceName + "/Extract"

	// MaxMessageSize caps request and response messages.
	MaxMessageSize = 100 << 20
	// DefaultAddr is the default listen address.
	DefaultAddr = ":50051"
)

// ExtractorServer is the server API of the Extractor service.
type ExtractorServer interface {
	Extract(context.Context, *ExtractRequest) (*File, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: extractHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "extractor.proto",
}

func extractHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := dynamicpb.NewMessage(requestDesc)
	if err := dec(in); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, req any) (any, error) {
		out, err := srv.(ExtractorServer).Extract(ctx, requestFromProto(req.(proto.Message).ProtoReflect()))
		if err != nil {
			return nil, err
		}
		return out.toProto(), nil
	}
	if interceptor == nil {
		return handler(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExtractMethod}
	return interceptor(ctx, in, info, handler)
}

// RegisterExtractorServer registers srv on s.
func RegisterExtractorServer(s grpc.ServiceRegistrar, srv ExtractorServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Service adapts an extractor.Router to ExtractorServer.
type Service struct {
	router *extractor.Router
}

// NewService wraps router.
func NewService(router *extractor.Router) *Service {
	return &Service{router: router}
}

// Extract converts the request file. The response carries the Markdown as
// Content and the title as Name.
func (s *Service) Extract(ctx context.Context, req *ExtractRequest) (*File, error) {
	f := req.GetFile()
	doc, err := s.router.Extract(ctx, extractor.InputFile{
		Content:     f.Content,
		Name:        f.Name,
		ContentType: f.ContentType,
	}, req.Format.routerFormat())
	if err != nil {
		return nil, toStatus(err)
	}
	return &File{Name: doc.Title, Content: []byte(doc.Text), ContentType: doc.ContentType}, nil
}

// toStatus maps extraction failures onto gRPC codes: caller mistakes are
// InvalidArgument, a cancelled caller is Canceled, everything else Internal.
// The message is "<kind>: <detail>".
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	kind := extractor.KindOf(err)
	code := codes.Internal
	switch {
	case kind.ClientError():
		code = codes.InvalidArgument
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	}
	return status.Error(code, kind.String()+": "+extractor.DetailOf(err))
}

// KindFromStatus recovers the extraction error kind from a status returned
// by the service. It returns 0 for statuses the service does not produce.
func KindFromStatus(err error) extractor.Kind {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.OK {
		return 0
	}
	for _, k := range []extractor.Kind{
		extractor.MissingInput, extractor.UnsupportedFormat,
		extractor.ParseFailure, extractor.InternalFailure,
	} {
		if strings.HasPrefix(st.Message(), k.String()+":") {
			return k
		}
	}
	return 0
}

// Config configures NewServer.
type Config struct {
	Logger *slog.Logger
	// MaxMessageSize overrides the 100 MB default.
	MaxMessageSize int
}

// NewServer returns a gRPC server with the Extractor, health and reflection
// services registered and the logging interceptor installed. The health server is
// returned so callers can flip it to NOT_SERVING on shutdown.
func NewServer(router *extractor.Router, cfg Config) (*grpc.Server, *health.Server) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = MaxMessageSize
	}
	s := grpc.NewServer(
		grpc.MaxRecvMsgSize(cfg.MaxMessageSize),
		grpc.MaxSendMsgSize(cfg.MaxMessageSize),
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(cfg.Logger),
			LoggingInterceptor(cfg.Logger),
		),
	)
	RegisterExtractorServer(s, NewService(router))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(s)
	return s, hs
}
