package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Client calls the Extractor service. Messages use the protobuf codec
// unless a call option selects another content subtype.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Extract sends one file. Errors are gRPC statuses; KindFromStatus recovers
// the extraction error kind.
func (c *Client) Extract(ctx context.Context, req *ExtractRequest, opts ...grpc.CallOption) (*File, error) {
	out := dynamicpb.NewMessage(fileDesc)
	opts = append([]grpc.CallOption{
		grpc.MaxCallRecvMsgSize(MaxMessageSize),
		grpc.MaxCallSendMsgSize(MaxMessageSize),
	}, opts...)
	if err := c.cc.Invoke(ctx, ExtractMethod, req.toProto(), out, opts...); err != nil {
		return nil, err
	}
	return fileFromProto(out), nil
}
