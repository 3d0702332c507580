package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name
const ServiceName = "ledgerdash.v1.DashboardService"

// Full method names
const (
	MethodConnect          = "/" + ServiceName + "/Connect"
	MethodDisconnect       = "/" + ServiceName + "/Disconnect"
	MethodAcknowledgeAlert = "/" + ServiceName + "/AcknowledgeAlert"
	MethodRefreshBalances  = "/" + ServiceName + "/RefreshBalances"
	MethodGetSnapshot      = "/" + ServiceName + "/GetSnapshot"
	MethodWatchSnapshot    = "/" + ServiceName + "/WatchSnapshot"
)

// DashboardServiceServer is the server API for the dashboard service
// Messages are well-known protobuf types; snapshots travel as google.protobuf.Struct.
type DashboardServiceServer interface {
	Connect(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Disconnect(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	AcknowledgeAlert(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	RefreshBalances(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetSnapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	WatchSnapshot(*emptypb.Empty, grpc.ServerStream) error
}

// unaryHandler builds a MethodHandler for an Empty-request RPC
func unaryHandler(fullMethod string, call func(DashboardServiceServer, context.Context, *emptypb.Empty) (proto.Message, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(DashboardServiceServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(DashboardServiceServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchSnapshotHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DashboardServiceServer).WatchSnapshot(in, stream)
}

// ServiceDesc is the grpc.ServiceDesc for the dashboard service
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DashboardServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Connect",
			Handler: unaryHandler(MethodConnect, func(s DashboardServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
				return s.Connect(ctx, in)
			}),
		},
		{
			MethodName: "Disconnect",
			Handler: unaryHandler(MethodDisconnect, func(s DashboardServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
				return s.Disconnect(ctx, in)
			}),
		},
		{
			MethodName: "AcknowledgeAlert",
			Handler: unaryHandler(MethodAcknowledgeAlert, func(s DashboardServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
				return s.AcknowledgeAlert(ctx, in)
			}),
		},
		{
			MethodName: "RefreshBalances",
			Handler: unaryHandler(MethodRefreshBalances, func(s DashboardServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
				return s.RefreshBalances(ctx, in)
			}),
		},
		{
			MethodName: "GetSnapshot",
			Handler: unaryHandler(MethodGetSnapshot, func(s DashboardServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
				return s.GetSnapshot(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchSnapshot",
			Handler:       watchSnapshotHandler,
			ServerStreams: true,
		},
	},
}

// RegisterDashboardServiceServer registers srv on s
func RegisterDashboardServiceServer(s grpc.ServiceRegistrar, srv DashboardServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client is a thin client for the dashboard service
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a dashboard client over cc
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invokeStruct(ctx context.Context, method string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) invokeEmpty(ctx context.Context, method string, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, method, &emptypb.Empty{}, new(emptypb.Empty), opts...)
}

// Connect calls DashboardService.Connect
func (c *Client) Connect(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeStruct(ctx, MethodConnect, opts...)
}

// Disconnect calls DashboardService.Disconnect
func (c *Client) Disconnect(ctx context.Context, opts ...grpc.CallOption) error {
	return c.invokeEmpty(ctx, MethodDisconnect, opts...)
}

// AcknowledgeAlert calls DashboardService.AcknowledgeAlert
func (c *Client) AcknowledgeAlert(ctx context.Context, opts ...grpc.CallOption) error {
	return c.invokeEmpty(ctx, MethodAcknowledgeAlert, opts...)
}

// RefreshBalances calls DashboardService.RefreshBalances
func (c *Client) RefreshBalances(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeStruct(ctx, MethodRefreshBalances, opts...)
}

// GetSnapshot calls DashboardService.GetSnapshot
func (c *Client) GetSnapshot(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeStruct(ctx, MethodGetSnapshot, opts...)
}

// SnapshotStream receives snapshots from WatchSnapshot
type SnapshotStream struct {
	stream grpc.ClientStream
}

// Recv blocks until the next snapshot arrives
func (s *SnapshotStream) Recv() (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := s.stream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchSnapshot opens a snapshot stream; cancel ctx to close it
func (c *Client) WatchSnapshot(ctx context.Context, opts ...grpc.CallOption) (*SnapshotStream, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], MethodWatchSnapshot, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &SnapshotStream{stream: stream}, nil
}
