package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// The service is described by hand. Every message is a protobuf well-known type, so the
// default proto codec handles the wire format without generated code.

const ServiceName = "dnschanger.DNSChanger"

const (
	methodListProfiles  = "/" + ServiceName + "/ListProfiles"
	methodAddProfile    = "/" + ServiceName + "/AddProfile"
	methodRemoveProfile = "/" + ServiceName + "/RemoveProfile"
	methodListAdapters  = "/" + ServiceName + "/ListAdapters"
	methodStatus        = "/" + ServiceName + "/Status"
	methodApplyProfile  = "/" + ServiceName + "/ApplyProfile"
	methodClearAll      = "/" + ServiceName + "/ClearAll"
)

type DNSChangerServer interface {
	ListProfiles(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	AddProfile(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	RemoveProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAdapters(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ApplyProfile(*structpb.Struct, ProgressStream) error
	ClearAll(*emptypb.Empty, ProgressStream) error
}

// ProgressStream is the server side of ApplyProfile and ClearAll.
type ProgressStream interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type progressServerStream struct {
	grpc.ServerStream
}

func (x *progressServerStream) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

// UnimplementedDNSChangerServer can be embedded to satisfy DNSChangerServer partially.
type UnimplementedDNSChangerServer struct{}

func (UnimplementedDNSChangerServer) ListProfiles(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListProfiles not implemented")
}
func (UnimplementedDNSChangerServer) AddProfile(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method AddProfile not implemented")
}
func (UnimplementedDNSChangerServer) RemoveProfile(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RemoveProfile not implemented")
}
func (UnimplementedDNSChangerServer) ListAdapters(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListAdapters not implemented")
}
func (UnimplementedDNSChangerServer) Status(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Status not implemented")
}
func (UnimplementedDNSChangerServer) ApplyProfile(*structpb.Struct, ProgressStream) error {
	return status.Error(codes.Unimplemented, "method ApplyProfile not implemented")
}
func (UnimplementedDNSChangerServer) ClearAll(*emptypb.Empty, ProgressStream) error {
	return status.Error(codes.Unimplemented, "method ClearAll not implemented")
}

func RegisterDNSChangerServer(s grpc.ServiceRegistrar, srv DNSChangerServer) {
	s.RegisterService(&DNSChangerServiceDesc, srv)
}

func unaryHandler[Req any, PReq interface {
	*Req
}, Resp any](method string, call func(DNSChangerServer, context.Context, PReq) (Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DNSChangerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DNSChangerServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func applyProfileHandler(srv any, stream grpc.ServerStream) error {
	m := new(structpb.Struct)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(DNSChangerServer).ApplyProfile(m, &progressServerStream{stream})
}

func clearAllHandler(srv any, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(DNSChangerServer).ClearAll(m, &progressServerStream{stream})
}

var DNSChangerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DNSChangerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListProfiles", Handler: unaryHandler(methodListProfiles, DNSChangerServer.ListProfiles)},
		{MethodName: "AddProfile", Handler: unaryHandler(methodAddProfile, DNSChangerServer.AddProfile)},
		{MethodName: "RemoveProfile", Handler: unaryHandler(methodRemoveProfile, DNSChangerServer.RemoveProfile)},
		{MethodName: "ListAdapters", Handler: unaryHandler(methodListAdapters, DNSChangerServer.ListAdapters)},
		{MethodName: "Status", Handler: unaryHandler(methodStatus, DNSChangerServer.Status)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "ApplyProfile", Handler: applyProfileHandler, ServerStreams: true},
		{StreamName: "ClearAll", Handler: clearAllHandler, ServerStreams: true},
	},
	Metadata: "dnschanger.proto",
}

// DNSChangerClient is the client side of the service.
type DNSChangerClient interface {
	ListProfiles(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	AddProfile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	RemoveProfile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListAdapters(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Status(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	ApplyProfile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (ProgressClient, error)
	ClearAll(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (ProgressClient, error)
}

type ProgressClient interface {
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type dnsChangerClient struct {
	cc grpc.ClientConnInterface
}

func NewDNSChangerClient(cc grpc.ClientConnInterface) DNSChangerClient {
	return &dnsChangerClient{cc}
}

func (c *dnsChangerClient) ListProfiles(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodListProfiles, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dnsChangerClient) AddProfile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, methodAddProfile, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dnsChangerClient) RemoveProfile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodRemoveProfile, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dnsChangerClient) ListAdapters(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodListAdapters, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dnsChangerClient) Status(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodStatus, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dnsChangerClient) ApplyProfile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (ProgressClient, error) {
	return c.openStream(ctx, &DNSChangerServiceDesc.Streams[0], methodApplyProfile, in, opts...)
}

func (c *dnsChangerClient) ClearAll(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (ProgressClient, error) {
	return c.openStream(ctx, &DNSChangerServiceDesc.Streams[1], methodClearAll, in, opts...)
}

func (c *dnsChangerClient) openStream(ctx context.Context, desc *grpc.StreamDesc, method string, in any, opts ...grpc.CallOption) (ProgressClient, error) {
	stream, err := c.cc.NewStream(ctx, desc, method, opts...)
	if err != nil {
		return nil, err
	}
	x := &progressClientStream{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type progressClientStream struct {
	grpc.ClientStream
}

func (x *progressClientStream) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
