package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the full gRPC service name.
const ServiceName = "payments.v1.PaymentService"

// PaymentServer is the server API of ServiceName.
type PaymentServer interface {
	CreateSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CloseSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListProviders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SelectProvider(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReviewDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DocumentPreview(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Pay(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmOnboarding(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Resume(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Retry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPaymentRequest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportPaymentRequests(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(PaymentServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PaymentServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(PaymentServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc describes ServiceName for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PaymentServer)(nil),
	Methods: []grpc.MethodDesc{
		method("CreateSession", PaymentServer.CreateSession),
		method("CloseSession", PaymentServer.CloseSession),
		method("GetSession", PaymentServer.GetSession),
		method("ListProviders", PaymentServer.ListProviders),
		method("SelectProvider", PaymentServer.SelectProvider),
		method("ReviewDocument", PaymentServer.ReviewDocument),
		method("DocumentPreview", PaymentServer.DocumentPreview),
		method("Pay", PaymentServer.Pay),
		method("ConfirmOnboarding", PaymentServer.ConfirmOnboarding),
		method("Resume", PaymentServer.Resume),
		method("Retry", PaymentServer.Retry),
		method("GetPaymentRequest", PaymentServer.GetPaymentRequest),
		method("ExportPaymentRequests", PaymentServer.ExportPaymentRequests),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "payments/v1/payments.proto",
}

// RegisterPaymentServer registers srv on s.
func RegisterPaymentServer(s grpc.ServiceRegistrar, srv PaymentServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var _ PaymentServer = (*PaymentService)(nil)

// Client calls ServiceName with plain maps.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with req and returns the response as a map. Numbers
// come back as float64.
func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	if req == nil {
		req = map[string]any{}
	}
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
