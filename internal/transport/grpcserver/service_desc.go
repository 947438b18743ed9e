package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "commerce.v1.CommerceService"

// Полные имена методов.
const (
	MethodCreateCustomer = "/" + serviceName + "/CreateCustomer"
	MethodCreateProduct  = "/" + serviceName + "/CreateProduct"
	MethodCreateOrder    = "/" + serviceName + "/CreateOrder"
	MethodGetOrder       = "/" + serviceName + "/GetOrder"
	MethodListOrders     = "/" + serviceName + "/ListOrders"
)

// CommerceServer — серверная сторона CommerceService.
type CommerceServer interface {
	CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*CustomerResponse, error)
	CreateProduct(ctx context.Context, req *CreateProductRequest) (*ProductResponse, error)
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error)
	GetOrder(ctx context.Context, req *GetOrderRequest) (*OrderResponse, error)
	ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersResponse, error)
}

// RegisterCommerceServer регистрирует реализацию на gRPC-сервере.
func RegisterCommerceServer(s grpc.ServiceRegistrar, srv CommerceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unaryHandler строит grpc.MethodDesc-обработчик для метода с запросом Req.
func unaryHandler[Req any, Resp any](
	fullMethod string,
	call func(srv CommerceServer, ctx context.Context, req *Req) (*Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CommerceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CommerceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc описывает commerce.v1.CommerceService для grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CommerceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateCustomer",
			Handler:    unaryHandler(MethodCreateCustomer, CommerceServer.CreateCustomer),
		},
		{
			MethodName: "CreateProduct",
			Handler:    unaryHandler(MethodCreateProduct, CommerceServer.CreateProduct),
		},
		{
			MethodName: "CreateOrder",
			Handler:    unaryHandler(MethodCreateOrder, CommerceServer.CreateOrder),
		},
		{
			MethodName: "GetOrder",
			Handler:    unaryHandler(MethodGetOrder, CommerceServer.GetOrder),
		},
		{
			MethodName: "ListOrders",
			Handler:    unaryHandler(MethodListOrders, CommerceServer.ListOrders),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "commerce/v1/commerce.json",
}

// Client — клиент CommerceService, использующий JSON-кодек.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient создаёт клиента поверх соединения.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCustomer(ctx context.Context, in *CreateCustomerRequest, opts ...grpc.CallOption) (*CustomerResponse, error) {
	return invoke[CustomerResponse](ctx, c.cc, MethodCreateCustomer, in, opts)
}

func (c *Client) CreateProduct(ctx context.Context, in *CreateProductRequest, opts ...grpc.CallOption) (*ProductResponse, error) {
	return invoke[ProductResponse](ctx, c.cc, MethodCreateProduct, in, opts)
}

func (c *Client) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*OrderResponse, error) {
	return invoke[OrderResponse](ctx, c.cc, MethodCreateOrder, in, opts)
}

func (c *Client) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*OrderResponse, error) {
	return invoke[OrderResponse](ctx, c.cc, MethodGetOrder, in, opts)
}

func (c *Client) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error) {
	return invoke[ListOrdersResponse](ctx, c.cc, MethodListOrders, in, opts)
}
