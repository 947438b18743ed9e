package grpcserver

import (
	"context"
	"net/mail"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/service/order"
)

// CustomerService регистрирует клиентов.
type CustomerService interface {
	Create(ctx context.Context, data domain.CreateCustomer) (domain.Customer, error)
}

// CatalogService создаёт товары.
type CatalogService interface {
	Create(ctx context.Context, data domain.CreateProduct) (domain.Product, error)
}

// OrderService оформляет и читает заказы.
type OrderService interface {
	Create(ctx context.Context, req order.CreateRequest) (domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error)
}

// Server реализует CommerceServer поверх сервисов приложения.
type Server struct {
	customers CustomerService
	catalog   CatalogService
	orders    OrderService
	logger    *log.Entry
}

// NewServer конструирует gRPC-сервис.
func NewServer(customers CustomerService, catalog CatalogService, orders OrderService, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.WithField("component", "grpc-api")
	}
	return &Server{
		customers: customers,
		catalog:   catalog,
		orders:    orders,
		logger:    logger,
	}
}

func (s *Server) CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*CustomerResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, status.Error(codes.InvalidArgument, "email is invalid")
	}

	customer, err := s.customers.Create(ctx, domain.CreateCustomer{Name: name, Email: email})
	if err != nil {
		return nil, s.fail(MethodCreateCustomer, err)
	}
	return &CustomerResponse{Customer: customer}, nil
}

func (s *Server) CreateProduct(ctx context.Context, req *CreateProductRequest) (*ProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return nil, status.Error(codes.InvalidArgument, "name is required")
	case req.Price.IsNegative():
		return nil, status.Error(codes.InvalidArgument, "price must not be negative")
	case req.Quantity < 0:
		return nil, status.Error(codes.InvalidArgument, "quantity must not be negative")
	}

	product, err := s.catalog.Create(ctx, domain.CreateProduct{
		Name:     name,
		Price:    req.Price.Round(2),
		Quantity: req.Quantity,
	})
	if err != nil {
		return nil, s.fail(MethodCreateProduct, err)
	}
	return &ProductResponse{Product: product}, nil
}

func (s *Server) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return nil, status.Error(codes.InvalidArgument, "customer_id is required")
	}
	seen := make(map[string]int, len(req.Products))
	for idx, p := range req.Products {
		if p.ID == "" {
			return nil, status.Errorf(codes.InvalidArgument, "products[%d].id is required", idx)
		}
		if p.Quantity <= 0 {
			return nil, status.Errorf(codes.InvalidArgument, "products[%d].quantity must be > 0", idx)
		}
		if first, dup := seen[p.ID]; dup {
			return nil, status.Errorf(codes.InvalidArgument, "products[%d].id duplicates products[%d]", idx, first)
		}
		seen[p.ID] = idx
	}

	created, err := s.orders.Create(ctx, order.CreateRequest{
		CustomerID: req.CustomerID,
		Products:   req.Products,
	})
	if err != nil {
		return nil, s.fail(MethodCreateOrder, err)
	}
	return newOrderResponse(created), nil
}

func (s *Server) GetOrder(ctx context.Context, req *GetOrderRequest) (*OrderResponse, error) {
	if req.OrderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}

	found, err := s.orders.Get(ctx, req.OrderID)
	if err != nil {
		return nil, s.fail(MethodGetOrder, err)
	}
	return newOrderResponse(found), nil
}

func (s *Server) ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersResponse, error) {
	if req.CustomerID == "" {
		return nil, status.Error(codes.InvalidArgument, "customer_id is required")
	}
	if req.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must be >= 0")
	}

	orders, err := s.orders.ListByCustomer(ctx, req.CustomerID, req.Limit)
	if err != nil {
		return nil, s.fail(MethodListOrders, err)
	}
	return &ListOrdersResponse{Orders: orders}, nil
}

func (s *Server) fail(method string, err error) error {
	st := toStatus(err)
	if status.Code(st) == codes.Internal {
		s.logger.WithError(err).WithField("method", method).Error("grpc call failed")
	}
	return st
}

var _ CommerceServer = (*Server)(nil)
