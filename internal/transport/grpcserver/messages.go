package grpcserver

import (
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// CreateCustomerRequest — запрос CommerceService/CreateCustomer.
type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CustomerResponse содержит созданного клиента.
type CustomerResponse struct {
	Customer domain.Customer `json:"customer"`
}

// CreateProductRequest — запрос CommerceService/CreateProduct.
type CreateProductRequest struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// ProductResponse содержит созданный товар.
type ProductResponse struct {
	Product domain.Product `json:"product"`
}

// CreateOrderRequest — запрос CommerceService/CreateOrder.
type CreateOrderRequest struct {
	CustomerID string                   `json:"customer_id"`
	Products   []domain.ProductQuantity `json:"products"`
}

// GetOrderRequest — запрос CommerceService/GetOrder.
type GetOrderRequest struct {
	OrderID string `json:"order_id"`
}

// OrderResponse содержит заказ и его итоговую сумму.
type OrderResponse struct {
	Order domain.Order `json:"order"`
	Total string       `json:"total"`
}

// ListOrdersRequest — запрос CommerceService/ListOrders.
type ListOrdersRequest struct {
	CustomerID string `json:"customer_id"`
	Limit      int    `json:"limit"`
}

// ListOrdersResponse содержит заказы клиента, новые первыми.
type ListOrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

func newOrderResponse(order domain.Order) *OrderResponse {
	return &OrderResponse{Order: order, Total: order.Total().StringFixed(2)}
}
