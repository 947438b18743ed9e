package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

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

// Handler содержит HTTP-обработчики API.
type Handler struct {
	customers CustomerService
	catalog   CatalogService
	orders    OrderService
	logger    *log.Entry
}

// NewHandler создаёт обработчики. logger может быть nil.
func NewHandler(customers CustomerService, catalog CatalogService, orders OrderService, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	return &Handler{
		customers: customers,
		catalog:   catalog,
		orders:    orders,
		logger:    logger,
	}
}

// CreateCustomer обрабатывает POST /customers.
func (h *Handler) CreateCustomer(c echo.Context) error {
	var req createCustomerRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	data, err := req.toDomain()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	customer, err := h.customers.Create(c.Request().Context(), data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, customer)
}

// CreateProduct обрабатывает POST /products.
func (h *Handler) CreateProduct(c echo.Context) error {
	var req createProductRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	data, err := req.toDomain()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	product, err := h.catalog.Create(c.Request().Context(), data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, product)
}

// CreateOrder обрабатывает POST /orders.
func (h *Handler) CreateOrder(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	created, err := h.orders.Create(c.Request().Context(), order.CreateRequest{
		CustomerID: req.CustomerID,
		Products:   req.Products,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// GetOrder обрабатывает GET /orders/:id.
func (h *Handler) GetOrder(c echo.Context) error {
	found, err := h.orders.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Order not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, found)
}

// ListCustomerOrders обрабатывает GET /customers/:id/orders?limit=N.
func (h *Handler) ListCustomerOrders(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = parsed
	}

	orders, err := h.orders.ListByCustomer(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orders)
}
