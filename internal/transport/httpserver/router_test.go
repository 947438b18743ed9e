package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/service/catalog"
	"github.com/vladislavdragonenkov/commerce/internal/service/customer"
	"github.com/vladislavdragonenkov/commerce/internal/service/order"
	"github.com/vladislavdragonenkov/commerce/internal/storage/memory"
)

type apiFixture struct {
	router   *echo.Echo
	products *memory.ProductRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	entry := logger.WithField("component", "http-test")

	customers := memory.NewCustomerRepository()
	products := memory.NewProductRepository()
	orders := memory.NewOrderRepository()

	handler := NewHandler(
		customer.NewService(customers, nil, entry),
		catalog.NewService(products, nil, entry),
		order.NewService(orders, products, customers, order.WithLogger(entry)),
		entry,
	)
	return &apiFixture{router: NewRouter(handler), products: products}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestAPI_OrderFlow(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/customers", `{"name":"Jane","email":"jane@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	createdCustomer := decode[domain.Customer](t, rec)

	rec = f.do(t, http.MethodPost, "/products", `{"name":"Mug","price":"5.00","quantity":10}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decode[domain.Product](t, rec)

	rec = f.do(t, http.MethodPost, "/orders",
		`{"customer_id":"`+createdCustomer.ID+`","products":[{"id":"`+product.ID+`","quantity":3}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Order](t, rec)
	require.Len(t, created.OrderProducts, 1)
	require.True(t, created.OrderProducts[0].Price.Equal(decimal.RequireFromString("5")))

	stored, ok := f.products.Get(product.ID)
	require.True(t, ok)
	require.Equal(t, 7, stored.Quantity)

	rec = f.do(t, http.MethodGet, "/orders/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, created.ID, decode[domain.Order](t, rec).ID)

	rec = f.do(t, http.MethodGet, "/customers/"+createdCustomer.ID+"/orders?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]domain.Order](t, rec), 1)
}

func TestAPI_BusinessErrors(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/customers", `{"name":"Jane","email":"jane@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	createdCustomer := decode[domain.Customer](t, rec)

	rec = f.do(t, http.MethodPost, "/customers", `{"name":"Other","email":"jane@example.com"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, errorResponse{Status: "error", Message: "Customer with this email already registered"}, decode[errorResponse](t, rec))

	f.products.Put(domain.Product{ID: "P1", Name: "Lamp", Price: decimal.RequireFromString("9.99"), Quantity: 2})

	rec = f.do(t, http.MethodPost, "/orders",
		`{"customer_id":"`+createdCustomer.ID+`","products":[{"id":"P1","quantity":5}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Product P1 does not have enough quantity in stock", decode[errorResponse](t, rec).Message)

	rec = f.do(t, http.MethodPost, "/orders",
		`{"customer_id":"`+createdCustomer.ID+`","products":[{"id":"P1","quantity":1},{"id":"P2","quantity":1}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Product P2 not found", decode[errorResponse](t, rec).Message)

	rec = f.do(t, http.MethodPost, "/orders", `{"customer_id":"nobody","products":[{"id":"P1","quantity":1}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Customer not found", decode[errorResponse](t, rec).Message)

	rec = f.do(t, http.MethodPost, "/products", `{"name":"Lamp","price":"1.00","quantity":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "There is already one product with this name", decode[errorResponse](t, rec).Message)
}

func TestAPI_DuplicateProductIDsDoNotOversell(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/customers", `{"name":"Jane","email":"jane@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	createdCustomer := decode[domain.Customer](t, rec)

	f.products.Put(domain.Product{ID: "P1", Name: "Lamp", Price: decimal.RequireFromString("9.99"), Quantity: 5})

	rec = f.do(t, http.MethodPost, "/orders",
		`{"customer_id":"`+createdCustomer.ID+`","products":[{"id":"P1","quantity":3},{"id":"P1","quantity":3}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	require.Equal(t, "product P1 is listed more than once", decode[errorResponse](t, rec).Message)

	stored, ok := f.products.Get("P1")
	require.True(t, ok)
	require.Equal(t, 5, stored.Quantity, "stock must stay untouched")

	rec = f.do(t, http.MethodGet, "/customers/"+createdCustomer.ID+"/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[[]domain.Order](t, rec))
}

func TestAPI_InvalidInput(t *testing.T) {
	f := newAPIFixture(t)

	cases := []struct {
		name string
		path string
		body string
	}{
		{name: "malformed json", path: "/customers", body: `{"name":`},
		{name: "missing email", path: "/customers", body: `{"name":"Jane"}`},
		{name: "negative price", path: "/products", body: `{"name":"Pen","price":"-1","quantity":1}`},
		{name: "negative quantity", path: "/products", body: `{"name":"Pen","price":"1","quantity":-1}`},
		{name: "missing customer", path: "/orders", body: `{"products":[{"id":"P1","quantity":1}]}`},
		{name: "zero quantity", path: "/orders", body: `{"customer_id":"c","products":[{"id":"P1","quantity":0}]}`},
		{name: "duplicate product", path: "/orders", body: `{"customer_id":"c","products":[{"id":"P1","quantity":3},{"id":"P1","quantity":3}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tc.path, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			require.Equal(t, "error", decode[errorResponse](t, rec).Status)
		})
	}

	rec := f.do(t, http.MethodGet, "/customers/c/orders?limit=abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_OrderNotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/orders/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Order not found", decode[errorResponse](t, rec).Message)
}

type failingOrders struct{}

func (failingOrders) Create(context.Context, order.CreateRequest) (domain.Order, error) {
	return domain.Order{}, errors.New("connection refused")
}

func (failingOrders) Get(context.Context, string) (domain.Order, error) {
	return domain.Order{}, errors.New("connection refused")
}

func (failingOrders) ListByCustomer(context.Context, string, int) ([]domain.Order, error) {
	return nil, errors.New("connection refused")
}

func TestAPI_InternalErrorHidesDetails(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	router := NewRouter(NewHandler(nil, nil, failingOrders{}, logger.WithField("component", "http-test")))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/o-1", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, errorResponse{Status: "error", Message: internalErrorMessage}, decode[errorResponse](t, rec))
}

func TestStatusFor(t *testing.T) {
	code, msg := statusFor(domain.NewInsufficientStockError("P1"))
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Product P1 does not have enough quantity in stock", msg)

	code, _ = statusFor(echo.ErrNotFound)
	require.Equal(t, http.StatusNotFound, code)

	code, msg = statusFor(errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, internalErrorMessage, msg)
}
