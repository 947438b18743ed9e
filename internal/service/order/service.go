package order

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/metrics"
)

const defaultListOrdersLimit = 100

// CreateRequest — входные данные оформления заказа.
type CreateRequest struct {
	CustomerID string
	Products   []domain.ProductQuantity
}

// Service оформляет заказы: проверяет клиента и остатки, фиксирует цены и списывает склад.
type Service struct {
	orders    domain.OrderRepository
	products  domain.ProductRepository
	customers domain.CustomerRepository
	outbox    domain.OutboxRepository
	metrics   *metrics.CommerceMetrics
	logger    *log.Entry
	locks     *productLocks
}

// Option настраивает Service.
type Option func(*Service)

// WithOutbox включает постановку события order.created в outbox после успешного заказа.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(s *Service) {
		s.outbox = outbox
	}
}

// WithMetrics задаёт метрики сервиса.
func WithMetrics(m *metrics.CommerceMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService конструирует сервис заказов.
func NewService(
	orders domain.OrderRepository,
	products domain.ProductRepository,
	customers domain.CustomerRepository,
	options ...Option,
) *Service {
	s := &Service{
		orders:    orders,
		products:  products,
		customers: customers,
		locks:     newProductLocks(),
	}
	for _, option := range options {
		option(s)
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "order-service")
	}
	return s
}

// Create оформляет заказ. Проверки идут строго по порядку и прерываются на первой ошибке:
// клиент → товары найдены → каждый ID найден → каждого хватает на складе.
// Записи (заказ, затем пакетное обновление остатков) выполняются только после всех проверок.
func (s *Service) Create(ctx context.Context, req CreateRequest) (domain.Order, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordOrderDuration(time.Since(start))
	}()

	// Проверка остатка и списание для одного товара не должны чередоваться между запросами.
	unlock := s.locks.lock(domain.ProductIDs(req.Products))
	defer unlock()

	order, err := s.create(ctx, req)
	if err != nil {
		s.metrics.RecordOrderRejected(domain.KindLabel(err))
		logger := s.logger.WithField("customer_id", req.CustomerID)
		if domain.IsBusiness(err) {
			logger.WithError(err).Debug("order rejected")
		} else {
			logger.WithError(err).Error("failed to create order")
		}
		return domain.Order{}, err
	}

	units := 0
	for _, item := range order.OrderProducts {
		units += item.Quantity
	}
	s.metrics.RecordOrderCreated(len(order.OrderProducts), units)
	s.enqueueCreated(ctx, order)

	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": order.Customer.ID,
		"items":       len(order.OrderProducts),
	}).Info("order created")

	return order, nil
}

func (s *Service) create(ctx context.Context, req CreateRequest) (domain.Order, error) {
	customer, ok, err := s.customers.FindByID(ctx, req.CustomerID)
	if err != nil {
		return domain.Order{}, err
	}
	if !ok {
		return domain.Order{}, domain.NewCustomerNotFoundError()
	}

	found, err := s.products.FindAllByID(ctx, req.Products)
	if err != nil {
		return domain.Order{}, err
	}
	if len(found) == 0 {
		return domain.Order{}, domain.NewProductsNotFoundError()
	}

	catalog := make(map[string]domain.Product, len(found))
	for _, product := range found {
		catalog[product.ID] = product
	}

	for _, requested := range req.Products {
		if _, ok := catalog[requested.ID]; !ok {
			return domain.Order{}, domain.NewProductNotFoundError(requested.ID)
		}
	}

	for _, requested := range req.Products {
		if catalog[requested.ID].Quantity < requested.Quantity {
			return domain.Order{}, domain.NewInsufficientStockError(requested.ID)
		}
	}

	lines := make([]domain.OrderProductInput, 0, len(req.Products))
	for _, requested := range req.Products {
		lines = append(lines, domain.OrderProductInput{
			ProductID: requested.ID,
			Quantity:  requested.Quantity,
			Price:     catalog[requested.ID].Price,
		})
	}

	order, err := s.orders.Create(ctx, domain.CreateOrder{
		Customer: customer,
		Products: lines,
	})
	if err != nil {
		return domain.Order{}, err
	}

	// Новые остатки считаются от значений, прочитанных при проверке.
	updates := make([]domain.ProductQuantity, 0, len(order.OrderProducts))
	for _, item := range order.OrderProducts {
		updates = append(updates, domain.ProductQuantity{
			ID:       item.ProductID,
			Quantity: catalog[item.ProductID].Quantity - item.Quantity,
		})
	}
	if err := s.products.UpdateQuantity(ctx, updates); err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

// Get возвращает заказ по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.orders.Get(ctx, id)
}

// ListByCustomer возвращает заказы клиента, новые первыми. limit <= 0 означает значение по умолчанию.
func (s *Service) ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = defaultListOrdersLimit
	}
	return s.orders.ListByCustomer(ctx, customerID, limit)
}

type orderCreatedPayload struct {
	OrderID    string                `json:"order_id"`
	CustomerID string                `json:"customer_id"`
	Total      string                `json:"total"`
	Products   []domain.OrderProduct `json:"products"`
	CreatedAt  time.Time             `json:"created_at"`
}

func (s *Service) enqueueCreated(ctx context.Context, order domain.Order) {
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(orderCreatedPayload{
		OrderID:    order.ID,
		CustomerID: order.Customer.ID,
		Total:      order.Total().StringFixed(2),
		Products:   order.OrderProducts,
		CreatedAt:  order.CreatedAt,
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to marshal order.created payload")
		return
	}

	if _, err := s.outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   order.ID,
		EventType:     domain.EventTypeOrderCreated,
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to enqueue order.created event")
		return
	}
	s.metrics.RecordOutboxEvent()
}
