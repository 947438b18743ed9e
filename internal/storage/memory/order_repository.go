package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
	}
}

// Create сохраняет заказ вместе с позициями под одной блокировкой.
func (r *orderRepositoryInMemory) Create(_ context.Context, data domain.CreateOrder) (domain.Order, error) {
	now := time.Now().UTC()
	order := domain.Order{
		ID:            uuid.NewString(),
		Customer:      data.Customer,
		OrderProducts: make([]domain.OrderProduct, 0, len(data.Products)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, p := range data.Products {
		order.OrderProducts = append(order.OrderProducts, domain.OrderProduct{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			ProductID: p.ProductID,
			Quantity:  p.Quantity,
			Price:     p.Price,
			CreatedAt: now,
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[order.ID] = order
	return cloneOrder(order), nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// ListByCustomer возвращает заказы клиента, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListByCustomer(_ context.Context, customerID string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if order.Customer.ID != customerID {
			continue
		}
		result = append(result, cloneOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

func cloneOrder(order domain.Order) domain.Order {
	items := make([]domain.OrderProduct, len(order.OrderProducts))
	copy(items, order.OrderProducts)
	order.OrderProducts = items
	return order
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
