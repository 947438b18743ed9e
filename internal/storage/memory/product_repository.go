package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// ProductRepository — in-memory каталог товаров.
type ProductRepository struct {
	mu     sync.RWMutex
	items  map[string]domain.Product
	byName map[string]string
}

// NewProductRepository возвращает пустой in-memory каталог.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		items:  make(map[string]domain.Product),
		byName: make(map[string]string),
	}
}

// FindAllByID возвращает найденные товары без дублей в порядке первого упоминания.
func (r *ProductRepository) FindAllByID(_ context.Context, products []domain.ProductQuantity) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(products))
	result := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		if product, ok := r.items[p.ID]; ok {
			result = append(result, product)
		}
	}
	return result, nil
}

// UpdateQuantity устанавливает новые остатки; неизвестные ID пропускаются, как UPDATE без совпадений.
func (r *ProductRepository) UpdateQuantity(_ context.Context, products []domain.ProductQuantity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, p := range products {
		product, ok := r.items[p.ID]
		if !ok {
			continue
		}
		product.Quantity = p.Quantity
		product.UpdatedAt = now
		r.items[p.ID] = product
	}
	return nil
}

func (r *ProductRepository) FindByName(_ context.Context, name string) (domain.Product, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return domain.Product{}, false, nil
	}
	return r.items[id], true, nil
}

func (r *ProductRepository) Create(_ context.Context, data domain.CreateProduct) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[data.Name]; exists {
		return domain.Product{}, domain.NewDuplicateProductNameError()
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:        uuid.NewString(),
		Name:      data.Name,
		Price:     data.Price,
		Quantity:  data.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.items[product.ID] = product
	r.byName[product.Name] = product.ID
	return product, nil
}

// Put кладёт товар с заданным ID (используется для заполнения каталога в тестах).
func (r *ProductRepository) Put(product domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
		product.UpdatedAt = product.CreatedAt
	}
	r.items[product.ID] = product
	r.byName[product.Name] = product.ID
}

// Get возвращает текущее состояние товара.
func (r *ProductRepository) Get(id string) (domain.Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	return product, ok
}

var _ domain.ProductRepository = (*ProductRepository)(nil)
