package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// customerRepositoryInMemory — in-memory реализация CustomerRepository.
type customerRepositoryInMemory struct {
	mu      sync.RWMutex
	items   map[string]domain.Customer
	byEmail map[string]string
}

// NewCustomerRepository возвращает in-memory репозиторий клиентов.
func NewCustomerRepository() domain.CustomerRepository {
	return &customerRepositoryInMemory{
		items:   make(map[string]domain.Customer),
		byEmail: make(map[string]string),
	}
}

func (r *customerRepositoryInMemory) FindByEmail(_ context.Context, email string) (domain.Customer, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return domain.Customer{}, false, nil
	}
	return r.items[id], true, nil
}

func (r *customerRepositoryInMemory) FindByID(_ context.Context, id string) (domain.Customer, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	customer, ok := r.items[id]
	return customer, ok, nil
}

// Create сохраняет клиента; повторный email отклоняется так же, как unique-индекс в PostgreSQL.
func (r *customerRepositoryInMemory) Create(_ context.Context, data domain.CreateCustomer) (domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalizeEmail(data.Email)
	if _, exists := r.byEmail[key]; exists {
		return domain.Customer{}, domain.NewDuplicateEmailError()
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:        uuid.NewString(),
		Name:      data.Name,
		Email:     data.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.items[customer.ID] = customer
	r.byEmail[key] = customer.ID
	return customer, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
