package domain

import "context"

//go:generate mockgen -destination=../storage/mocks/mock_repository.go -package=mocks github.com/vladislavdragonenkov/commerce/internal/domain CustomerRepository,ProductRepository,OrderRepository,OutboxRepository

// CustomerRepository описывает требования к хранилищу клиентов.
type CustomerRepository interface {
	// FindByEmail ищет клиента по email; false, если такого нет.
	FindByEmail(ctx context.Context, email string) (Customer, bool, error)
	// FindByID ищет клиента по идентификатору; false, если такого нет.
	FindByID(ctx context.Context, id string) (Customer, bool, error)
	// Create сохраняет нового клиента и возвращает его с сгенерированным ID.
	Create(ctx context.Context, data CreateCustomer) (Customer, error)
}

// ProductRepository описывает требования к хранилищу каталога.
type ProductRepository interface {
	// FindAllByID возвращает только найденные товары; Quantity во входе игнорируется.
	FindAllByID(ctx context.Context, products []ProductQuantity) ([]Product, error)
	// UpdateQuantity одним пакетом устанавливает новые значения остатков.
	UpdateQuantity(ctx context.Context, products []ProductQuantity) error
	// FindByName ищет товар по названию; false, если такого нет.
	FindByName(ctx context.Context, name string) (Product, bool, error)
	// Create сохраняет новый товар.
	Create(ctx context.Context, data CreateProduct) (Product, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create атомарно сохраняет заказ и его позиции, возвращая их с идентификаторами.
	Create(ctx context.Context, data CreateOrder) (Order, error)
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// ListByCustomer возвращает заказы клиента (новые первыми) с ограничением limit (если >0).
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]Order, error)
}
