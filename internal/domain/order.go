package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderProduct — позиция заказа. Price фиксирует цену товара на момент оформления.
type OrderProduct struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// Order агрегирует клиента и позиции заказа. После создания не изменяется.
type Order struct {
	ID            string         `json:"id"`
	Customer      Customer       `json:"customer"`
	OrderProducts []OrderProduct `json:"order_products"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Total возвращает сумму заказа: Σ price * quantity.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.OrderProducts {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// OrderProductInput — позиция, передаваемая в OrderRepository.Create.
type OrderProductInput struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// CreateOrder — данные для атомарного создания заказа вместе с позициями.
type CreateOrder struct {
	Customer Customer
	Products []OrderProductInput
}
