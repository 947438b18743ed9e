package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product — позиция каталога с ценой и текущим остатком на складе.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CreateProduct — данные для создания товара.
type CreateProduct struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// ProductQuantity — пара {id, quantity}: в запросе заказа это запрошенное количество,
// в UpdateQuantity — новое абсолютное значение остатка.
type ProductQuantity struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// ProductIDs возвращает идентификаторы в исходном порядке.
func ProductIDs(items []ProductQuantity) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}
