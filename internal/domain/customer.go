package domain

import "time"

// Customer — покупатель; email уникален среди всех клиентов.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateCustomer — данные для создания клиента.
type CreateCustomer struct {
	Name  string
	Email string
}
