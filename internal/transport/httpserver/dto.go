package httpserver

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

type createCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (r createCustomerRequest) toDomain() (domain.CreateCustomer, error) {
	name := strings.TrimSpace(r.Name)
	email := strings.TrimSpace(r.Email)
	if name == "" {
		return domain.CreateCustomer{}, errors.New("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.CreateCustomer{}, errors.New("email is invalid")
	}
	return domain.CreateCustomer{Name: name, Email: email}, nil
}

type createProductRequest struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

func (r createProductRequest) toDomain() (domain.CreateProduct, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return domain.CreateProduct{}, errors.New("name is required")
	}
	if r.Price.IsNegative() {
		return domain.CreateProduct{}, errors.New("price must not be negative")
	}
	if r.Quantity < 0 {
		return domain.CreateProduct{}, errors.New("quantity must not be negative")
	}
	return domain.CreateProduct{Name: name, Price: r.Price.Round(2), Quantity: r.Quantity}, nil
}

type createOrderRequest struct {
	CustomerID string                   `json:"customer_id"`
	Products   []domain.ProductQuantity `json:"products"`
}

func (r createOrderRequest) validate() error {
	if strings.TrimSpace(r.CustomerID) == "" {
		return errors.New("customer_id is required")
	}
	seen := make(map[string]struct{}, len(r.Products))
	for _, p := range r.Products {
		if p.ID == "" {
			return errors.New("product id is required")
		}
		if p.Quantity <= 0 {
			return errors.New("product quantity must be positive")
		}
		// каждая строка проверяется против одного и того же остатка, поэтому повтор ID позволил бы продать больше
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("product %s is listed more than once", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
