package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		kind error
		want string
	}{
		{"duplicate email", NewDuplicateEmailError(), ErrDuplicateEmail, "Customer with this email already registered"},
		{"customer not found", NewCustomerNotFoundError(), ErrCustomerNotFound, "Customer not found"},
		{"products not found", NewProductsNotFoundError(), ErrProductsNotFound, "Products not found"},
		{"product not found", NewProductNotFoundError("p-2"), ErrProductNotFound, "Product p-2 not found"},
		{"insufficient stock", NewInsufficientStockError("p-1"), ErrInsufficientStock, "Product p-1 does not have enough quantity in stock"},
		{"duplicate product name", NewDuplicateProductNameError(), ErrDuplicateProductName, "There is already one product with this name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
			}
			if !errors.Is(tt.err, tt.kind) {
				t.Errorf("expected errors.Is(%v, %v)", tt.err, tt.kind)
			}
		})
	}
}

func TestIsBusiness(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "domain error", err: NewCustomerNotFoundError(), want: true},
		{name: "wrapped domain error", err: fmt.Errorf("create order: %w", NewInsufficientStockError("p-1")), want: true},
		{name: "bare sentinel", err: ErrOrderNotFound, want: false},
		{name: "storage error", err: errors.New("connection refused"), want: false},
		{name: "nil error", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBusiness(tt.err); got != tt.want {
				t.Errorf("IsBusiness() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindLabel(t *testing.T) {
	if got := KindLabel(NewProductNotFoundError("x")); got != "product_not_found" {
		t.Errorf("unexpected label %q", got)
	}
	if got := KindLabel(errors.New("boom")); got != "internal" {
		t.Errorf("unexpected label %q", got)
	}
	if KindOf(nil) != nil {
		t.Error("KindOf(nil) must be nil")
	}
}
