package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateEmail — клиент с таким email уже зарегистрирован.
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrCustomerNotFound — клиент из запроса не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrProductsNotFound — ни один товар из запроса не найден в каталоге.
	ErrProductsNotFound = errors.New("products not found")
	// ErrProductNotFound — конкретный товар из запроса отсутствует в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock — запрошено больше единиц, чем есть на складе.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicateProductName — товар с таким названием уже существует.
	ErrDuplicateProductName = errors.New("duplicate product name")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOutboxMessageNotFound — в outbox нет сообщения с таким ID.
	ErrOutboxMessageNotFound = errors.New("outbox message not found")
)

// Error — бизнес-ошибка с видом (Kind) и сообщением для клиента.
// Kind всегда один из sentinel-значений выше и доступен через errors.Is.
type Error struct {
	Kind      error
	ProductID string
	message   string
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NewDuplicateEmailError создаёт ошибку повторной регистрации email.
func NewDuplicateEmailError() *Error {
	return &Error{Kind: ErrDuplicateEmail, message: "Customer with this email already registered"}
}

// NewCustomerNotFoundError создаёт ошибку отсутствующего клиента.
func NewCustomerNotFoundError() *Error {
	return &Error{Kind: ErrCustomerNotFound, message: "Customer not found"}
}

// NewProductsNotFoundError создаёт ошибку пустого совпадения с каталогом.
func NewProductsNotFoundError() *Error {
	return &Error{Kind: ErrProductsNotFound, message: "Products not found"}
}

// NewProductNotFoundError создаёт ошибку для первого отсутствующего товара.
func NewProductNotFoundError(productID string) *Error {
	return &Error{
		Kind:      ErrProductNotFound,
		ProductID: productID,
		message:   fmt.Sprintf("Product %s not found", productID),
	}
}

// NewInsufficientStockError создаёт ошибку нехватки остатка по товару.
func NewInsufficientStockError(productID string) *Error {
	return &Error{
		Kind:      ErrInsufficientStock,
		ProductID: productID,
		message:   fmt.Sprintf("Product %s does not have enough quantity in stock", productID),
	}
}

// NewDuplicateProductNameError создаёт ошибку повторного названия товара.
func NewDuplicateProductNameError() *Error {
	return &Error{Kind: ErrDuplicateProductName, message: "There is already one product with this name"}
}

// IsBusiness проверяет, что ошибка предназначена для клиента (а не сбой хранилища).
func IsBusiness(err error) bool {
	var domainErr *Error
	return errors.As(err, &domainErr)
}

// KindOf возвращает вид бизнес-ошибки или nil.
func KindOf(err error) error {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return nil
}

// KindLabel возвращает короткую метку вида ошибки для логов и метрик.
func KindLabel(err error) string {
	switch KindOf(err) {
	case ErrDuplicateEmail:
		return "duplicate_email"
	case ErrCustomerNotFound:
		return "customer_not_found"
	case ErrProductsNotFound:
		return "products_not_found"
	case ErrProductNotFound:
		return "product_not_found"
	case ErrInsufficientStock:
		return "insufficient_stock"
	case ErrDuplicateProductName:
		return "duplicate_product_name"
	default:
		return "internal"
	}
}
