package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository создаёт PostgreSQL-реализацию CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{db: store.DB()}
}

func (r *customerRepository) FindByEmail(ctx context.Context, email string) (domain.Customer, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.findOne(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM customers
		WHERE LOWER(email) = LOWER($1)
	`, strings.TrimSpace(email))
}

func (r *customerRepository) FindByID(ctx context.Context, id string) (domain.Customer, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.findOne(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM customers
		WHERE id = $1
	`, id)
}

func (r *customerRepository) findOne(ctx context.Context, query string, arg string) (domain.Customer, bool, error) {
	var customer domain.Customer
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&customer.ID, &customer.Name, &customer.Email, &customer.CreatedAt, &customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, false, nil
		}
		return domain.Customer{}, false, fmt.Errorf("select customer: %w", err)
	}
	return customer, true, nil
}

func (r *customerRepository) Create(ctx context.Context, data domain.CreateCustomer) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:        uuid.NewString(),
		Name:      data.Name,
		Email:     strings.TrimSpace(data.Email),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, email, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, customer.ID, customer.Name, customer.Email, customer.CreatedAt, customer.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Customer{}, domain.NewDuplicateEmailError()
		}
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}

	return customer, nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
