package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

// FindAllByID возвращает найденные товары в порядке первого упоминания в запросе.
func (r *productRepository) FindAllByID(ctx context.Context, products []domain.ProductQuantity) ([]domain.Product, error) {
	ids := domain.ProductIDs(products)
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price, quantity, created_at, updated_at
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID, &product.Name, &product.Price, &product.Quantity,
			&product.CreatedAt, &product.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		byID[product.ID] = product
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	result := make([]domain.Product, 0, len(byID))
	for _, id := range ids {
		if product, ok := byID[id]; ok {
			result = append(result, product)
		}
	}
	return result, nil
}

// UpdateQuantity выставляет абсолютные остатки одной транзакцией. Неизвестные ID пропускаются.
func (r *productRepository) UpdateQuantity(ctx context.Context, products []domain.ProductQuantity) error {
	if len(products) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	return inTx(ctx, r.db, "update quantity", func(tx *sql.Tx) error {
		for _, p := range products {
			if _, err := tx.ExecContext(ctx, `
				UPDATE products
				SET quantity = $2,
				    updated_at = $3
				WHERE id = $1
			`, p.ID, p.Quantity, now); err != nil {
				return fmt.Errorf("update product %s quantity: %w", p.ID, err)
			}
		}
		return nil
	})
}

func (r *productRepository) FindByName(ctx context.Context, name string) (domain.Product, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var product domain.Product
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, price, quantity, created_at, updated_at
		FROM products
		WHERE name = $1
	`, name).Scan(
		&product.ID, &product.Name, &product.Price, &product.Quantity,
		&product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, false, nil
		}
		return domain.Product{}, false, fmt.Errorf("select product by name: %w", err)
	}
	return product, true, nil
}

func (r *productRepository) Create(ctx context.Context, data domain.CreateProduct) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	product := domain.Product{
		ID:        uuid.NewString(),
		Name:      data.Name,
		Price:     data.Price,
		Quantity:  data.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, quantity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, product.ID, product.Name, product.Price, product.Quantity, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, domain.NewDuplicateProductNameError()
		}
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}

	return product, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
