package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Create сохраняет заказ и его позиции одной транзакцией.
func (r *orderRepository) Create(ctx context.Context, data domain.CreateOrder) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	order := domain.Order{
		ID:            uuid.NewString(),
		Customer:      data.Customer,
		OrderProducts: make([]domain.OrderProduct, 0, len(data.Products)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := inTx(ctx, r.db, "create order", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, customer_id, created_at, updated_at)
			VALUES ($1,$2,$3,$4)
		`, order.ID, order.Customer.ID, order.CreatedAt, order.UpdatedAt); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for position, line := range data.Products {
			item := domain.OrderProduct{
				ID:        uuid.NewString(),
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     line.Price,
				CreatedAt: now,
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO orders_products (
					id, order_id, product_id, position, quantity, price, created_at
				) VALUES ($1,$2,$3,$4,$5,$6,$7)
			`,
				item.ID, item.OrderID, item.ProductID, position, item.Quantity, item.Price, item.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert order product: %w", err)
			}
			order.OrderProducts = append(order.OrderProducts, item)
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

const selectOrderColumns = `
	SELECT o.id, o.created_at, o.updated_at,
	       c.id, c.name, c.email, c.created_at, c.updated_at
	FROM orders o
	JOIN customers c ON c.id = o.customer_id
`

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, selectOrderColumns+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.OrderProducts = items

	return order, nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := selectOrderColumns + `
		WHERE o.customer_id = $1
		ORDER BY o.created_at DESC, o.id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)

	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", customerID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, customerID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].OrderProducts = items
	}

	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID, &order.CreatedAt, &order.UpdatedAt,
		&order.Customer.ID, &order.Customer.Name, &order.Customer.Email,
		&order.Customer.CreatedAt, &order.Customer.UpdatedAt,
	)
	return order, err
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderProduct, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, price, created_at
		FROM orders_products
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order products: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderProduct, 0)
	for rows.Next() {
		var item domain.OrderProduct
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order product: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order products: %w", err)
	}

	return items, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
