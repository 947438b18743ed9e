package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/service/catalog"
	"github.com/vladislavdragonenkov/commerce/internal/service/customer"
	"github.com/vladislavdragonenkov/commerce/internal/service/order"
	"github.com/vladislavdragonenkov/commerce/internal/storage/postgres"
)

const envPostgresDSN = "COMMERCE_POSTGRES_DSN"

type seedOptions struct {
	customers int
	products  int
	orders    int
	maxItems  int
}

type summary struct {
	customers int
	products  int
	orders    int
	rejected  int
}

type customerCreator interface {
	Create(ctx context.Context, data domain.CreateCustomer) (domain.Customer, error)
}

type productCreator interface {
	Create(ctx context.Context, data domain.CreateProduct) (domain.Product, error)
}

type orderCreator interface {
	Create(ctx context.Context, req order.CreateRequest) (domain.Order, error)
}

// seeder наполняет хранилище фейковыми клиентами, товарами и заказами через сервисы,
// поэтому все бизнес-проверки срабатывают так же, как в API.
type seeder struct {
	customers customerCreator
	catalog   productCreator
	orders    orderCreator
	logger    *log.Entry
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	logger := log.WithField("component", "seed")

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.WithError(err).Fatal("load .env")
	}

	var (
		opts seedOptions
		dsn  string
	)
	flag.IntVar(&opts.customers, "customers", 10, "number of customers to create")
	flag.IntVar(&opts.products, "products", 20, "number of products to create")
	flag.IntVar(&opts.orders, "orders", 30, "number of orders to place")
	flag.IntVar(&opts.maxItems, "max-items", 3, "max line items per order")
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: "+envPostgresDSN+")")
	flag.Parse()

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv(envPostgresDSN))
	}
	if dsn == "" {
		logger.Fatalf("%s (or -dsn) is required", envPostgresDSN)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		logger.WithError(err).Fatal("open postgres store")
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("apply migrations")
	}

	customers := postgres.NewCustomerRepository(store)
	products := postgres.NewProductRepository(store)
	s := seeder{
		customers: customer.NewService(customers, nil, logger),
		catalog:   catalog.NewService(products, nil, logger),
		orders:    order.NewService(postgres.NewOrderRepository(store), products, customers, order.WithLogger(logger)),
		logger:    logger,
	}

	result, err := s.run(ctx, opts)
	if err != nil {
		logger.WithError(err).Fatal("seed failed")
	}
	logger.WithFields(log.Fields{
		"customers": result.customers,
		"products":  result.products,
		"orders":    result.orders,
		"rejected":  result.rejected,
	}).Info("seed completed")
}

// run создаёт данные. Бизнес-отказы (дубликаты, нехватка остатка) пропускаются и считаются,
// ошибки хранилища прерывают сидирование.
func (s seeder) run(ctx context.Context, opts seedOptions) (summary, error) {
	var (
		result      summary
		customerIDs []string
		productIDs  []string
	)

	for i := 0; i < opts.customers; i++ {
		created, err := s.customers.Create(ctx, domain.CreateCustomer{
			Name:  gofakeit.Name(),
			Email: gofakeit.Email(),
		})
		if err != nil {
			if domain.IsBusiness(err) {
				result.rejected++
				continue
			}
			return result, fmt.Errorf("create customer: %w", err)
		}
		customerIDs = append(customerIDs, created.ID)
	}
	result.customers = len(customerIDs)

	for i := 0; i < opts.products; i++ {
		created, err := s.catalog.Create(ctx, domain.CreateProduct{
			Name:     fmt.Sprintf("%s %s", gofakeit.ProductName(), gofakeit.LetterN(4)),
			Price:    decimal.NewFromFloat(gofakeit.Price(1, 500)).Round(2),
			Quantity: gofakeit.Number(0, 100),
		})
		if err != nil {
			if domain.IsBusiness(err) {
				result.rejected++
				continue
			}
			return result, fmt.Errorf("create product: %w", err)
		}
		productIDs = append(productIDs, created.ID)
	}
	result.products = len(productIDs)

	if len(customerIDs) == 0 || len(productIDs) == 0 {
		return result, nil
	}

	maxItems := max(opts.maxItems, 1)
	for i := 0; i < opts.orders; i++ {
		_, err := s.orders.Create(ctx, order.CreateRequest{
			CustomerID: customerIDs[rand.IntN(len(customerIDs))],
			Products:   randomItems(productIDs, gofakeit.Number(1, maxItems)),
		})
		if err != nil {
			if domain.IsBusiness(err) {
				s.logger.WithField("reason", domain.KindLabel(err)).Debug("seed order rejected")
				result.rejected++
				continue
			}
			return result, fmt.Errorf("create order: %w", err)
		}
		result.orders++
	}

	return result, nil
}

func randomItems(productIDs []string, count int) []domain.ProductQuantity {
	items := make([]domain.ProductQuantity, 0, count)
	for _, idx := range rand.Perm(len(productIDs))[:min(count, len(productIDs))] {
		items = append(items, domain.ProductQuantity{ID: productIDs[idx], Quantity: gofakeit.Number(1, 5)})
	}
	return items
}
