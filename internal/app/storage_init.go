package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/commerce/internal/health"
	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/storage/memory"
	"github.com/vladislavdragonenkov/commerce/internal/storage/postgres"
)

// runtimeDependencies — репозитории выбранного драйвера хранения.
type runtimeDependencies struct {
	customers  domain.CustomerRepository
	products   domain.ProductRepository
	orders     domain.OrderRepository
	outboxRepo domain.OutboxRepository

	// storageChecker nil для memory: проверять нечего.
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		logger.Info("используем in-memory хранилище")
		return &runtimeDependencies{
			customers:  memory.NewCustomerRepository(),
			products:   memory.NewProductRepository(),
			orders:     memory.NewOrderRepository(),
			outboxRepo: memory.NewOutboxRepository(),
		}, nil
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres dsn is required for storage driver %q", StorageDriverPostgres)
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN, postgres.WithMaxOpenConns(cfg.PostgresMaxConns))
		if err != nil {
			return nil, err
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
			logger.Info("postgres миграции применены")
		}
		logger.Info("используем postgres хранилище")
		return &runtimeDependencies{
			customers:      postgres.NewCustomerRepository(store),
			products:       postgres.NewProductRepository(store),
			orders:         postgres.NewOrderRepository(store),
			outboxRepo:     postgres.NewOutboxRepository(store),
			storageChecker: healthcheck.NewPingChecker("postgres", store),
			closeFn:        store.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}
