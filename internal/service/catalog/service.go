package catalog

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/metrics"
)

// Service ведёт каталог товаров с уникальными названиями.
type Service struct {
	products domain.ProductRepository
	metrics  *metrics.CommerceMetrics
	logger   *log.Entry
}

// NewService конструирует сервис каталога. metrics может быть nil.
func NewService(products domain.ProductRepository, m *metrics.CommerceMetrics, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "catalog-service")
	}
	return &Service{
		products: products,
		metrics:  m,
		logger:   logger,
	}
}

// Create добавляет товар, если название ещё не занято.
func (s *Service) Create(ctx context.Context, data domain.CreateProduct) (domain.Product, error) {
	_, exists, err := s.products.FindByName(ctx, data.Name)
	if err != nil {
		s.logger.WithError(err).Error("failed to look up product by name")
		return domain.Product{}, err
	}
	if exists {
		return domain.Product{}, domain.NewDuplicateProductNameError()
	}

	product, err := s.products.Create(ctx, data)
	if err != nil {
		if !domain.IsBusiness(err) {
			s.logger.WithError(err).Error("failed to create product")
		}
		return domain.Product{}, err
	}

	s.metrics.RecordProductCreated()
	s.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"quantity":   product.Quantity,
	}).Info("product created")
	return product, nil
}
