package customer

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/metrics"
)

// Service регистрирует клиентов с уникальным email.
type Service struct {
	customers domain.CustomerRepository
	metrics   *metrics.CommerceMetrics
	logger    *log.Entry
}

// NewService конструирует сервис клиентов. metrics может быть nil.
func NewService(customers domain.CustomerRepository, m *metrics.CommerceMetrics, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "customer-service")
	}
	return &Service{
		customers: customers,
		metrics:   m,
		logger:    logger,
	}
}

// Create проверяет, что email свободен, и создаёт клиента.
func (s *Service) Create(ctx context.Context, data domain.CreateCustomer) (domain.Customer, error) {
	_, exists, err := s.customers.FindByEmail(ctx, data.Email)
	if err != nil {
		s.logger.WithError(err).Error("failed to look up customer by email")
		return domain.Customer{}, err
	}
	if exists {
		s.logger.WithField("email", data.Email).Debug("customer email already registered")
		return domain.Customer{}, domain.NewDuplicateEmailError()
	}

	customer, err := s.customers.Create(ctx, data)
	if err != nil {
		if !domain.IsBusiness(err) {
			s.logger.WithError(err).Error("failed to create customer")
		}
		return domain.Customer{}, err
	}

	s.metrics.RecordCustomerCreated()
	s.logger.WithField("customer_id", customer.ID).Info("customer created")
	return customer, nil
}
