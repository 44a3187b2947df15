package application

import (
	"github.com/cassiomorais/payhub/internal/domain/payment"
	"github.com/cassiomorais/payhub/internal/infrastructure/observability"
	"github.com/cassiomorais/payhub/internal/providers"
	"github.com/rs/zerolog"
)

// Service coordinates payment use cases across the repository, the provider
// registry and the distributed lock. All gateway calls go through the
// per-variant circuit breaker owned by the registry.
type Service struct {
	repo     payment.Repository
	registry *providers.Registry
	tx       TransactionManager
	locker   RecordLocker
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

// NewService wires a payment service. locker may be a NoopLocker when
// distributed locking is disabled; metrics may be nil in tests.
func NewService(
	repo payment.Repository,
	registry *providers.Registry,
	tx TransactionManager,
	locker RecordLocker,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Service {
	if locker == nil {
		locker = NoopLocker{}
	}
	return &Service{
		repo:     repo,
		registry: registry,
		tx:       tx,
		locker:   locker,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *Service) countPayment(variant string, status payment.Status) {
	if s.metrics != nil {
		s.metrics.PaymentsTotal.WithLabelValues(variant, string(status)).Inc()
	}
}

func (s *Service) countRefund(variant, outcome string) {
	if s.metrics != nil {
		s.metrics.RefundsTotal.WithLabelValues(variant, outcome).Inc()
	}
}

func (s *Service) countWebhook(rule, outcome string) {
	if s.metrics != nil {
		s.metrics.WebhookEventsTotal.WithLabelValues(rule, outcome).Inc()
	}
}
