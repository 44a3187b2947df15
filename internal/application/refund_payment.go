package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/cassiomorais/payhub/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

// RefundPayment refunds a confirmed payment, in full when amountCents is
// nil. It returns the refunded amount in the gateway's minor units. The
// per-record lock keeps a concurrent webhook for the same record out while
// the refund is in flight.
func (s *Service) RefundPayment(ctx context.Context, id uuid.UUID, amountCents *int64) (int64, error) {
	if amountCents != nil && *amountCents <= 0 {
		return 0, domainErrors.ErrInvalidAmount
	}

	var refunded int64
	err := s.locker.WithLock(ctx, lockKey(id), func(ctx context.Context) error {
		rec, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		provider, breaker, err := s.registry.Get(rec.Variant)
		if err != nil {
			return err
		}

		start := time.Now()
		result, err := breaker.Execute(func() (any, error) {
			return provider.Refund(ctx, rec, amountCents)
		})
		if s.metrics != nil {
			s.metrics.GatewayDuration.WithLabelValues(rec.Variant, "refund").Observe(time.Since(start).Seconds())
		}
		if err != nil {
			if s.metrics != nil {
				s.metrics.GatewayErrors.WithLabelValues(rec.Variant, "refund").Inc()
			}
			s.countRefund(rec.Variant, "error")
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return domainErrors.NewGatewayError(rec.Variant, "provider temporarily unavailable", domainErrors.ErrProviderUnavailable)
			}
			return err
		}

		refunded, _ = result.(int64)
		s.countRefund(rec.Variant, "success")

		s.logger.Info().
			Str("payment_id", rec.ID.String()).
			Str("variant", rec.Variant).
			Int64("refunded_minor_units", refunded).
			Msg("payment refunded")
		return nil
	})
	return refunded, err
}

func lockKey(id uuid.UUID) string {
	return fmt.Sprintf("payment:%s", id)
}

// GetPayment fetches one payment record by primary key.
func (s *Service) GetPayment(ctx context.Context, id uuid.UUID) (*payment.Record, error) {
	return s.repo.GetByID(ctx, id)
}

// ListPayments lists payment records with the given filter.
func (s *Service) ListPayments(ctx context.Context, f payment.ListFilter) ([]*payment.Record, error) {
	return s.repo.List(ctx, f)
}
