package providers

import (
	"context"

	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/cassiomorais/payhub/internal/domain/payment"
	"github.com/google/uuid"
)

// MockProvider is a scriptable fake for application-layer tests.
type MockProvider struct {
	name string

	ProcessErr   error
	RefundErr    error
	Session      *Session
	RefundedList []int64

	ProcessCalls int
	RefundCalls  int
	CaptureCalls int
}

// NewMockProvider creates a mock provider.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

func (p *MockProvider) Name() string { return p.name }

func (p *MockProvider) ProcessPayment(ctx context.Context, rec *payment.Record) (*Session, error) {
	p.ProcessCalls++
	if p.ProcessErr != nil {
		return nil, p.ProcessErr
	}
	if rec.TransactionID == "" {
		rec.TransactionID = p.name + "_txn_" + uuid.New().String()[:8]
	}
	return p.Session, nil
}

func (p *MockProvider) Refund(ctx context.Context, rec *payment.Record, amountCents *int64) (int64, error) {
	p.RefundCalls++
	if rec.Status != payment.StatusConfirmed {
		return 0, domainErrors.NewGatewayError(p.name, domainErrors.ErrNotConfirmed.Error(), domainErrors.ErrNotConfirmed)
	}
	if p.RefundErr != nil {
		return 0, p.RefundErr
	}
	refunded := rec.Total.ValueCents
	if amountCents != nil {
		refunded = *amountCents
	}
	p.RefundedList = append(p.RefundedList, refunded)
	return refunded, nil
}

func (p *MockProvider) Capture(ctx context.Context, rec *payment.Record) error {
	p.CaptureCalls++
	return nil
}
