package application

import (
	"context"
	"sync"
	"testing"

	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/cassiomorais/payhub/internal/domain/payment"
	"github.com/cassiomorais/payhub/internal/providers"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory payment.Repository for use-case tests.
type memRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*payment.Record
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[uuid.UUID]*payment.Record)}
}

func (r *memRepo) Create(ctx context.Context, rec *payment.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *rec
	r.records[rec.ID] = &clone
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*payment.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, domainErrors.ErrPaymentNotFound
	}
	clone := *rec
	clone.ExtraData = make(map[string]any, len(rec.ExtraData))
	for k, v := range rec.ExtraData {
		clone.ExtraData[k] = v
	}
	return &clone, nil
}

func (r *memRepo) GetByTransactionID(ctx context.Context, transactionID string) (*payment.Record, error) {
	r.mu.Lock()
	var found *payment.Record
	for _, rec := range r.records {
		if rec.TransactionID == transactionID {
			found = rec
			break
		}
	}
	r.mu.Unlock()
	if found == nil {
		return nil, domainErrors.ErrPaymentNotFound
	}
	return r.GetByID(context.Background(), found.ID)
}

func (r *memRepo) UpdateFields(ctx context.Context, id uuid.UUID, upd payment.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return domainErrors.ErrPaymentNotFound
	}
	upd.Apply(rec)
	return nil
}

func (r *memRepo) List(ctx context.Context, f payment.ListFilter) ([]*payment.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*payment.Record
	for _, rec := range r.records {
		if f.Variant != nil && rec.Variant != *f.Variant {
			continue
		}
		if f.Status != nil && rec.Status != *f.Status {
			continue
		}
		clone := *rec
		out = append(out, &clone)
	}
	return out, nil
}

// passthroughTx runs fn without a real transaction.
type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(repo *memRepo, registry *providers.Registry) *Service {
	return NewService(repo, registry, passthroughTx{}, NoopLocker{}, nil, zerolog.Nop())
}

func mockRegistry(variant string, kind providers.Kind, p providers.Provider) *providers.Registry {
	return providers.NewStaticRegistry(
		map[string]providers.Provider{variant: p},
		map[string]providers.Kind{variant: kind},
	)
}

func validInput(variant string) CreatePaymentInput {
	return CreatePaymentInput{
		Variant:     variant,
		AmountCents: 20000,
		Currency:    "usd",
	}
}

func TestCreatePayment(t *testing.T) {
	mock := providers.NewMockProvider("stripe")
	mock.Session = &providers.Session{ID: "cs_1", URL: "https://gw.example/pay"}

	repo := newMemRepo()
	svc := newTestService(repo, mockRegistry("stripe", providers.KindCheckout, mock))

	result, err := svc.CreatePayment(context.Background(), validInput("stripe"))
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.Equal(t, "https://gw.example/pay", result.Session.URL)
	assert.Equal(t, 1, mock.ProcessCalls)

	stored, err := repo.GetByID(context.Background(), result.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusWaiting, stored.Status,
		"hosted checkout stays waiting until the webhook lands")
}

func TestCreatePaymentUnknownVariant(t *testing.T) {
	svc := newTestService(newMemRepo(), mockRegistry("stripe", providers.KindCheckout, providers.NewMockProvider("stripe")))

	_, err := svc.CreatePayment(context.Background(), validInput("nope"))
	assert.ErrorIs(t, err, domainErrors.ErrVariantNotFound)
}

func TestCreatePaymentCardRequiresCardData(t *testing.T) {
	svc := newTestService(newMemRepo(), mockRegistry("authorize_net", providers.KindCard, providers.NewMockProvider("authorize_net")))

	in := validInput("authorize_net")
	_, err := svc.CreatePayment(context.Background(), in)
	assert.ErrorIs(t, err, domainErrors.ErrMissingCardData)

	in.Card = &CardData{Number: "4111111111111111", Expiration: "12/30"}
	_, err = svc.CreatePayment(context.Background(), in)
	assert.ErrorIs(t, err, domainErrors.ErrMissingCardData, "partial card data is as bad as none")
}

func TestCreatePaymentCardSnapshotsCardFields(t *testing.T) {
	mock := providers.NewMockProvider("authorize_net")
	repo := newMemRepo()
	svc := newTestService(repo, mockRegistry("authorize_net", providers.KindCard, mock))

	in := validInput("authorize_net")
	in.Card = &CardData{Number: "4111111111111111", Expiration: "12/30", CVV: "123"}

	result, err := svc.CreatePayment(context.Background(), in)
	require.NoError(t, err)

	card, ok := result.Record.Snapshot(payment.SnapshotCard)
	require.True(t, ok)
	fields := card.(map[string]any)
	assert.Equal(t, "4111111111111111", fields["x_card_num"])
	assert.Equal(t, "12/30", fields["x_exp_date"])
	assert.Equal(t, "123", fields["x_card_code"])
}

func TestCreatePaymentChargeRequiresToken(t *testing.T) {
	svc := newTestService(newMemRepo(), mockRegistry("braintree", providers.KindCharge, providers.NewMockProvider("braintree")))

	_, err := svc.CreatePayment(context.Background(), validInput("braintree"))
	require.Error(t, err)
	var validErr *domainErrors.ValidationError
	assert.ErrorAs(t, err, &validErr)
}

func TestCreatePaymentRejectsCardForOtherKinds(t *testing.T) {
	svc := newTestService(newMemRepo(), mockRegistry("stripe", providers.KindCheckout, providers.NewMockProvider("stripe")))

	in := validInput("stripe")
	in.Card = &CardData{Number: "4111111111111111", Expiration: "12/30", CVV: "123"}
	_, err := svc.CreatePayment(context.Background(), in)
	assert.Error(t, err)
}

func TestCreatePaymentInvalidIP(t *testing.T) {
	svc := newTestService(newMemRepo(), mockRegistry("stripe", providers.KindCheckout, providers.NewMockProvider("stripe")))

	in := validInput("stripe")
	in.CustomerIP = "not-an-ip"
	_, err := svc.CreatePayment(context.Background(), in)
	assert.Error(t, err)
}

func TestCreatePaymentBreakerOpensAfterRepeatedFailures(t *testing.T) {
	mock := providers.NewMockProvider("stripe")
	mock.ProcessErr = domainErrors.NewGatewayError("stripe", "boom", nil)
	svc := newTestService(newMemRepo(), mockRegistry("stripe", providers.KindCheckout, mock))

	for i := 0; i < 10; i++ {
		_, err := svc.CreatePayment(context.Background(), validInput("stripe"))
		require.Error(t, err)
	}

	_, err := svc.CreatePayment(context.Background(), validInput("stripe"))
	assert.ErrorIs(t, err, domainErrors.ErrProviderUnavailable)
	assert.Equal(t, 10, mock.ProcessCalls, "the open breaker must not reach the gateway")
}

func TestRefundPayment(t *testing.T) {
	mock := providers.NewMockProvider("stripe")
	repo := newMemRepo()
	svc := newTestService(repo, mockRegistry("stripe", providers.KindCheckout, mock))

	rec, err := payment.NewRecord("stripe", payment.Amount{ValueCents: 20000, Currency: "usd"})
	require.NoError(t, err)
	rec.Status = payment.StatusConfirmed
	require.NoError(t, repo.Create(context.Background(), rec))

	refunded, err := svc.RefundPayment(context.Background(), rec.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), refunded)
	assert.Equal(t, 1, mock.RefundCalls)
}

func TestRefundPaymentPartial(t *testing.T) {
	mock := providers.NewMockProvider("stripe")
	repo := newMemRepo()
	svc := newTestService(repo, mockRegistry("stripe", providers.KindCheckout, mock))

	rec, err := payment.NewRecord("stripe", payment.Amount{ValueCents: 20000, Currency: "usd"})
	require.NoError(t, err)
	rec.Status = payment.StatusConfirmed
	require.NoError(t, repo.Create(context.Background(), rec))

	amount := int64(5000)
	refunded, err := svc.RefundPayment(context.Background(), rec.ID, &amount)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), refunded)
}

func TestRefundPaymentNotFound(t *testing.T) {
	svc := newTestService(newMemRepo(), mockRegistry("stripe", providers.KindCheckout, providers.NewMockProvider("stripe")))

	_, err := svc.RefundPayment(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, domainErrors.ErrPaymentNotFound)
}

func TestRefundPaymentRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(newMemRepo(), mockRegistry("stripe", providers.KindCheckout, providers.NewMockProvider("stripe")))

	zero := int64(0)
	_, err := svc.RefundPayment(context.Background(), uuid.New(), &zero)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidAmount)
}

func TestRefundPaymentNotConfirmed(t *testing.T) {
	mock := providers.NewMockProvider("stripe")
	repo := newMemRepo()
	svc := newTestService(repo, mockRegistry("stripe", providers.KindCheckout, mock))

	rec, err := payment.NewRecord("stripe", payment.Amount{ValueCents: 20000, Currency: "usd"})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), rec))

	_, err = svc.RefundPayment(context.Background(), rec.ID, nil)
	assert.ErrorIs(t, err, domainErrors.ErrNotConfirmed)
}

func TestGetPaymentSettingsForNonTokenVariant(t *testing.T) {
	svc := newTestService(newMemRepo(), mockRegistry("stripe", providers.KindCheckout, providers.NewMockProvider("stripe")))

	_, err := svc.GetPaymentSettings(context.Background(), "stripe")
	require.Error(t, err)
	var cfgErr *domainErrors.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
