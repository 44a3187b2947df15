package application

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/cassiomorais/payhub/internal/domain/payment"
	"github.com/cassiomorais/payhub/internal/providers"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmableRecord(t *testing.T, repo *memRepo, variant string) *payment.Record {
	t.Helper()
	rec, err := payment.NewRecord(variant, payment.Amount{ValueCents: 20000, Currency: "usd"})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), rec))
	return rec
}

func TestReconcileSessionCompleted(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, mockRegistry("stripe", providers.KindCheckout, providers.NewMockProvider("stripe")))
	rec := confirmableRecord(t, repo, "stripe")

	body := fmt.Sprintf(`{
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"payment_status": "paid",
			"client_reference_id": %q
		}}
	}`, rec.ID)

	require.NoError(t, svc.ReconcileWebhook(context.Background(), []byte(body)))

	stored, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusConfirmed, stored.Status)
	assert.Contains(t, stored.ExtraData, payment.SnapshotSession)
}

func TestReconcileSessionCompletedUnpaidIsIgnored(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, mockRegistry("stripe", providers.KindCheckout, providers.NewMockProvider("stripe")))
	rec := confirmableRecord(t, repo, "stripe")

	body := fmt.Sprintf(`{
		"type": "checkout.session.completed",
		"data": {"object": {
			"payment_status": "unpaid",
			"client_reference_id": %q
		}}
	}`, rec.ID)

	require.NoError(t, svc.ReconcileWebhook(context.Background(), []byte(body)))

	stored, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusWaiting, stored.Status)
}

func TestReconcileSessionCompletedUnknownRecord(t *testing.T) {
	svc := newTestService(newMemRepo(), mockRegistry("stripe", providers.KindCheckout, providers.NewMockProvider("stripe")))

	body := fmt.Sprintf(`{
		"type": "checkout.session.completed",
		"data": {"object": {
			"payment_status": "paid",
			"client_reference_id": %q
		}}
	}`, uuid.New())

	err := svc.ReconcileWebhook(context.Background(), []byte(body))
	require.Error(t, err)
	var recErr *domainErrors.ReconciliationError
	assert.ErrorAs(t, err, &recErr)
}

func TestReconcileIntentSucceeded(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, mockRegistry("stripe_intent", providers.KindCharge, providers.NewMockProvider("stripe_intent")))
	rec := confirmableRecord(t, repo, "stripe_intent")

	body := fmt.Sprintf(`{
		"type": "payment_intent.succeeded",
		"data": {"object": {
			"id": "pi_1",
			"status": "succeeded",
			"metadata": {"order_no": %q}
		}}
	}`, rec.ID)

	require.NoError(t, svc.ReconcileWebhook(context.Background(), []byte(body)))

	stored, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusConfirmed, stored.Status)
	assert.Contains(t, stored.ExtraData, payment.SnapshotIntentEvent,
		"this rule stores its snapshot under the historical key")
}

func TestReconcileOrderApprovedConfirmsAndCaptures(t *testing.T) {
	mock := providers.NewMockProvider("paypal")
	repo := newMemRepo()
	svc := newTestService(repo, mockRegistry("paypal", providers.KindOrder, mock))

	rec := confirmableRecord(t, repo, "paypal")
	require.NoError(t, repo.UpdateFields(context.Background(), rec.ID,
		payment.Update{TransactionID: strPtr("ORDER1")}))

	body := `{
		"event_type": "CHECKOUT.ORDER.APPROVED",
		"resource": {"id": "ORDER1", "status": "APPROVED"}
	}`

	require.NoError(t, svc.ReconcileWebhook(context.Background(), []byte(body)))

	stored, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusConfirmed, stored.Status)
	assert.Contains(t, stored.ExtraData, payment.SnapshotOrder)
	assert.Equal(t, 1, mock.CaptureCalls, "approval must trigger a synchronous capture")
}

func TestReconcileOrderApprovedUnknownOrder(t *testing.T) {
	svc := newTestService(newMemRepo(), mockRegistry("paypal", providers.KindOrder, providers.NewMockProvider("paypal")))

	body := `{
		"event_type": "CHECKOUT.ORDER.APPROVED",
		"resource": {"id": "GHOST", "status": "APPROVED"}
	}`

	err := svc.ReconcileWebhook(context.Background(), []byte(body))
	var recErr *domainErrors.ReconciliationError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "GHOST", recErr.CorrelationID)
}

func TestReconcileSignedTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents/txn_42", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"id": "txn_42", "status": "settled"})
	}))
	defer srv.Close()

	repo := newMemRepo()
	verifier := providers.NewTokenCharge("braintree", providers.VariantConfig{
		Kind:      "charge",
		Endpoint:  srv.URL,
		SecretKey: "sk_test",
		PublicKey: "pk_test",
	}, repo, zerolog.Nop())

	svc := newTestService(repo, mockRegistry("braintree", providers.KindCharge, verifier))

	rec := confirmableRecord(t, repo, "braintree")
	require.NoError(t, repo.UpdateFields(context.Background(), rec.ID,
		payment.Update{TransactionID: strPtr("txn_42")}))

	payload := `{"transaction":{"id":"txn_42"}}`
	h := hmac.New(sha256.New, []byte("sk_test"))
	h.Write([]byte(payload))
	signature := "pk_test|" + hex.EncodeToString(h.Sum(nil))

	body, err := json.Marshal(map[string]string{"signature": signature, "payload": payload})
	require.NoError(t, err)

	require.NoError(t, svc.ReconcileWebhook(context.Background(), body))

	stored, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusConfirmed, stored.Status)

	txn, ok := stored.ExtraData[payment.SnapshotTransaction].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "settled", txn["status"], "snapshot must hold the re-fetched transaction, not the signed payload")
}

func TestReconcileSignedTransactionBadSignature(t *testing.T) {
	repo := newMemRepo()
	verifier := providers.NewTokenCharge("braintree", providers.VariantConfig{
		Kind:      "charge",
		Endpoint:  "http://unused",
		SecretKey: "sk_test",
		PublicKey: "pk_test",
	}, repo, zerolog.Nop())
	svc := newTestService(repo, mockRegistry("braintree", providers.KindCharge, verifier))

	body := `{"signature": "pk_test|deadbeef", "payload": "{\"transaction\":{\"id\":\"x\"}}"}`

	err := svc.ReconcileWebhook(context.Background(), []byte(body))
	var recErr *domainErrors.ReconciliationError
	assert.ErrorAs(t, err, &recErr)
}

func TestReconcileUnmatchedEventIsAcknowledged(t *testing.T) {
	svc := newTestService(newMemRepo(), mockRegistry("stripe", providers.KindCheckout, providers.NewMockProvider("stripe")))

	assert.NoError(t, svc.ReconcileWebhook(context.Background(), []byte(`{"type": "invoice.created"}`)))
	assert.NoError(t, svc.ReconcileWebhook(context.Background(), []byte(`{}`)))
}

func TestReconcileMalformedBody(t *testing.T) {
	svc := newTestService(newMemRepo(), mockRegistry("stripe", providers.KindCheckout, providers.NewMockProvider("stripe")))

	err := svc.ReconcileWebhook(context.Background(), []byte("not json"))
	var recErr *domainErrors.ReconciliationError
	assert.ErrorAs(t, err, &recErr)
}

func TestReconcileRedeliveryIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, mockRegistry("stripe", providers.KindCheckout, providers.NewMockProvider("stripe")))
	rec := confirmableRecord(t, repo, "stripe")

	body := fmt.Sprintf(`{
		"type": "checkout.session.completed",
		"data": {"object": {
			"payment_status": "paid",
			"client_reference_id": %q
		}}
	}`, rec.ID)

	require.NoError(t, svc.ReconcileWebhook(context.Background(), []byte(body)))
	require.NoError(t, svc.ReconcileWebhook(context.Background(), []byte(body)),
		"a redelivered webhook must reconcile cleanly")

	stored, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusConfirmed, stored.Status)
}

func TestReconcileRefundedRecordRejectsConfirmation(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, mockRegistry("stripe", providers.KindCheckout, providers.NewMockProvider("stripe")))

	rec := confirmableRecord(t, repo, "stripe")
	refunded := payment.StatusRefunded
	require.NoError(t, repo.UpdateFields(context.Background(), rec.ID, payment.Update{Status: &refunded}))

	body := fmt.Sprintf(`{
		"type": "checkout.session.completed",
		"data": {"object": {
			"payment_status": "paid",
			"client_reference_id": %q
		}}
	}`, rec.ID)

	err := svc.ReconcileWebhook(context.Background(), []byte(body))
	var recErr *domainErrors.ReconciliationError
	assert.ErrorAs(t, err, &recErr)
}

func strPtr(s string) *string { return &s }
