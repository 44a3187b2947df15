package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/cassiomorais/payhub/internal/domain/payment"
	"github.com/cassiomorais/payhub/internal/providers"
	"github.com/google/uuid"
)

// Webhook rule names, used as metric labels and in logs.
const (
	ruleSessionCompleted  = "session_completed"
	ruleIntentSucceeded   = "intent_succeeded"
	ruleOrderApproved     = "order_approved"
	ruleSignedTransaction = "signed_transaction"
)

// ReconcileWebhook applies one provider callback to the matching payment
// record. Rules are evaluated in a fixed order and are not mutually
// exclusive: every rule whose shape matches the event is applied. An event
// matching no rule is acknowledged silently so that unrelated provider
// noise is not redelivered forever. A matched rule whose correlation id
// resolves to no record fails with a ReconciliationError; the provider will
// redeliver, and the answer stays the same until the record exists.
func (s *Service) ReconcileWebhook(ctx context.Context, body []byte) error {
	var event map[string]any
	if err := json.Unmarshal(body, &event); err != nil {
		return domainErrors.NewReconciliationError("", "malformed webhook body", err)
	}

	matched := false

	if field(event, "type") == "checkout.session.completed" &&
		field(event, "data", "object", "payment_status") == "paid" {
		matched = true
		if err := s.applySessionCompleted(ctx, event); err != nil {
			s.countWebhook(ruleSessionCompleted, "error")
			return err
		}
		s.countWebhook(ruleSessionCompleted, "applied")
	}

	if field(event, "type") == "payment_intent.succeeded" &&
		field(event, "data", "object", "status") == "succeeded" {
		matched = true
		if err := s.applyIntentSucceeded(ctx, event); err != nil {
			s.countWebhook(ruleIntentSucceeded, "error")
			return err
		}
		s.countWebhook(ruleIntentSucceeded, "applied")
	}

	if field(event, "event_type") == "CHECKOUT.ORDER.APPROVED" &&
		field(event, "resource", "status") == "APPROVED" {
		matched = true
		if err := s.applyOrderApproved(ctx, event); err != nil {
			s.countWebhook(ruleOrderApproved, "error")
			return err
		}
		s.countWebhook(ruleOrderApproved, "applied")
	}

	if _, ok := event["signature"]; ok {
		matched = true
		if err := s.applySignedTransaction(ctx, event); err != nil {
			s.countWebhook(ruleSignedTransaction, "error")
			return err
		}
		s.countWebhook(ruleSignedTransaction, "applied")
	}

	if !matched {
		s.countWebhook("none", "unmatched")
		s.logger.Debug().Msg("webhook event matched no rule, acknowledged")
	}
	return nil
}

// applySessionCompleted handles hosted-checkout completion. The correlation
// id is our own primary key, echoed back by the gateway.
func (s *Service) applySessionCompleted(ctx context.Context, event map[string]any) error {
	ref := field(event, "data", "object", "client_reference_id")
	if ref == "" {
		return domainErrors.NewReconciliationError("", "checkout session event without client_reference_id", nil)
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return domainErrors.NewReconciliationError(ref, "client_reference_id is not a payment id", err)
	}

	object, _ := lookup(event, "data", "object")
	return s.confirmByID(ctx, id, ref, payment.SnapshotSession, object)
}

// applyIntentSucceeded handles asynchronous intent confirmation. The
// correlation id rides in the intent metadata.
func (s *Service) applyIntentSucceeded(ctx context.Context, event map[string]any) error {
	orderNo := field(event, "data", "object", "metadata", "order_no")
	if orderNo == "" {
		return domainErrors.NewReconciliationError("", "payment intent event without order_no metadata", nil)
	}
	id, err := uuid.Parse(orderNo)
	if err != nil {
		return domainErrors.NewReconciliationError(orderNo, "order_no is not a payment id", err)
	}

	object, _ := lookup(event, "data", "object")
	return s.confirmByID(ctx, id, orderNo, payment.SnapshotIntentEvent, object)
}

// applyOrderApproved confirms an approved order and captures the funds.
// Capture runs after the confirmation is committed: an approved, confirmed
// order whose capture fails is retried on redelivery, while a crash between
// the two leaves a confirmed record and a capturable order, never the
// reverse.
func (s *Service) applyOrderApproved(ctx context.Context, event map[string]any) error {
	orderID := field(event, "resource", "id")
	if orderID == "" {
		return domainErrors.NewReconciliationError("", "order event without resource id", nil)
	}

	rec, err := s.repo.GetByTransactionID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrPaymentNotFound) {
			return domainErrors.NewReconciliationError(orderID, "no payment for approved order", err)
		}
		return err
	}

	resource, _ := lookup(event, "resource")
	if err := s.confirmByID(ctx, rec.ID, orderID, payment.SnapshotOrder, resource); err != nil {
		return err
	}

	provider, _, err := s.registry.Get(rec.Variant)
	if err != nil {
		return err
	}
	capturer, ok := provider.(providers.Capturer)
	if !ok {
		return nil
	}

	fresh, err := s.repo.GetByID(ctx, rec.ID)
	if err != nil {
		return err
	}
	if err := capturer.Capture(ctx, fresh); err != nil {
		return domainErrors.NewReconciliationError(orderID, "capture failed for approved order", err)
	}
	return nil
}

// applySignedTransaction handles HMAC-signed webhook deliveries. The signed
// payload is used only for correlation; the authoritative transaction state
// is re-fetched from the gateway before it is snapshotted.
func (s *Service) applySignedTransaction(ctx context.Context, event map[string]any) error {
	signature := field(event, "signature")
	payload := field(event, "payload")

	verifier, variant := s.findVerifier(signature, payload)
	if verifier == nil {
		return domainErrors.NewReconciliationError("", "webhook signature did not verify against any variant", nil)
	}

	notification, err := verifier.VerifyWebhook(signature, payload)
	if err != nil {
		return domainErrors.NewReconciliationError("", "signed webhook payload did not parse", err)
	}

	rec, err := s.repo.GetByTransactionID(ctx, notification.TransactionID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrPaymentNotFound) {
			return domainErrors.NewReconciliationError(notification.TransactionID, "no payment for signed webhook transaction", err)
		}
		return err
	}

	txn, err := verifier.FetchTransaction(ctx, rec.TransactionID)
	if err != nil {
		return domainErrors.NewReconciliationError(rec.TransactionID, fmt.Sprintf("transaction re-fetch failed for variant %s", variant), err)
	}

	return s.confirmByID(ctx, rec.ID, rec.TransactionID, payment.SnapshotTransaction, txn)
}

// confirmByID transitions one record to confirmed and stores the event
// snapshot, under the per-record lock and inside a transaction. A record
// already confirmed passes through unchanged except for the snapshot, which
// keeps redelivery idempotent.
func (s *Service) confirmByID(ctx context.Context, id uuid.UUID, correlationID, snapshotKey string, snapshot any) error {
	return s.locker.WithLock(ctx, lockKey(id), func(ctx context.Context) error {
		return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			rec, err := s.repo.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, domainErrors.ErrPaymentNotFound) {
					return domainErrors.NewReconciliationError(correlationID, "webhook references unknown payment", err)
				}
				return err
			}

			if err := rec.TransitionTo(payment.StatusConfirmed); err != nil {
				return domainErrors.NewReconciliationError(correlationID, "webhook arrived in a state that cannot confirm", err)
			}

			upd := payment.Update{Status: &rec.Status}
			if snapshot != nil {
				upd.Snapshots = map[string]any{snapshotKey: snapshot}
			}
			if err := s.repo.UpdateFields(ctx, id, upd); err != nil {
				return err
			}

			s.logger.Info().
				Str("payment_id", id.String()).
				Str("snapshot", snapshotKey).
				Msg("payment confirmed by webhook")
			return nil
		})
	})
}

// findVerifier returns the first configured verifier that accepts the
// signature. Signatures embed the variant's public key, so at most one
// variant matches.
func (s *Service) findVerifier(signature, payload string) (providers.WebhookVerifier, string) {
	for _, variant := range s.registry.Variants() {
		p, _, err := s.registry.Get(variant)
		if err != nil {
			continue
		}
		v, ok := p.(providers.WebhookVerifier)
		if !ok {
			continue
		}
		if _, err := v.VerifyWebhook(signature, payload); err == nil {
			return v, variant
		}
	}
	return nil, ""
}

// lookup walks nested maps by key.
func lookup(m map[string]any, path ...string) (any, bool) {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// field walks nested maps and returns the string at the path, or "".
func field(m map[string]any, path ...string) string {
	v, ok := lookup(m, path...)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}
