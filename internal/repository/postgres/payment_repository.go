package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domainErrors "github.com/cassiomorais/payhub/internal/domain/errors"
	"github.com/cassiomorais/payhub/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository is the pgx-backed payment store.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a repository over the pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentColumns = `id, variant, status, fraud_status, transaction_id,
	total_cents, currency, tax_cents, delivery_cents, description,
	billing_first_name, billing_last_name, billing_address_1, billing_address_2,
	billing_city, billing_postcode, billing_country_code, billing_country_area,
	billing_email, customer_ip, extra_data, created_at, updated_at`

// Create inserts a new payment record.
func (r *PaymentRepository) Create(ctx context.Context, rec *payment.Record) error {
	extraData, err := json.Marshal(rec.ExtraData)
	if err != nil {
		return fmt.Errorf("failed to marshal extra_data: %w", err)
	}

	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23)`

	conn := ConnFromCtx(ctx, r.pool)
	_, err = conn.Exec(ctx, query,
		rec.ID, rec.Variant, rec.Status, rec.FraudStatus, rec.TransactionID,
		rec.Total.ValueCents, rec.Total.Currency, rec.Tax, rec.Delivery, rec.Description,
		rec.BillingFirstName, rec.BillingLastName, rec.BillingAddress1, rec.BillingAddress2,
		rec.BillingCity, rec.BillingPostcode, rec.BillingCountryCode, rec.BillingCountryArea,
		rec.BillingEmail, rec.CustomerIP, extraData, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByID fetches one record by primary key.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Record, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	conn := ConnFromCtx(ctx, r.pool)
	return scanPayment(conn.QueryRow(ctx, query, id))
}

// GetByTransactionID locates a record by the gateway-assigned transaction id.
func (r *PaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*payment.Record, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`

	conn := ConnFromCtx(ctx, r.pool)
	return scanPayment(conn.QueryRow(ctx, query, transactionID))
}

// UpdateFields persists only the fields named in the update. Snapshots are
// merged into extra_data with the jsonb concatenation operator, so two
// concurrent writers touching different snapshot keys both survive.
func (r *PaymentRepository) UpdateFields(ctx context.Context, id uuid.UUID, upd payment.Update) error {
	if upd.IsZero() {
		return nil
	}

	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	arg := 2

	if upd.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", arg))
		args = append(args, *upd.Status)
		arg++
	}
	if upd.TransactionID != nil {
		sets = append(sets, fmt.Sprintf("transaction_id = $%d", arg))
		args = append(args, *upd.TransactionID)
		arg++
	}
	if upd.FraudStatus != nil {
		sets = append(sets, fmt.Sprintf("fraud_status = $%d", arg))
		args = append(args, *upd.FraudStatus)
		arg++
	}
	if len(upd.Snapshots) > 0 {
		snapshots, err := json.Marshal(upd.Snapshots)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshots: %w", err)
		}
		sets = append(sets, fmt.Sprintf("extra_data = extra_data || $%d::jsonb", arg))
		args = append(args, snapshots)
		arg++
	}

	query := fmt.Sprintf("UPDATE payments SET %s WHERE id = $1", strings.Join(sets, ", "))

	conn := ConnFromCtx(ctx, r.pool)
	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrPaymentNotFound
	}
	return nil
}

// allowedSortColumns guards ORDER BY against injection; anything else falls
// back to created_at.
var allowedSortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"status":     true,
	"variant":    true,
}

// List returns records matching the filter, newest first by default.
func (r *PaymentRepository) List(ctx context.Context, f payment.ListFilter) ([]*payment.Record, error) {
	var conds []string
	var args []any
	arg := 1

	if f.Variant != nil {
		conds = append(conds, fmt.Sprintf("variant = $%d", arg))
		args = append(args, *f.Variant)
		arg++
	}
	if f.Status != nil {
		conds = append(conds, fmt.Sprintf("status = $%d", arg))
		args = append(args, *f.Status)
		arg++
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	sortBy := f.SortBy
	if !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM payments %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		paymentColumns, where, sortBy, sortOrder, arg, arg+1)
	args = append(args, limit, f.Offset)

	conn := ConnFromCtx(ctx, r.pool)
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var records []*payment.Record
	for rows.Next() {
		rec, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanPayment(row pgx.Row) (*payment.Record, error) {
	var rec payment.Record
	var extraData []byte

	err := row.Scan(
		&rec.ID, &rec.Variant, &rec.Status, &rec.FraudStatus, &rec.TransactionID,
		&rec.Total.ValueCents, &rec.Total.Currency, &rec.Tax, &rec.Delivery, &rec.Description,
		&rec.BillingFirstName, &rec.BillingLastName, &rec.BillingAddress1, &rec.BillingAddress2,
		&rec.BillingCity, &rec.BillingPostcode, &rec.BillingCountryCode, &rec.BillingCountryArea,
		&rec.BillingEmail, &rec.CustomerIP, &extraData, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}

	if len(extraData) > 0 {
		if err := json.Unmarshal(extraData, &rec.ExtraData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal extra_data: %w", err)
		}
	}
	if rec.ExtraData == nil {
		rec.ExtraData = make(map[string]any)
	}
	return &rec, nil
}
