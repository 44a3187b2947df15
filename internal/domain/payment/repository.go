package payment

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows a payment listing.
type ListFilter struct {
	Variant   *string
	Status    *Status
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// Repository is the storage port for payment records. Implementations must
// support partial-field writes so that concurrent updates to unrelated
// fields do not clobber each other.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// GetByTransactionID locates a record by the gateway-assigned
	// transaction id; used by webhook rules whose correlation key is the
	// gateway's own identifier.
	GetByTransactionID(ctx context.Context, transactionID string) (*Record, error)
	// UpdateFields persists only the fields named in the update.
	UpdateFields(ctx context.Context, id uuid.UUID, upd Update) error
	List(ctx context.Context, f ListFilter) ([]*Record, error)
}
