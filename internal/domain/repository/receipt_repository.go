package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spidlabs/spidpos/internal/domain/entity"
	"github.com/spidlabs/spidpos/internal/domain/enum"
)

// CreateOrGetResult reports the outcome of an idempotent receipt creation.
type CreateOrGetResult struct {
	Receipt *entity.Receipt
	// Idempotent is true when a receipt with the same
	// (merchant, clientReceiptId) already existed and no writes happened.
	Idempotent bool
}

// ReceiptRepository defines the interface for receipt data operations.
// All queries are scoped to the tenant carried in the context.
type ReceiptRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error)
	GetByClientReceiptID(ctx context.Context, clientReceiptID string) (*entity.Receipt, error)
	List(ctx context.Context, params *ReceiptFilterParams) ([]entity.Receipt, error)

	// CreateOrGet creates the receipt with a freshly assigned sequential
	// number, or returns the existing one for its clientReceiptId. The
	// counter increment, receipt insert, item inserts and audit event are
	// committed atomically; concurrent calls for one merchant serialize.
	CreateOrGet(ctx context.Context, receipt *entity.Receipt) (*CreateOrGetResult, error)

	// UpdateStatus moves a receipt to VOIDED or REFUNDED, writing an audit
	// event with the acting user. Returns the updated receipt, nil when
	// the receipt does not exist for this tenant.
	UpdateStatus(ctx context.Context, id uuid.UUID, status enum.ReceiptStatus, actedByUserID uuid.UUID) (*entity.Receipt, error)
}

// ReceiptFilterParams contains filtering parameters for receipt queries
type ReceiptFilterParams struct {
	From    *time.Time
	To      *time.Time
	Status  *enum.ReceiptStatus
	Payment *enum.PaymentMethod
}
