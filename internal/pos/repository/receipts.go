package repository

import (
	"context"
	"time"

	"github.com/spidlabs/spidpos/internal/domain/enum"
	"github.com/spidlabs/spidpos/internal/pos/api"
	"github.com/spidlabs/spidpos/internal/pos/store"
)

// Receipts is the terminal-side receipt history and sync bookkeeping
type Receipts struct {
	store store.Store
}

// NewReceipts creates a receipts repository over the local store
func NewReceipts(s store.Store) *Receipts {
	return &Receipts{store: s}
}

// Filter narrows ListByMerchant results. Zero values mean "any".
type Filter struct {
	Status  enum.ReceiptStatus
	Payment enum.PaymentMethod
	From    time.Time
	To      time.Time
}

func (f *Filter) matches(r *store.Receipt) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Payment != "" && r.PaymentMethod != f.Payment {
		return false
	}
	if !f.From.IsZero() && r.IssuedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.IssuedAt.After(f.To) {
		return false
	}
	return true
}

// ListByMerchant returns the merchant's receipts newest first, filtered
// client-side
func (r *Receipts) ListByMerchant(ctx context.Context, merchantID string, filter *Filter) ([]store.Receipt, error) {
	receipts, err := r.store.ReceiptsByMerchant(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return receipts, nil
	}
	filtered := receipts[:0]
	for _, receipt := range receipts {
		if filter.matches(&receipt) {
			filtered = append(filtered, receipt)
		}
	}
	return filtered, nil
}

// GetByID returns one receipt, nil when absent
func (r *Receipts) GetByID(ctx context.Context, id string) (*store.Receipt, error) {
	return r.store.ReceiptByID(ctx, id)
}

// Create persists a freshly issued receipt. Online creations arrive with
// the server copy already applied (COMPLETED, numbered, SYNCED) and skip
// the queue; offline creations are stored PENDING_SYNC and enqueued for
// the background uploader.
func (r *Receipts) Create(ctx context.Context, receipt *store.Receipt, online bool) error {
	if online {
		receipt.Status = enum.ReceiptStatusCompleted
		receipt.SyncStatus = enum.SyncStatusSynced
		return r.store.SaveReceipt(ctx, receipt)
	}

	receipt.Status = enum.ReceiptStatusPendingSync
	receipt.SyncStatus = enum.SyncStatusPending
	receipt.SyncAttempts = 0
	receipt.CreatedOffline = true
	if err := r.store.SaveReceipt(ctx, receipt); err != nil {
		return err
	}
	return r.store.EnqueueReceiptSync(ctx, receipt.ID, time.Now().UTC())
}

// UpsertFromServer stores the backend's copy of a receipt: server
// identity wins, sync bookkeeping resets.
func (r *Receipts) UpsertFromServer(ctx context.Context, payload *api.ReceiptPayload) error {
	receipt := store.Receipt{
		ID:             payload.ClientReceiptID,
		MerchantID:     payload.MerchantID,
		Number:         payload.Number,
		IssuedAt:       payload.IssuedAt,
		Status:         enum.ReceiptStatus(payload.Status),
		PaymentMethod:  enum.PaymentMethod(payload.PaymentMethod),
		Currency:       payload.Currency,
		SubtotalCents:  payload.SubtotalCents,
		TaxCents:       payload.TaxCents,
		TotalCents:     payload.TotalCents,
		SyncStatus:     enum.SyncStatusSynced,
		SyncAttempts:   0,
		CreatedOffline: payload.CreatedOffline,
	}
	for _, item := range payload.Items {
		receipt.Items = append(receipt.Items, store.ReceiptItem{
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			VATRate:        item.VATRate,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return r.store.SaveReceipt(ctx, &receipt)
}

// MarkAsSynced finalizes a local receipt after a successful upload: the
// backend-assigned number lands, status moves to COMPLETED. An empty
// number leaves the local one untouched (the 409 conflict path).
func (r *Receipts) MarkAsSynced(ctx context.Context, id, number string) error {
	completed := enum.ReceiptStatusCompleted
	attempts := 0
	upd := &store.ReceiptSyncUpdate{
		SyncStatus:   enum.SyncStatusSynced,
		Status:       &completed,
		SyncAttempts: &attempts,
	}
	if number != "" {
		upd.Number = &number
	}
	return r.store.UpdateReceiptSyncState(ctx, id, upd)
}

// MarkSyncFailed records a failed upload attempt count on the receipt
func (r *Receipts) MarkSyncFailed(ctx context.Context, id string, attempts int, terminal bool) error {
	syncStatus := enum.SyncStatusPending
	if terminal {
		syncStatus = enum.SyncStatusFailed
	}
	return r.store.UpdateReceiptSyncState(ctx, id, &store.ReceiptSyncUpdate{
		SyncStatus:   syncStatus,
		SyncAttempts: &attempts,
	})
}

// CountPendingSync returns how many receipts still await upload; drives
// the pending badge in the UI.
func (r *Receipts) CountPendingSync(ctx context.Context, merchantID string) (int, error) {
	return r.store.CountPendingReceipts(ctx, merchantID)
}
