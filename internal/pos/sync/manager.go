package sync

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spidlabs/spidpos/internal/config"
	"github.com/spidlabs/spidpos/internal/domain/enum"
	"github.com/spidlabs/spidpos/internal/pos/api"
	"github.com/spidlabs/spidpos/internal/pos/repository"
	"github.com/spidlabs/spidpos/internal/pos/store"
)

// Connectivity reports backend reachability and signals when it comes
// back after an outage.
type Connectivity interface {
	Online() bool
	// Restored delivers a value whenever connectivity returns. A nil
	// channel is allowed and simply disables the immediate-drain signal.
	Restored() <-chan struct{}
}

// Manager drains the sync queue in the background: a fixed-interval
// ticker plus an immediate pass on start and whenever connectivity is
// restored. One drain runs at a time; a tick that lands mid-drain is
// dropped, not queued.
type Manager struct {
	store        store.Store
	receipts     *repository.Receipts
	client       *api.Client
	connectivity Connectivity

	interval    time.Duration
	baseBackoff time.Duration
	maxAttempts int

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a sync manager from the sync section of the config
func NewManager(s store.Store, receipts *repository.Receipts, client *api.Client, connectivity Connectivity, cfg *config.SyncConfig) *Manager {
	return &Manager{
		store:        s,
		receipts:     receipts,
		client:       client,
		connectivity: connectivity,
		interval:     cfg.Interval,
		baseBackoff:  cfg.BaseBackoff,
		maxAttempts:  cfg.MaxAttempts,
	}
}

// Start launches the background loop. Calling Start twice is a no-op
// until Stop.
func (m *Manager) Start(ctx context.Context) {
	if m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.loop(ctx)
}

// Stop halts the loop and waits for an in-flight drain to finish
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.cancel = nil
	m.wg.Wait()
}

func (m *Manager) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var restored <-chan struct{}
	if m.connectivity != nil {
		restored = m.connectivity.Restored()
	}

	// Immediate pass on start picks up anything queued while the
	// terminal was off.
	m.Drain(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Drain(ctx)
		case <-restored:
			m.Drain(ctx)
		}
	}
}

// Drain processes every due queue item sequentially, oldest first. Item
// failures are recorded and never abort the pass; a second Drain while
// one is running returns immediately.
func (m *Manager) Drain(ctx context.Context) {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	defer m.running.Store(false)

	if m.connectivity != nil && !m.connectivity.Online() {
		return
	}

	items, err := m.store.DueSyncQueueItems(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("sync: loading due queue items: %v", err)
		return
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		if err := m.processItem(ctx, &item); err != nil {
			log.Printf("sync: receipt %s attempt failed: %v", item.ReceiptID, err)
		}
	}
}

func (m *Manager) processItem(ctx context.Context, item *store.QueueItem) error {
	// PROCESSING marks the upload in flight; the due query still covers
	// it, so an entry stranded by a crash is retried on the next pass.
	item.Status = enum.QueueStatusProcessing
	if err := m.store.UpdateSyncQueueItem(ctx, item); err != nil {
		return err
	}

	receipt, err := m.store.ReceiptByID(ctx, item.ReceiptID)
	if err != nil {
		return err
	}
	if receipt == nil {
		// Receipt vanished locally; the queue entry is garbage.
		return m.store.DeleteSyncQueueItem(ctx, item.ID)
	}

	payload := &api.CreateReceiptPayload{
		MerchantID:      receipt.MerchantID,
		ClientReceiptID: receipt.ID,
		IssuedAt:        receipt.IssuedAt,
		PaymentMethod:   string(receipt.PaymentMethod),
		Currency:        receipt.Currency,
		SubtotalCents:   receipt.SubtotalCents,
		TaxCents:        receipt.TaxCents,
		TotalCents:      receipt.TotalCents,
		CreatedOffline:  true,
	}
	for _, line := range receipt.Items {
		payload.Items = append(payload.Items, api.ReceiptItemPayload{
			Name:           line.Name,
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
			VATRate:        line.VATRate,
			LineTotalCents: line.LineTotalCents,
		})
	}

	server, _, err := m.client.CreateReceipt(ctx, payload)
	switch {
	case err == nil:
		if markErr := m.receipts.MarkAsSynced(ctx, receipt.ID, server.Number); markErr != nil {
			return markErr
		}
		return m.store.DeleteSyncQueueItem(ctx, item.ID)

	case api.IsConflict(err):
		// The backend already holds this receipt under another guise.
		// Treat as success but never overwrite the local number.
		log.Printf("sync: receipt %s conflict on backend, keeping local copy", receipt.ID)
		if markErr := m.receipts.MarkAsSynced(ctx, receipt.ID, ""); markErr != nil {
			return markErr
		}
		return m.store.DeleteSyncQueueItem(ctx, item.ID)

	default:
		return m.recordFailure(ctx, item, receipt, err)
	}
}

// RetryReceipt re-arms a FAILED queue entry and drains immediately. The
// background loop never touches FAILED entries on its own; this is the
// operator-triggered path.
func (m *Manager) RetryReceipt(ctx context.Context, receiptID string) error {
	item, err := m.store.SyncQueueItemByReceipt(ctx, receiptID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("no sync queue entry for receipt %s", receiptID)
	}

	item.Status = enum.QueueStatusPending
	item.NextAttemptAt = time.Now().UTC()
	if err := m.store.UpdateSyncQueueItem(ctx, item); err != nil {
		return err
	}
	m.Drain(ctx)
	return nil
}

func (m *Manager) recordFailure(ctx context.Context, item *store.QueueItem, receipt *store.Receipt, cause error) error {
	item.Attempts++
	item.LastError = cause.Error()
	item.NextAttemptAt = time.Now().UTC().Add(Backoff(m.baseBackoff, item.Attempts))

	terminal := item.Attempts >= m.maxAttempts
	if terminal {
		item.Status = enum.QueueStatusFailed
	} else {
		item.Status = enum.QueueStatusPending
	}

	if err := m.store.UpdateSyncQueueItem(ctx, item); err != nil {
		return err
	}
	return m.receipts.MarkSyncFailed(ctx, receipt.ID, item.Attempts, terminal)
}

// Backoff returns the delay before the next attempt: base doubled per
// attempt, capped at 2^6.
func Backoff(base time.Duration, attempts int) time.Duration {
	exp := attempts
	if exp > 6 {
		exp = 6
	}
	return base * time.Duration(1<<exp)
}
