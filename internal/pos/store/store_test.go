package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spidlabs/spidpos/internal/config"
	"github.com/spidlabs/spidpos/internal/domain/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, engine string) Store {
	t.Helper()
	cfg := &config.LocalStoreConfig{
		Engine: engine,
		Path:   filepath.Join(t.TempDir(), "terminal"),
	}
	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return s
}

// runOnBothEngines runs the same conformance check against sqlite and
// bolt; the two engines must be indistinguishable to callers.
func runOnBothEngines(t *testing.T, test func(t *testing.T, s Store)) {
	for _, engine := range []string{"sqlite", "bolt"} {
		t.Run(engine, func(t *testing.T) {
			test(t, openTestStore(t, engine))
		})
	}
}

func testReceipt(id, merchantID string, issuedAt time.Time) *Receipt {
	return &Receipt{
		ID:            id,
		MerchantID:    merchantID,
		IssuedAt:      issuedAt,
		Status:        enum.ReceiptStatusPendingSync,
		PaymentMethod: enum.PaymentMethodCash,
		Currency:      "EUR",
		SubtotalCents: 430,
		TaxCents:      43,
		TotalCents:    473,
		SyncStatus:    enum.SyncStatusPending,
		Items: []ReceiptItem{
			{Name: "Espresso", Qty: 1, UnitPriceCents: 180, VATRate: 10, LineTotalCents: 180},
			{Name: "Americano", Qty: 1, UnitPriceCents: 250, VATRate: 10, LineTotalCents: 250},
		},
	}
}

func TestInitSeedsDemoData(t *testing.T) {
	runOnBothEngines(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		merchants, err := s.Merchants(ctx)
		require.NoError(t, err)
		require.Len(t, merchants, 2)
		assert.Equal(t, "Brew Haven Coffee", merchants[0].Name)

		products, err := s.ProductsByMerchant(ctx, merchants[0].ID, "")
		require.NoError(t, err)
		assert.NotEmpty(t, products)

		version, err := s.Setting(ctx, "seed.version")
		require.NoError(t, err)
		assert.Equal(t, "1", version)

		receipts, err := s.ReceiptsByMerchant(ctx, merchants[0].ID)
		require.NoError(t, err)
		assert.Len(t, receipts, 2)
	})
}

func TestInitIsIdempotent(t *testing.T) {
	runOnBothEngines(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		merchants, err := s.Merchants(ctx)
		require.NoError(t, err)

		// A seeded demo receipt the user got rid of must stay gone.
		first, err := s.ReceiptsByMerchant(ctx, merchants[0].ID)
		require.NoError(t, err)
		voided := enum.ReceiptStatusVoided
		require.NoError(t, s.UpdateReceiptSyncState(ctx, first[0].ID, &ReceiptSyncUpdate{
			SyncStatus: enum.SyncStatusSynced,
			Status:     &voided,
		}))

		require.NoError(t, s.Init(ctx))
		require.NoError(t, s.Init(ctx))

		after, err := s.ReceiptsByMerchant(ctx, merchants[0].ID)
		require.NoError(t, err)
		assert.Len(t, after, len(first))
		assert.Equal(t, enum.ReceiptStatusVoided, after[0].Status)
	})
}

func TestSeedGatedByVersionAcrossReopen(t *testing.T) {
	// Re-opening the same sqlite file must not re-seed demo receipts.
	dir := t.TempDir()
	cfg := &config.LocalStoreConfig{Engine: "sqlite", Path: filepath.Join(dir, "terminal")}
	ctx := context.Background()

	s, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx))

	merchants, err := s.Merchants(ctx)
	require.NoError(t, err)
	merchantID := merchants[0].ID

	voided := enum.ReceiptStatusVoided
	receipts, err := s.ReceiptsByMerchant(ctx, merchantID)
	require.NoError(t, err)
	require.NoError(t, s.UpdateReceiptSyncState(ctx, receipts[0].ID, &ReceiptSyncUpdate{
		SyncStatus: enum.SyncStatusSynced,
		Status:     &voided,
	}))
	require.NoError(t, s.Close())

	reopened, err := Open(cfg)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Init(ctx))

	after, err := reopened.ReceiptsByMerchant(ctx, merchantID)
	require.NoError(t, err)
	assert.Equal(t, enum.ReceiptStatusVoided, after[0].Status)
}

func TestUpsertMerchantAndProducts(t *testing.T) {
	runOnBothEngines(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		m := &Merchant{ID: "m-1", Name: "Zebra Bar", VATNumber: "IT000", Address: "Nowhere 1"}
		require.NoError(t, s.UpsertMerchant(ctx, m))
		m.Name = "Alpha Bar"
		require.NoError(t, s.UpsertMerchant(ctx, m))

		merchants, err := s.Merchants(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Alpha Bar", merchants[0].Name)

		now := time.Now().UTC().Truncate(time.Millisecond)
		products := []Product{
			{ID: "p-2", MerchantID: "m-1", Name: "Beta", PriceCents: 100, VATRate: 10, IsActive: true, UpdatedAt: now},
			{ID: "p-1", MerchantID: "m-1", Name: "Alpha", PriceCents: 200, VATRate: 22, IsActive: true, UpdatedAt: now},
			{ID: "p-3", MerchantID: "m-1", Name: "Gamma", PriceCents: 300, VATRate: 22, IsActive: false, UpdatedAt: now},
		}
		for i := range products {
			require.NoError(t, s.UpsertProduct(ctx, &products[i]))
		}

		listed, err := s.ProductsByMerchant(ctx, "m-1", "")
		require.NoError(t, err)
		require.Len(t, listed, 2, "inactive products are hidden")
		assert.Equal(t, "Alpha", listed[0].Name)
		assert.Equal(t, "Beta", listed[1].Name)

		found, err := s.ProductsByMerchant(ctx, "m-1", "alp")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "p-1", found[0].ID)

		got, err := s.ProductByID(ctx, "p-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(200), got.PriceCents)

		missing, err := s.ProductByID(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestSaveReceiptReplacesItems(t *testing.T) {
	runOnBothEngines(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		issuedAt := time.Now().UTC().Truncate(time.Millisecond)

		r := testReceipt("r-1", "m-1", issuedAt)
		require.NoError(t, s.SaveReceipt(ctx, r))

		r.Items = []ReceiptItem{
			{Name: "Cappuccino", Qty: 2, UnitPriceCents: 320, VATRate: 10, LineTotalCents: 640},
		}
		require.NoError(t, s.SaveReceipt(ctx, r))

		got, err := s.ReceiptByID(ctx, "r-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Len(t, got.Items, 1)
		assert.Equal(t, "Cappuccino", got.Items[0].Name)
		assert.Equal(t, issuedAt, got.IssuedAt)
	})
}

func TestReceiptsByMerchantOrderAndItems(t *testing.T) {
	runOnBothEngines(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Now().UTC().Truncate(time.Millisecond)

		older := testReceipt("r-old", "m-9", base.Add(-time.Hour))
		newer := testReceipt("r-new", "m-9", base)
		require.NoError(t, s.SaveReceipt(ctx, older))
		require.NoError(t, s.SaveReceipt(ctx, newer))

		receipts, err := s.ReceiptsByMerchant(ctx, "m-9")
		require.NoError(t, err)
		require.Len(t, receipts, 2)
		assert.Equal(t, "r-new", receipts[0].ID)
		assert.Equal(t, "r-old", receipts[1].ID)
		// Items come back in insertion order.
		require.Len(t, receipts[0].Items, 2)
		assert.Equal(t, "Espresso", receipts[0].Items[0].Name)
		assert.Equal(t, "Americano", receipts[0].Items[1].Name)
	})
}

func TestUpdateReceiptSyncState(t *testing.T) {
	runOnBothEngines(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		r := testReceipt("r-sync", "m-1", time.Now().UTC())
		require.NoError(t, s.SaveReceipt(ctx, r))

		count, err := s.CountPendingReceipts(ctx, "m-1")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		completed := enum.ReceiptStatusCompleted
		number := "MRC-000007"
		attempts := 0
		require.NoError(t, s.UpdateReceiptSyncState(ctx, "r-sync", &ReceiptSyncUpdate{
			SyncStatus:   enum.SyncStatusSynced,
			Status:       &completed,
			Number:       &number,
			SyncAttempts: &attempts,
		}))

		got, err := s.ReceiptByID(ctx, "r-sync")
		require.NoError(t, err)
		assert.Equal(t, enum.SyncStatusSynced, got.SyncStatus)
		assert.Equal(t, enum.ReceiptStatusCompleted, got.Status)
		assert.Equal(t, "MRC-000007", got.Number)

		count, err = s.CountPendingReceipts(ctx, "m-1")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestUpdateReceiptSyncStateKeepsNumberWhenNil(t *testing.T) {
	runOnBothEngines(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		r := testReceipt("r-keep", "m-1", time.Now().UTC())
		r.Number = "LOCAL-1"
		require.NoError(t, s.SaveReceipt(ctx, r))

		require.NoError(t, s.UpdateReceiptSyncState(ctx, "r-keep", &ReceiptSyncUpdate{
			SyncStatus: enum.SyncStatusSynced,
		}))

		got, err := s.ReceiptByID(ctx, "r-keep")
		require.NoError(t, err)
		assert.Equal(t, "LOCAL-1", got.Number)
	})
}

func TestSyncQueueDueOrdering(t *testing.T) {
	runOnBothEngines(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := time.Now().UTC()

		require.NoError(t, s.EnqueueReceiptSync(ctx, "r-first", now.Add(-time.Minute)))
		require.NoError(t, s.EnqueueReceiptSync(ctx, "r-second", now.Add(-time.Minute)))
		require.NoError(t, s.EnqueueReceiptSync(ctx, "r-future", now.Add(time.Hour)))

		due, err := s.DueSyncQueueItems(ctx, now)
		require.NoError(t, err)
		require.Len(t, due, 2, "future items are not due")
		assert.Equal(t, "r-first", due[0].ReceiptID)
		assert.Equal(t, "r-second", due[1].ReceiptID)
	})
}

func TestSyncQueueUpdateAndDelete(t *testing.T) {
	runOnBothEngines(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := time.Now().UTC()

		require.NoError(t, s.EnqueueReceiptSync(ctx, "r-x", now.Add(-time.Second)))
		due, err := s.DueSyncQueueItems(ctx, now)
		require.NoError(t, err)
		require.Len(t, due, 1)

		item := due[0]
		item.Attempts = 2
		item.Status = enum.QueueStatusProcessing
		item.LastError = "backend down"
		item.NextAttemptAt = now.Add(-time.Millisecond)
		require.NoError(t, s.UpdateSyncQueueItem(ctx, &item))

		// PROCESSING items stay due (crash recovery).
		due, err = s.DueSyncQueueItems(ctx, now)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, enum.QueueStatusProcessing, due[0].Status)
		assert.Equal(t, 2, due[0].Attempts)
		assert.Equal(t, "backend down", due[0].LastError)

		// FAILED items disappear from the due set but remain queryable
		// for a manual retry.
		item.Status = enum.QueueStatusFailed
		require.NoError(t, s.UpdateSyncQueueItem(ctx, &item))

		due, err = s.DueSyncQueueItems(ctx, now)
		require.NoError(t, err)
		assert.Empty(t, due)

		failed, err := s.SyncQueueItemByReceipt(ctx, "r-x")
		require.NoError(t, err)
		require.NotNil(t, failed)
		assert.Equal(t, enum.QueueStatusFailed, failed.Status)

		missing, err := s.SyncQueueItemByReceipt(ctx, "r-none")
		require.NoError(t, err)
		assert.Nil(t, missing)

		require.NoError(t, s.DeleteSyncQueueItem(ctx, item.ID))
		gone, err := s.SyncQueueItemByReceipt(ctx, "r-x")
		require.NoError(t, err)
		assert.Nil(t, gone)
	})
}

func TestSettings(t *testing.T) {
	runOnBothEngines(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		missing, err := s.Setting(ctx, "no-such-key")
		require.NoError(t, err)
		assert.Equal(t, "", missing)

		require.NoError(t, s.SetSetting(ctx, "display.language", "it"))
		require.NoError(t, s.SetSetting(ctx, "display.language", "en"))

		value, err := s.Setting(ctx, "display.language")
		require.NoError(t, err)
		assert.Equal(t, "en", value)
	})
}
