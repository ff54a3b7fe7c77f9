package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/spidlabs/spidpos/internal/config"
	"github.com/spidlabs/spidpos/internal/domain/enum"
	"github.com/spidlabs/spidpos/internal/pos/api"
	"github.com/spidlabs/spidpos/internal/pos/repository"
	"github.com/spidlabs/spidpos/internal/pos/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alwaysOnline struct{}

func (alwaysOnline) Online() bool              { return true }
func (alwaysOnline) Restored() <-chan struct{} { return nil }

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.Open(&config.LocalStoreConfig{
		Engine: "sqlite",
		Path:   filepath.Join(t.TempDir(), "terminal"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return s
}

func queueOfflineReceipt(t *testing.T, s store.Store, receipts *repository.Receipts, id string) {
	t.Helper()
	receipt := &store.Receipt{
		ID:            id,
		MerchantID:    "m-1",
		IssuedAt:      time.Now().UTC(),
		PaymentMethod: enum.PaymentMethodCash,
		Currency:      "EUR",
		SubtotalCents: 180,
		TaxCents:      18,
		TotalCents:    198,
		Items: []store.ReceiptItem{
			{Name: "Espresso", Qty: 1, UnitPriceCents: 180, VATRate: 10, LineTotalCents: 180},
		},
	}
	require.NoError(t, receipts.Create(context.Background(), receipt, false))
}

func newManager(s store.Store, receipts *repository.Receipts, client *api.Client, maxAttempts int) *Manager {
	return NewManager(s, receipts, client, alwaysOnline{}, &config.SyncConfig{
		Interval:    time.Hour,
		BaseBackoff: 5 * time.Second,
		MaxAttempts: maxAttempts,
	})
}

func TestBackoff(t *testing.T) {
	base := 5 * time.Second
	assert.Equal(t, 10*time.Second, Backoff(base, 1))
	assert.Equal(t, 20*time.Second, Backoff(base, 2))
	assert.Equal(t, 160*time.Second, Backoff(base, 5))
	// Exponent caps at 6.
	assert.Equal(t, 320*time.Second, Backoff(base, 6))
	assert.Equal(t, 320*time.Second, Backoff(base, 12))
}

func TestDrainUploadsOldestFirst(t *testing.T) {
	s := newTestStore(t)
	receipts := repository.NewReceipts(s)

	var uploads []string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload api.CreateReceiptPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		uploads = append(uploads, payload.ClientReceiptID)
		assert.True(t, payload.CreatedOffline)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"item": api.ReceiptPayload{
				ClientReceiptID: payload.ClientReceiptID,
				MerchantID:      payload.MerchantID,
				Number:          "BH-00000" + payload.ClientReceiptID[len(payload.ClientReceiptID)-1:],
				Status:          "COMPLETED",
			},
			"idempotent": false,
		})
	}))
	defer backend.Close()

	client := api.NewClient(backend.URL, time.Second, api.StaticToken("token"))
	queueOfflineReceipt(t, s, receipts, "r-1")
	queueOfflineReceipt(t, s, receipts, "r-2")

	manager := newManager(s, receipts, client, 5)
	manager.Drain(context.Background())

	assert.Equal(t, []string{"r-1", "r-2"}, uploads)

	due, err := s.DueSyncQueueItems(context.Background(), time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)

	synced, err := s.ReceiptByID(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, enum.SyncStatusSynced, synced.SyncStatus)
	assert.Equal(t, enum.ReceiptStatusCompleted, synced.Status)
	assert.Equal(t, "BH-000001", synced.Number)
}

func TestDrainRecordsFailureWithBackoff(t *testing.T) {
	s := newTestStore(t)
	receipts := repository.NewReceipts(s)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error"})
	}))
	defer backend.Close()

	client := api.NewClient(backend.URL, time.Second, api.StaticToken("token"))
	queueOfflineReceipt(t, s, receipts, "r-fail")

	manager := newManager(s, receipts, client, 5)
	before := time.Now().UTC()
	manager.Drain(context.Background())

	due, err := s.DueSyncQueueItems(context.Background(), before.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	item := due[0]
	assert.Equal(t, 1, item.Attempts)
	assert.Equal(t, enum.QueueStatusPending, item.Status)
	assert.NotEmpty(t, item.LastError)
	// First retry waits base*2^1 from the failure instant.
	assert.WithinDuration(t, before.Add(10*time.Second), item.NextAttemptAt, 2*time.Second)

	receipt, err := s.ReceiptByID(context.Background(), "r-fail")
	require.NoError(t, err)
	assert.Equal(t, 1, receipt.SyncAttempts)
	assert.Equal(t, enum.SyncStatusPending, receipt.SyncStatus)

	// Not due yet: an immediate second drain must skip it.
	manager.Drain(context.Background())
	due, err = s.DueSyncQueueItems(context.Background(), before.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].Attempts)
}

func TestDrainMarksFailedAtMaxAttempts(t *testing.T) {
	s := newTestStore(t)
	receipts := repository.NewReceipts(s)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error"})
	}))
	defer backend.Close()

	client := api.NewClient(backend.URL, time.Second, api.StaticToken("token"))
	queueOfflineReceipt(t, s, receipts, "r-dead")

	manager := newManager(s, receipts, client, 2)

	// Force the item due again after each failed pass.
	for i := 0; i < 2; i++ {
		manager.Drain(context.Background())
		item, err := s.SyncQueueItemByReceipt(context.Background(), "r-dead")
		require.NoError(t, err)
		require.NotNil(t, item)
		item.NextAttemptAt = time.Now().UTC().Add(-time.Second)
		require.NoError(t, s.UpdateSyncQueueItem(context.Background(), item))
	}

	item, err := s.SyncQueueItemByReceipt(context.Background(), "r-dead")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, enum.QueueStatusFailed, item.Status)
	assert.Equal(t, 2, item.Attempts)

	// FAILED entries wait for a manual retry; the loop skips them.
	due, err := s.DueSyncQueueItems(context.Background(), time.Now().UTC().Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)

	receipt, err := s.ReceiptByID(context.Background(), "r-dead")
	require.NoError(t, err)
	assert.Equal(t, enum.SyncStatusFailed, receipt.SyncStatus)
}

func TestRetryReceiptReArmsFailedEntry(t *testing.T) {
	s := newTestStore(t)
	receipts := repository.NewReceipts(s)

	var healthy bool
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !healthy {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error"})
			return
		}
		var payload api.CreateReceiptPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"item": api.ReceiptPayload{
				ClientReceiptID: payload.ClientReceiptID,
				MerchantID:      payload.MerchantID,
				Number:          "BH-000007",
				Status:          "COMPLETED",
			},
			"idempotent": false,
		})
	}))
	defer backend.Close()

	client := api.NewClient(backend.URL, time.Second, api.StaticToken("token"))
	queueOfflineReceipt(t, s, receipts, "r-retry")

	manager := newManager(s, receipts, client, 1)
	manager.Drain(context.Background())

	item, err := s.SyncQueueItemByReceipt(context.Background(), "r-retry")
	require.NoError(t, err)
	require.NotNil(t, item)
	require.Equal(t, enum.QueueStatusFailed, item.Status)

	healthy = true
	require.NoError(t, manager.RetryReceipt(context.Background(), "r-retry"))

	item, err = s.SyncQueueItemByReceipt(context.Background(), "r-retry")
	require.NoError(t, err)
	assert.Nil(t, item)

	receipt, err := s.ReceiptByID(context.Background(), "r-retry")
	require.NoError(t, err)
	assert.Equal(t, enum.SyncStatusSynced, receipt.SyncStatus)
	assert.Equal(t, "BH-000007", receipt.Number)
}

func TestDrainTreatsConflictAsSuccess(t *testing.T) {
	s := newTestStore(t)
	receipts := repository.NewReceipts(s)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "Already processed"})
	}))
	defer backend.Close()

	client := api.NewClient(backend.URL, time.Second, api.StaticToken("token"))
	queueOfflineReceipt(t, s, receipts, "r-conflict")

	manager := newManager(s, receipts, client, 5)
	manager.Drain(context.Background())

	due, err := s.DueSyncQueueItems(context.Background(), time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due, "conflict resolves the queue entry")

	receipt, err := s.ReceiptByID(context.Background(), "r-conflict")
	require.NoError(t, err)
	assert.Equal(t, enum.SyncStatusSynced, receipt.SyncStatus)
	assert.Equal(t, enum.ReceiptStatusCompleted, receipt.Status)
	assert.Empty(t, receipt.Number, "conflict never overwrites the local number")
}

func TestDrainOneBadItemDoesNotBlockQueue(t *testing.T) {
	s := newTestStore(t)
	receipts := repository.NewReceipts(s)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload api.CreateReceiptPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("Content-Type", "application/json")

		if payload.ClientReceiptID == "r-bad" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "Validation failed"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"item": api.ReceiptPayload{
				ClientReceiptID: payload.ClientReceiptID,
				MerchantID:      payload.MerchantID,
				Number:          "BH-000009",
				Status:          "COMPLETED",
			},
			"idempotent": false,
		})
	}))
	defer backend.Close()

	client := api.NewClient(backend.URL, time.Second, api.StaticToken("token"))
	queueOfflineReceipt(t, s, receipts, "r-bad")
	queueOfflineReceipt(t, s, receipts, "r-good")

	manager := newManager(s, receipts, client, 5)
	manager.Drain(context.Background())

	good, err := s.ReceiptByID(context.Background(), "r-good")
	require.NoError(t, err)
	assert.Equal(t, enum.SyncStatusSynced, good.SyncStatus)

	bad, err := s.ReceiptByID(context.Background(), "r-bad")
	require.NoError(t, err)
	assert.Equal(t, 1, bad.SyncAttempts)
}

func TestDrainDropsQueueEntryForMissingReceipt(t *testing.T) {
	s := newTestStore(t)
	receipts := repository.NewReceipts(s)

	require.NoError(t, s.EnqueueReceiptSync(context.Background(), "ghost", time.Now().UTC().Add(-time.Second)))

	client := api.NewClient("http://127.0.0.1:1", time.Second, api.StaticToken("token"))
	manager := newManager(s, receipts, client, 5)
	manager.Drain(context.Background())

	due, err := s.DueSyncQueueItems(context.Background(), time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}
