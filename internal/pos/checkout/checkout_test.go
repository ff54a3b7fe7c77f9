package checkout

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

type staticConnectivity bool

func (c staticConnectivity) Online() bool { return bool(c) }

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

func cartWith(items ...store.Product) *Cart {
	cart := NewCart()
	for i := range items {
		cart.Add(&items[i])
	}
	return cart
}

func TestComputeTotals(t *testing.T) {
	cart := NewCart()
	cart.Add(&store.Product{ID: "p1", Name: "Espresso", PriceCents: 180, VATRate: 10})
	cart.Add(&store.Product{ID: "p2", Name: "Americano", PriceCents: 250, VATRate: 10})

	totals := ComputeTotals(cart.Items())
	assert.Equal(t, int64(430), totals.SubtotalCents)
	assert.Equal(t, int64(43), totals.TaxCents)
	assert.Equal(t, int64(473), totals.TotalCents)
	assert.Equal(t, int64(43), totals.TaxByRate[10])
}

func TestComputeTotalsGroupsByRate(t *testing.T) {
	items := []CartItem{
		{ProductID: "a", Name: "Wine", UnitPriceCents: 550, VATRate: 22, Qty: 1},
		{ProductID: "b", Name: "Espresso", UnitPriceCents: 180, VATRate: 10, Qty: 2},
	}

	totals := ComputeTotals(items)
	assert.Equal(t, int64(910), totals.SubtotalCents)
	// 22% of 550 = 121, 10% of 360 = 36
	assert.Equal(t, int64(121), totals.TaxByRate[22])
	assert.Equal(t, int64(36), totals.TaxByRate[10])
	assert.Equal(t, int64(157), totals.TaxCents)
	assert.Equal(t, int64(1067), totals.TotalCents)
}

func TestCartQuantityLifecycle(t *testing.T) {
	cart := NewCart()
	p := store.Product{ID: "p1", Name: "Espresso", PriceCents: 180, VATRate: 10}

	cart.Add(&p)
	cart.Add(&p)
	require.Len(t, cart.Items(), 1)
	assert.Equal(t, 2, cart.Items()[0].Qty)

	cart.Decrease("p1")
	assert.Equal(t, 1, cart.Items()[0].Qty)

	cart.Decrease("p1")
	assert.True(t, cart.Empty(), "line is removed when qty reaches zero")

	cart.Add(&p)
	cart.Remove("p1")
	assert.True(t, cart.Empty())
}

func TestIssueReceiptRequiresMerchantAndItems(t *testing.T) {
	s := newTestStore(t)
	receipts := repository.NewReceipts(s)
	client := api.NewClient("http://127.0.0.1:1", time.Second, api.StaticToken(""))

	noMerchant := New(receipts, client, staticConnectivity(false), func() string { return "" }, "EUR")
	_, err := noMerchant.IssueReceipt(context.Background(), cartWith(store.Product{ID: "p", Name: "X", PriceCents: 100}), enum.PaymentMethodCash)
	assert.ErrorIs(t, err, ErrNoMerchantSelected)

	checkout := New(receipts, client, staticConnectivity(false), func() string { return "m-1" }, "EUR")
	_, err = checkout.IssueReceipt(context.Background(), NewCart(), enum.PaymentMethodCash)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestIssueReceiptOffline(t *testing.T) {
	s := newTestStore(t)
	receipts := repository.NewReceipts(s)
	client := api.NewClient("http://127.0.0.1:1", time.Second, api.StaticToken(""))
	checkout := New(receipts, client, staticConnectivity(false), func() string { return "m-1" }, "EUR")

	cart := cartWith(
		store.Product{ID: "p1", Name: "Espresso", PriceCents: 180, VATRate: 10},
		store.Product{ID: "p2", Name: "Americano", PriceCents: 250, VATRate: 10},
	)

	receipt, err := checkout.IssueReceipt(context.Background(), cart, enum.PaymentMethodCash)
	require.NoError(t, err)
	require.NotNil(t, receipt)

	assert.NotEmpty(t, receipt.ID, "clientReceiptId is minted locally")
	assert.Empty(t, receipt.Number, "no number until the backend assigns one")
	assert.Equal(t, enum.ReceiptStatusPendingSync, receipt.Status)
	assert.Equal(t, enum.SyncStatusPending, receipt.SyncStatus)
	assert.True(t, receipt.CreatedOffline)
	assert.Equal(t, int64(473), receipt.TotalCents)
	assert.True(t, cart.Empty(), "cart clears once the receipt is durable")

	stored, err := s.ReceiptByID(context.Background(), receipt.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	due, err := s.DueSyncQueueItems(context.Background(), time.Now().UTC().Add(time.Second))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, receipt.ID, due[0].ReceiptID)

	pending, err := receipts.CountPendingSync(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestIssueReceiptOnline(t *testing.T) {
	s := newTestStore(t)
	receipts := repository.NewReceipts(s)

	var gotClientReceiptID string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/receipts", r.URL.Path)
		require.Equal(t, "m-1", r.Header.Get("X-Merchant-Id"))

		var payload api.CreateReceiptPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotClientReceiptID = payload.ClientReceiptID

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"item": api.ReceiptPayload{
				ID:              "srv-1",
				MerchantID:      payload.MerchantID,
				ClientReceiptID: payload.ClientReceiptID,
				Number:          "BH-000042",
				IssuedAt:        payload.IssuedAt,
				Status:          "COMPLETED",
				PaymentMethod:   payload.PaymentMethod,
				Currency:        payload.Currency,
				SubtotalCents:   payload.SubtotalCents,
				TaxCents:        payload.TaxCents,
				TotalCents:      payload.TotalCents,
				Items:           payload.Items,
			},
			"idempotent": false,
		})
	}))
	defer backend.Close()

	client := api.NewClient(backend.URL, time.Second, api.StaticToken("token"))
	client.MerchantID = func() string { return "m-1" }
	checkout := New(receipts, client, staticConnectivity(true), func() string { return "m-1" }, "EUR")

	cart := cartWith(store.Product{ID: "p1", Name: "Espresso", PriceCents: 180, VATRate: 10})
	receipt, err := checkout.IssueReceipt(context.Background(), cart, enum.PaymentMethodCard)
	require.NoError(t, err)

	assert.Equal(t, gotClientReceiptID, receipt.ID)
	assert.Equal(t, "BH-000042", receipt.Number)
	assert.Equal(t, enum.ReceiptStatusCompleted, receipt.Status)
	assert.Equal(t, enum.SyncStatusSynced, receipt.SyncStatus)
	assert.True(t, cart.Empty())

	due, err := s.DueSyncQueueItems(context.Background(), time.Now().UTC().Add(time.Second))
	require.NoError(t, err)
	assert.Empty(t, due, "online sales never enter the queue")
}

func TestIssueReceiptFallsBackWhenBackendErrors(t *testing.T) {
	s := newTestStore(t)
	receipts := repository.NewReceipts(s)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error"})
	}))
	defer backend.Close()

	client := api.NewClient(backend.URL, time.Second, api.StaticToken("token"))
	checkout := New(receipts, client, staticConnectivity(true), func() string { return "m-1" }, "EUR")

	cart := cartWith(store.Product{ID: "p1", Name: "Espresso", PriceCents: 180, VATRate: 10})
	receipt, err := checkout.IssueReceipt(context.Background(), cart, enum.PaymentMethodCash)
	require.NoError(t, err)

	assert.Equal(t, enum.ReceiptStatusPendingSync, receipt.Status)
	assert.True(t, receipt.CreatedOffline)

	due, err := s.DueSyncQueueItems(context.Background(), time.Now().UTC().Add(time.Second))
	require.NoError(t, err)
	require.Len(t, due, 1)
}
