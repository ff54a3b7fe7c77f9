package repository

import (
	"context"

	"github.com/spidlabs/spidpos/internal/pos/api"
	"github.com/spidlabs/spidpos/internal/pos/store"
)

// Merchants is the terminal-side merchant cache
type Merchants struct {
	store store.Store
}

// NewMerchants creates a merchants repository over the local store
func NewMerchants(s store.Store) *Merchants {
	return &Merchants{store: s}
}

// List returns the cached merchants, name-sorted
func (r *Merchants) List(ctx context.Context) ([]store.Merchant, error) {
	return r.store.Merchants(ctx)
}

// Save upserts a merchant into the cache
func (r *Merchants) Save(ctx context.Context, m *store.Merchant) error {
	return r.store.UpsertMerchant(ctx, m)
}

// UpsertFromServer refreshes the cache from backend merchant records
func (r *Merchants) UpsertFromServer(ctx context.Context, payloads []api.MerchantPayload) error {
	for _, payload := range payloads {
		m := store.Merchant{
			ID:        payload.ID,
			Name:      payload.Name,
			VATNumber: payload.VATNumber,
			Address:   payload.Address,
		}
		if err := r.store.UpsertMerchant(ctx, &m); err != nil {
			return err
		}
	}
	return nil
}
