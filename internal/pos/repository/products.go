package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spidlabs/spidpos/internal/pos/api"
	"github.com/spidlabs/spidpos/internal/pos/store"
	"github.com/spidlabs/spidpos/pkg/utils"
)

// Products is the terminal-side product catalog
type Products struct {
	store store.Store
}

// NewProducts creates a products repository over the local store
func NewProducts(s store.Store) *Products {
	return &Products{store: s}
}

// List returns the merchant's active products, optionally filtered by a
// name substring
func (r *Products) List(ctx context.Context, merchantID, search string) ([]store.Product, error) {
	return r.store.ProductsByMerchant(ctx, merchantID, search)
}

// Get returns one product, nil when absent
func (r *Products) Get(ctx context.Context, id string) (*store.Product, error) {
	return r.store.ProductByID(ctx, id)
}

// Save stores a locally created product, minting an ID and trimming
// user-entered fields
func (r *Products) Save(ctx context.Context, p *store.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.SKU = strings.TrimSpace(p.SKU)
	if p.Name == "" {
		return errors.New("product name is required")
	}
	if p.ID == "" {
		p.ID = utils.GenerateUUID()
	}
	p.UpdatedAt = time.Now().UTC()
	return r.store.UpsertProduct(ctx, p)
}

// UpsertFromServer merges backend catalog entries into the cache; the
// server copy wins wholesale.
func (r *Products) UpsertFromServer(ctx context.Context, payloads []api.ProductPayload) error {
	for _, payload := range payloads {
		p := store.Product{
			ID:         payload.ID,
			MerchantID: payload.MerchantID,
			Name:       payload.Name,
			PriceCents: payload.PriceCents,
			VATRate:    payload.VATRate,
			Category:   payload.Category,
			SKU:        payload.SKU,
			IsActive:   payload.IsActive,
			UpdatedAt:  payload.UpdatedAt,
		}
		if err := r.store.UpsertProduct(ctx, &p); err != nil {
			return err
		}
	}
	return nil
}
