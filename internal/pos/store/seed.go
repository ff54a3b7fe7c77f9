package store

import (
	"context"
	"time"

	"github.com/spidlabs/spidpos/internal/domain/enum"
	"github.com/spidlabs/spidpos/internal/infrastructure/database"
)

const (
	seedVersionKey = "seed.version"
	seedVersion    = "1"
)

// seeder is the raw write surface an engine exposes for seeding. The raw
// methods skip the init guard: seed runs inside Init itself.
type seeder interface {
	upsertMerchantRaw(ctx context.Context, m *Merchant) error
	upsertProductRaw(ctx context.Context, p *Product) error
	saveReceiptRaw(ctx context.Context, r *Receipt) error
	settingRaw(ctx context.Context, key string) (string, error)
	setSettingRaw(ctx context.Context, key, value string) error
}

// seed populates demo data. Merchants and products are upserted on every
// init so catalog fixes reach existing terminals; demo receipts and
// settings are written exactly once, gated by the seed.version setting,
// so they never resurrect receipts a user voided or synced away.
func seed(ctx context.Context, s seeder) error {
	for _, merchant := range database.DemoMerchants() {
		m := Merchant{
			ID:        merchant.ID.String(),
			Name:      merchant.Name,
			VATNumber: merchant.VATNumber,
			Address:   merchant.Address,
		}
		if err := s.upsertMerchantRaw(ctx, &m); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	for _, product := range database.DemoProducts() {
		p := Product{
			ID:         product.ID.String(),
			MerchantID: product.MerchantID.String(),
			Name:       product.Name,
			PriceCents: product.PriceCents,
			VATRate:    product.VATRate,
			Category:   product.Category,
			SKU:        product.SKU,
			IsActive:   product.IsActive,
			UpdatedAt:  now,
		}
		if err := s.upsertProductRaw(ctx, &p); err != nil {
			return err
		}
	}

	version, err := s.settingRaw(ctx, seedVersionKey)
	if err != nil {
		return err
	}
	if version == seedVersion {
		return nil
	}

	for _, receipt := range demoReceipts(now) {
		r := receipt
		if err := s.saveReceiptRaw(ctx, &r); err != nil {
			return err
		}
	}

	if err := s.setSettingRaw(ctx, "display.currency", "EUR"); err != nil {
		return err
	}

	return s.setSettingRaw(ctx, seedVersionKey, seedVersion)
}

// demoReceipts returns a small already-synced sales history so a fresh
// terminal shows a populated receipt list.
func demoReceipts(now time.Time) []Receipt {
	merchants := database.DemoMerchants()
	brewHaven := merchants[0].ID.String()

	return []Receipt{
		{
			ID:            "seed-bh-0001",
			MerchantID:    brewHaven,
			Number:        "BHC-000001",
			IssuedAt:      now.Add(-48 * time.Hour),
			Status:        enum.ReceiptStatusCompleted,
			PaymentMethod: enum.PaymentMethodCash,
			Currency:      "EUR",
			SubtotalCents: 500,
			TaxCents:      50,
			TotalCents:    550,
			SyncStatus:    enum.SyncStatusSynced,
			CreatedAt:     now.Add(-48 * time.Hour),
			Items: []ReceiptItem{
				{Name: "Espresso", Qty: 1, UnitPriceCents: 180, VATRate: 10, LineTotalCents: 180},
				{Name: "Cappuccino", Qty: 1, UnitPriceCents: 320, VATRate: 10, LineTotalCents: 320},
			},
		},
		{
			ID:            "seed-bh-0002",
			MerchantID:    brewHaven,
			Number:        "BHC-000002",
			IssuedAt:      now.Add(-24 * time.Hour),
			Status:        enum.ReceiptStatusCompleted,
			PaymentMethod: enum.PaymentMethodCard,
			Currency:      "EUR",
			SubtotalCents: 700,
			TaxCents:      70,
			TotalCents:    770,
			SyncStatus:    enum.SyncStatusSynced,
			CreatedAt:     now.Add(-24 * time.Hour),
			Items: []ReceiptItem{
				{Name: "Cafe Latte", Qty: 2, UnitPriceCents: 350, VATRate: 10, LineTotalCents: 700},
			},
		},
	}
}
