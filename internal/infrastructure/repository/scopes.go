package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ctxKey string

// MerchantIDKey is the context key for the tenant the request acts for
const MerchantIDKey ctxKey = "merchant_id"

// TenantScope returns a GORM scope that filters by the merchant carried in
// the context. Applied to every query on tenant-scoped entities.
func TenantScope(ctx context.Context) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		merchantID, ok := ctx.Value(MerchantIDKey).(uuid.UUID)
		if !ok || merchantID == uuid.Nil {
			// Fail-safe: return no results if merchant context missing
			// This prevents accidental cross-tenant data access
			return db.Where("1 = 0")
		}
		return db.Where("merchant_id = ?", merchantID)
	}
}

// WithMerchant adds the acting merchant ID to the context
func WithMerchant(ctx context.Context, merchantID uuid.UUID) context.Context {
	return context.WithValue(ctx, MerchantIDKey, merchantID)
}

// GetMerchantID extracts the acting merchant ID from the context
func GetMerchantID(ctx context.Context) (uuid.UUID, bool) {
	merchantID, ok := ctx.Value(MerchantIDKey).(uuid.UUID)
	return merchantID, ok
}
