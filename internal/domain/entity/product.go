package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a sellable item scoped to one merchant. Prices are stored in
// minor currency units. Products are soft-deactivated, never hard-deleted,
// so offline terminals can keep resolving historic receipts.
type Product struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	MerchantID uuid.UUID `gorm:"type:uuid;not null;index:idx_products_merchant_updated,priority:1" json:"merchantId"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	PriceCents int64     `gorm:"not null" json:"priceCents"`
	VATRate    float64   `gorm:"not null" json:"vatRate"`
	Category   string    `gorm:"size:100" json:"category,omitempty"`
	SKU        string    `gorm:"size:100" json:"sku,omitempty"`
	IsActive   bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt  time.Time `json:"-"`
	// UpdatedAt drives incremental sync (the updatedSince query filter).
	UpdatedAt time.Time `gorm:"index:idx_products_merchant_updated,priority:2" json:"updatedAt"`

	Merchant Merchant `gorm:"foreignKey:MerchantID" json:"-"`
}

// BeforeCreate generates a UUID before creating a new product
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}
