package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Merchant is a tenant: an isolated business account that owns products
// and receipts. Created administratively, cached by POS terminals.
type Merchant struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	VATNumber string    `gorm:"size:32" json:"vatNumber,omitempty"`
	Address   string    `gorm:"size:255" json:"address,omitempty"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	// Relationships
	Members []MerchantUser `gorm:"foreignKey:MerchantID" json:"-"`
}

// BeforeCreate generates a UUID before creating a new merchant
func (m *Merchant) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Merchant model
func (Merchant) TableName() string {
	return "merchants"
}

// MerchantUser grants a user access to one merchant. Every data operation
// is guarded against this membership before a transaction is opened.
type MerchantUser struct {
	MerchantID uuid.UUID `gorm:"type:uuid;primaryKey" json:"merchant_id"`
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`

	Merchant Merchant `gorm:"foreignKey:MerchantID" json:"-"`
	User     User     `gorm:"foreignKey:UserID" json:"-"`
}

// TableName returns the table name for the MerchantUser model
func (MerchantUser) TableName() string {
	return "merchant_users"
}

// MerchantCounter is the single source of truth for sequential receipt
// numbering per tenant. Incremented under a row lock inside the
// receipt-creation transaction.
type MerchantCounter struct {
	MerchantID uuid.UUID `gorm:"type:uuid;primaryKey" json:"merchant_id"`
	LastNumber int64     `gorm:"not null;default:0" json:"last_number"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the table name for the MerchantCounter model
func (MerchantCounter) TableName() string {
	return "merchant_counters"
}
