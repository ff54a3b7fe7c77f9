package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/spidlabs/spidpos/internal/domain/enum"
	"gorm.io/gorm"
)

// Receipt is the canonical, backend-owned record of a sale. Identity from
// the terminal's point of view is (merchant_id, client_receipt_id); the
// unique index on that pair is what makes retried submissions idempotent.
type Receipt struct {
	ID              uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	MerchantID      uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_receipts_merchant_client,priority:1;index:idx_receipts_merchant_issued,priority:1" json:"merchantId"`
	ClientReceiptID string             `gorm:"size:64;not null;uniqueIndex:idx_receipts_merchant_client,priority:2" json:"clientReceiptId"`
	Number          string             `gorm:"size:32;not null" json:"number"`
	IssuedAt        time.Time          `gorm:"not null;index:idx_receipts_merchant_issued,priority:2" json:"issuedAt"`
	Status          enum.ReceiptStatus `gorm:"size:16;not null" json:"status"`
	PaymentMethod   enum.PaymentMethod `gorm:"size:16;not null" json:"paymentMethod"`
	Currency        string             `gorm:"size:3;not null" json:"currency"`
	SubtotalCents   int64              `gorm:"not null" json:"subtotalCents"`
	TaxCents        int64              `gorm:"not null" json:"taxCents"`
	TotalCents      int64              `gorm:"not null" json:"totalCents"`
	CreatedByUserID uuid.UUID          `gorm:"type:uuid;not null" json:"-"`
	CreatedOffline  bool               `gorm:"not null;default:false" json:"createdOffline"`
	CreatedAt       time.Time          `json:"-"`
	UpdatedAt       time.Time          `json:"-"`

	// Relationships
	Merchant Merchant      `gorm:"foreignKey:MerchantID" json:"-"`
	Items    []ReceiptItem `gorm:"foreignKey:ReceiptID" json:"items"`
}

// BeforeCreate generates a UUID before creating a new receipt
func (r *Receipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Receipt model
func (Receipt) TableName() string {
	return "receipts"
}

// ReceiptItem is a line item owned by its receipt. Items are replaced as a
// set with the parent receipt, never upserted independently.
type ReceiptItem struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"-"`
	ReceiptID      uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Position       int       `gorm:"not null" json:"-"`
	Name           string    `gorm:"size:120;not null" json:"name"`
	Qty            int       `gorm:"not null" json:"qty"`
	UnitPriceCents int64     `gorm:"not null" json:"unitPriceCents"`
	VATRate        float64   `gorm:"not null" json:"vatRate"`
	LineTotalCents int64     `gorm:"not null" json:"lineTotalCents"`
}

// BeforeCreate generates a UUID before creating a new receipt item
func (i *ReceiptItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the ReceiptItem model
func (ReceiptItem) TableName() string {
	return "receipt_items"
}
