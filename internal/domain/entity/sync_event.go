package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/spidlabs/spidpos/internal/domain/enum"
	"gorm.io/gorm"
)

// SyncEvent is an append-only audit row recording a receipt lifecycle
// transition, including which user acted and whether the receipt
// originated offline.
type SyncEvent struct {
	ID         uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	MerchantID uuid.UUID          `gorm:"type:uuid;not null;index" json:"merchant_id"`
	ReceiptID  uuid.UUID          `gorm:"type:uuid;not null;index" json:"receipt_id"`
	Type       enum.SyncEventType `gorm:"size:32;not null" json:"type"`
	At         time.Time          `gorm:"not null" json:"at"`
	Payload    string             `gorm:"type:text" json:"payload"`
}

// BeforeCreate generates a UUID before creating a new sync event
func (e *SyncEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the SyncEvent model
func (SyncEvent) TableName() string {
	return "sync_events"
}
