package store

import (
	"context"
	"errors"
	"time"

	"github.com/spidlabs/spidpos/internal/config"
	"github.com/spidlabs/spidpos/internal/domain/enum"
)

// ErrStoreUnavailable is returned by every operation when the local store
// could not be opened or initialized. Callers treat it as "operate
// degraded", not as a crash.
var ErrStoreUnavailable = errors.New("local store unavailable")

// Merchant is the terminal's cached copy of a tenant
type Merchant struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	VATNumber string `json:"vatNumber" db:"vat_number"`
	Address   string `json:"address" db:"address"`
}

// Product is the terminal's cached copy of a catalog entry
type Product struct {
	ID         string    `json:"id" db:"id"`
	MerchantID string    `json:"merchantId" db:"merchant_id"`
	Name       string    `json:"name" db:"name"`
	PriceCents int64     `json:"priceCents" db:"price_cents"`
	VATRate    float64   `json:"vatRate" db:"vat_rate"`
	Category   string    `json:"category" db:"category"`
	SKU        string    `json:"sku" db:"sku"`
	IsActive   bool      `json:"isActive" db:"is_active"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// ReceiptItem is one line of a locally held receipt
type ReceiptItem struct {
	Name           string  `json:"name" db:"name"`
	Qty            int     `json:"qty" db:"qty"`
	UnitPriceCents int64   `json:"unitPriceCents" db:"unit_price_cents"`
	VATRate        float64 `json:"vatRate" db:"vat_rate"`
	LineTotalCents int64   `json:"lineTotalCents" db:"line_total_cents"`
}

// Receipt is the terminal-side receipt record. ID is the terminal-minted
// clientReceiptId; Number stays empty until the backend assigns one.
// SyncStatus tracks the receipt's journey to the backend independently of
// its fiscal Status.
type Receipt struct {
	ID             string             `json:"id" db:"id"`
	MerchantID     string             `json:"merchantId" db:"merchant_id"`
	Number         string             `json:"number" db:"number"`
	IssuedAt       time.Time          `json:"issuedAt" db:"issued_at"`
	Status         enum.ReceiptStatus `json:"status" db:"status"`
	PaymentMethod  enum.PaymentMethod `json:"paymentMethod" db:"payment_method"`
	Currency       string             `json:"currency" db:"currency"`
	SubtotalCents  int64              `json:"subtotalCents" db:"subtotal_cents"`
	TaxCents       int64              `json:"taxCents" db:"tax_cents"`
	TotalCents     int64              `json:"totalCents" db:"total_cents"`
	SyncStatus     enum.SyncStatus    `json:"syncStatus" db:"sync_status"`
	SyncAttempts   int                `json:"syncAttempts" db:"sync_attempts"`
	CreatedOffline bool               `json:"createdOffline" db:"created_offline"`
	CreatedAt      time.Time          `json:"createdAt" db:"created_at"`
	Items          []ReceiptItem      `json:"items"`
}

// QueueItem is one pending upload in the sync queue
type QueueItem struct {
	ID            int64            `json:"id" db:"id"`
	ReceiptID     string           `json:"receiptId" db:"receipt_id"`
	Status        enum.QueueStatus `json:"status" db:"status"`
	Attempts      int              `json:"attempts" db:"attempts"`
	NextAttemptAt time.Time        `json:"nextAttemptAt" db:"next_attempt_at"`
	LastError     string           `json:"lastError" db:"last_error"`
	CreatedAt     time.Time        `json:"createdAt" db:"created_at"`
}

// ReceiptSyncUpdate mutates a receipt's sync bookkeeping. Nil pointers
// leave the column unchanged.
type ReceiptSyncUpdate struct {
	SyncStatus   enum.SyncStatus
	Status       *enum.ReceiptStatus
	Number       *string
	SyncAttempts *int
}

// Store is the terminal's durable local state. Two engines implement it
// with identical semantics; repositories never know which one is active.
type Store interface {
	// Init creates schema or buckets and seeds demo data. Idempotent and
	// single-flight: concurrent callers share one outcome. Every other
	// operation awaits Init internally.
	Init(ctx context.Context) error
	Close() error

	UpsertMerchant(ctx context.Context, m *Merchant) error
	Merchants(ctx context.Context) ([]Merchant, error)

	UpsertProduct(ctx context.Context, p *Product) error
	ProductByID(ctx context.Context, id string) (*Product, error)
	// ProductsByMerchant lists active products, name-sorted, optionally
	// filtered by a case-insensitive substring of the name.
	ProductsByMerchant(ctx context.Context, merchantID, search string) ([]Product, error)

	// SaveReceipt upserts the header and replaces all items as a set.
	SaveReceipt(ctx context.Context, r *Receipt) error
	ReceiptByID(ctx context.Context, id string) (*Receipt, error)
	// ReceiptsByMerchant lists receipts newest first with items in
	// insertion order.
	ReceiptsByMerchant(ctx context.Context, merchantID string) ([]Receipt, error)
	CountPendingReceipts(ctx context.Context, merchantID string) (int, error)
	UpdateReceiptSyncState(ctx context.Context, id string, upd *ReceiptSyncUpdate) error

	EnqueueReceiptSync(ctx context.Context, receiptID string, nextAttemptAt time.Time) error
	// DueSyncQueueItems returns items whose nextAttemptAt has passed,
	// oldest first. FAILED items are excluded: they wait for a manual
	// retry. PROCESSING items are included so an upload interrupted by a
	// crash is picked up again.
	DueSyncQueueItems(ctx context.Context, now time.Time) ([]QueueItem, error)
	// SyncQueueItemByReceipt returns the queue entry for a receipt
	// regardless of status, nil when none exists.
	SyncQueueItemByReceipt(ctx context.Context, receiptID string) (*QueueItem, error)
	UpdateSyncQueueItem(ctx context.Context, item *QueueItem) error
	DeleteSyncQueueItem(ctx context.Context, id int64) error

	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Open selects and opens the local store engine. An explicit engine in
// the config is honored; otherwise sqlite is tried first and bolt serves
// as the fallback when the sqlite file cannot be opened.
func Open(cfg *config.LocalStoreConfig) (Store, error) {
	switch cfg.Engine {
	case "sqlite":
		return openSQLite(cfg.Path + ".db")
	case "bolt":
		return openBolt(cfg.Path + ".bolt")
	case "":
		s, err := openSQLite(cfg.Path + ".db")
		if err == nil {
			return s, nil
		}
		return openBolt(cfg.Path + ".bolt")
	default:
		return nil, errors.New("unknown local store engine: " + cfg.Engine)
	}
}
