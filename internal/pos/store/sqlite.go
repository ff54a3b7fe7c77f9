package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spidlabs/spidpos/internal/domain/enum"
	_ "modernc.org/sqlite"
)

// sqliteStore is the primary engine. All timestamps are persisted as
// unix milliseconds so row scanning never depends on driver-side time
// parsing.
type sqliteStore struct {
	db *sqlx.DB

	mu       sync.Mutex
	initDone bool
	initErr  error
}

func openSQLite(path string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sqlx.Connect("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY on concurrent statements.
	db.SetMaxOpenConns(1)
	return &sqliteStore{db: db}, nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS merchants (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        vat_number TEXT NOT NULL DEFAULT '',
        address TEXT NOT NULL DEFAULT ''
    );`,
	`CREATE TABLE IF NOT EXISTS products (
        id TEXT PRIMARY KEY,
        merchant_id TEXT NOT NULL,
        name TEXT NOT NULL,
        price_cents INTEGER NOT NULL,
        vat_rate REAL NOT NULL,
        category TEXT NOT NULL DEFAULT '',
        sku TEXT NOT NULL DEFAULT '',
        is_active INTEGER NOT NULL DEFAULT 1,
        updated_at INTEGER NOT NULL,
        FOREIGN KEY(merchant_id) REFERENCES merchants(id)
    );`,
	`CREATE INDEX IF NOT EXISTS idx_products_merchant ON products(merchant_id, name);`,
	`CREATE TABLE IF NOT EXISTS receipts (
        id TEXT NOT NULL,
        merchant_id TEXT NOT NULL,
        number TEXT NOT NULL DEFAULT '',
        issued_at INTEGER NOT NULL,
        status TEXT NOT NULL,
        payment_method TEXT NOT NULL,
        currency TEXT NOT NULL,
        subtotal_cents INTEGER NOT NULL,
        tax_cents INTEGER NOT NULL,
        total_cents INTEGER NOT NULL,
        sync_status TEXT NOT NULL,
        sync_attempts INTEGER NOT NULL DEFAULT 0,
        created_offline INTEGER NOT NULL DEFAULT 0,
        created_at INTEGER NOT NULL,
        PRIMARY KEY (merchant_id, id)
    );`,
	`CREATE INDEX IF NOT EXISTS idx_receipts_merchant_issued ON receipts(merchant_id, issued_at DESC);`,
	`CREATE TABLE IF NOT EXISTS receipt_items (
        receipt_id TEXT NOT NULL,
        position INTEGER NOT NULL,
        name TEXT NOT NULL,
        qty INTEGER NOT NULL,
        unit_price_cents INTEGER NOT NULL,
        vat_rate REAL NOT NULL,
        line_total_cents INTEGER NOT NULL,
        PRIMARY KEY (receipt_id, position)
    );`,
	`CREATE TABLE IF NOT EXISTS sync_queue (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        receipt_id TEXT NOT NULL,
        status TEXT NOT NULL,
        attempts INTEGER NOT NULL DEFAULT 0,
        next_attempt_at INTEGER NOT NULL,
        last_error TEXT NOT NULL DEFAULT '',
        created_at INTEGER NOT NULL
    );`,
	`CREATE INDEX IF NOT EXISTS idx_sync_queue_due ON sync_queue(status, next_attempt_at);`,
	`CREATE TABLE IF NOT EXISTS settings (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL
    );`,
}

// Init is single-flight: the first caller runs schema creation and
// seeding, concurrent callers block on the mutex and share the outcome.
func (s *sqliteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initDone {
		s.initErr = s.initialize(ctx)
		s.initDone = true
	}
	if s.initErr != nil {
		return ErrStoreUnavailable
	}
	return nil
}

func (s *sqliteStore) initialize(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return seed(ctx, s)
}

func (s *sqliteStore) ready(ctx context.Context) error {
	return s.Init(ctx)
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) UpsertMerchant(ctx context.Context, m *Merchant) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.upsertMerchantRaw(ctx, m)
}

func (s *sqliteStore) upsertMerchantRaw(ctx context.Context, m *Merchant) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO merchants (id, name, vat_number, address)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET name = excluded.name,
            vat_number = excluded.vat_number, address = excluded.address`,
		m.ID, m.Name, m.VATNumber, m.Address)
	return err
}

func (s *sqliteStore) Merchants(ctx context.Context) ([]Merchant, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var merchants []Merchant
	err := s.db.SelectContext(ctx, &merchants, `SELECT id, name, vat_number, address FROM merchants ORDER BY name ASC`)
	return merchants, err
}

type productRow struct {
	ID         string  `db:"id"`
	MerchantID string  `db:"merchant_id"`
	Name       string  `db:"name"`
	PriceCents int64   `db:"price_cents"`
	VATRate    float64 `db:"vat_rate"`
	Category   string  `db:"category"`
	SKU        string  `db:"sku"`
	IsActive   bool    `db:"is_active"`
	UpdatedAt  int64   `db:"updated_at"`
}

func (r productRow) toProduct() Product {
	return Product{
		ID:         r.ID,
		MerchantID: r.MerchantID,
		Name:       r.Name,
		PriceCents: r.PriceCents,
		VATRate:    r.VATRate,
		Category:   r.Category,
		SKU:        r.SKU,
		IsActive:   r.IsActive,
		UpdatedAt:  time.UnixMilli(r.UpdatedAt).UTC(),
	}
}

func (s *sqliteStore) UpsertProduct(ctx context.Context, p *Product) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.upsertProductRaw(ctx, p)
}

func (s *sqliteStore) upsertProductRaw(ctx context.Context, p *Product) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO products (id, merchant_id, name, price_cents, vat_rate, category, sku, is_active, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            merchant_id = excluded.merchant_id,
            name = excluded.name,
            price_cents = excluded.price_cents,
            vat_rate = excluded.vat_rate,
            category = excluded.category,
            sku = excluded.sku,
            is_active = excluded.is_active,
            updated_at = excluded.updated_at`,
		p.ID, p.MerchantID, p.Name, p.PriceCents, p.VATRate, p.Category, p.SKU, p.IsActive, p.UpdatedAt.UnixMilli())
	return err
}

func (s *sqliteStore) ProductByID(ctx context.Context, id string) (*Product, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var row productRow
	err := s.db.GetContext(ctx, &row, `
        SELECT id, merchant_id, name, price_cents, vat_rate, category, sku, is_active, updated_at
        FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := row.toProduct()
	return &p, nil
}

func (s *sqliteStore) ProductsByMerchant(ctx context.Context, merchantID, search string) ([]Product, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := `
        SELECT id, merchant_id, name, price_cents, vat_rate, category, sku, is_active, updated_at
        FROM products WHERE merchant_id = ? AND is_active = 1`
	args := []interface{}{merchantID}
	if search != "" {
		query += ` AND LOWER(name) LIKE ?`
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	query += ` ORDER BY name ASC`

	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.toProduct())
	}
	return products, nil
}

type receiptRow struct {
	ID             string  `db:"id"`
	MerchantID     string  `db:"merchant_id"`
	Number         string  `db:"number"`
	IssuedAt       int64   `db:"issued_at"`
	Status         string  `db:"status"`
	PaymentMethod  string  `db:"payment_method"`
	Currency       string  `db:"currency"`
	SubtotalCents  int64   `db:"subtotal_cents"`
	TaxCents       int64   `db:"tax_cents"`
	TotalCents     int64   `db:"total_cents"`
	SyncStatus     string  `db:"sync_status"`
	SyncAttempts   int     `db:"sync_attempts"`
	CreatedOffline bool    `db:"created_offline"`
	CreatedAt      int64   `db:"created_at"`
}

func (r receiptRow) toReceipt() Receipt {
	return Receipt{
		ID:             r.ID,
		MerchantID:     r.MerchantID,
		Number:         r.Number,
		IssuedAt:       time.UnixMilli(r.IssuedAt).UTC(),
		Status:         enum.ReceiptStatus(r.Status),
		PaymentMethod:  enum.PaymentMethod(r.PaymentMethod),
		Currency:       r.Currency,
		SubtotalCents:  r.SubtotalCents,
		TaxCents:       r.TaxCents,
		TotalCents:     r.TotalCents,
		SyncStatus:     enum.SyncStatus(r.SyncStatus),
		SyncAttempts:   r.SyncAttempts,
		CreatedOffline: r.CreatedOffline,
		CreatedAt:      time.UnixMilli(r.CreatedAt).UTC(),
	}
}

func (s *sqliteStore) SaveReceipt(ctx context.Context, r *Receipt) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.saveReceiptRaw(ctx, r)
}

func (s *sqliteStore) saveReceiptRaw(ctx context.Context, r *Receipt) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO receipts (id, merchant_id, number, issued_at, status, payment_method, currency,
            subtotal_cents, tax_cents, total_cents, sync_status, sync_attempts, created_offline, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(merchant_id, id) DO UPDATE SET
            number = excluded.number,
            issued_at = excluded.issued_at,
            status = excluded.status,
            payment_method = excluded.payment_method,
            currency = excluded.currency,
            subtotal_cents = excluded.subtotal_cents,
            tax_cents = excluded.tax_cents,
            total_cents = excluded.total_cents,
            sync_status = excluded.sync_status,
            sync_attempts = excluded.sync_attempts,
            created_offline = excluded.created_offline`,
		r.ID, r.MerchantID, r.Number, r.IssuedAt.UnixMilli(), string(r.Status), string(r.PaymentMethod),
		r.Currency, r.SubtotalCents, r.TaxCents, r.TotalCents, string(r.SyncStatus), r.SyncAttempts,
		r.CreatedOffline, createdAt.UnixMilli()); err != nil {
		return err
	}

	// Items are replaced as a set with the header.
	if _, err := tx.ExecContext(ctx, `DELETE FROM receipt_items WHERE receipt_id = ?`, r.ID); err != nil {
		return err
	}
	for i, item := range r.Items {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO receipt_items (receipt_id, position, name, qty, unit_price_cents, vat_rate, line_total_cents)
            VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, i, item.Name, item.Qty, item.UnitPriceCents, item.VATRate, item.LineTotalCents); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *sqliteStore) loadItems(ctx context.Context, receiptID string) ([]ReceiptItem, error) {
	var items []ReceiptItem
	err := s.db.SelectContext(ctx, &items, `
        SELECT name, qty, unit_price_cents, vat_rate, line_total_cents
        FROM receipt_items WHERE receipt_id = ? ORDER BY position ASC`, receiptID)
	return items, err
}

func (s *sqliteStore) ReceiptByID(ctx context.Context, id string) (*Receipt, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var row receiptRow
	err := s.db.GetContext(ctx, &row, `
        SELECT id, merchant_id, number, issued_at, status, payment_method, currency,
            subtotal_cents, tax_cents, total_cents, sync_status, sync_attempts, created_offline, created_at
        FROM receipts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	receipt := row.toReceipt()
	if receipt.Items, err = s.loadItems(ctx, id); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (s *sqliteStore) ReceiptsByMerchant(ctx context.Context, merchantID string) ([]Receipt, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var rows []receiptRow
	err := s.db.SelectContext(ctx, &rows, `
        SELECT id, merchant_id, number, issued_at, status, payment_method, currency,
            subtotal_cents, tax_cents, total_cents, sync_status, sync_attempts, created_offline, created_at
        FROM receipts WHERE merchant_id = ? ORDER BY issued_at DESC`, merchantID)
	if err != nil {
		return nil, err
	}
	receipts := make([]Receipt, 0, len(rows))
	for _, row := range rows {
		receipt := row.toReceipt()
		if receipt.Items, err = s.loadItems(ctx, receipt.ID); err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	return receipts, nil
}

func (s *sqliteStore) CountPendingReceipts(ctx context.Context, merchantID string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	err := s.db.GetContext(ctx, &count, `
        SELECT COUNT(*) FROM receipts
        WHERE merchant_id = ? AND sync_status IN (?, ?)`,
		merchantID, string(enum.SyncStatusPending), string(enum.SyncStatusFailed))
	return count, err
}

func (s *sqliteStore) UpdateReceiptSyncState(ctx context.Context, id string, upd *ReceiptSyncUpdate) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	query := `UPDATE receipts SET sync_status = ?`
	args := []interface{}{string(upd.SyncStatus)}
	if upd.Status != nil {
		query += `, status = ?`
		args = append(args, string(*upd.Status))
	}
	if upd.Number != nil {
		query += `, number = ?`
		args = append(args, *upd.Number)
	}
	if upd.SyncAttempts != nil {
		query += `, sync_attempts = ?`
		args = append(args, *upd.SyncAttempts)
	}
	query += ` WHERE id = ?`
	args = append(args, id)

	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *sqliteStore) EnqueueReceiptSync(ctx context.Context, receiptID string, nextAttemptAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO sync_queue (receipt_id, status, attempts, next_attempt_at, last_error, created_at)
        VALUES (?, ?, 0, ?, '', ?)`,
		receiptID, string(enum.QueueStatusPending), nextAttemptAt.UnixMilli(), time.Now().UTC().UnixMilli())
	return err
}

type queueRow struct {
	ID            int64  `db:"id"`
	ReceiptID     string `db:"receipt_id"`
	Status        string `db:"status"`
	Attempts      int    `db:"attempts"`
	NextAttemptAt int64  `db:"next_attempt_at"`
	LastError     string `db:"last_error"`
	CreatedAt     int64  `db:"created_at"`
}

func (r queueRow) toItem() QueueItem {
	return QueueItem{
		ID:            r.ID,
		ReceiptID:     r.ReceiptID,
		Status:        enum.QueueStatus(r.Status),
		Attempts:      r.Attempts,
		NextAttemptAt: time.UnixMilli(r.NextAttemptAt).UTC(),
		LastError:     r.LastError,
		CreatedAt:     time.UnixMilli(r.CreatedAt).UTC(),
	}
}

func (s *sqliteStore) DueSyncQueueItems(ctx context.Context, now time.Time) ([]QueueItem, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var rows []queueRow
	err := s.db.SelectContext(ctx, &rows, `
        SELECT id, receipt_id, status, attempts, next_attempt_at, last_error, created_at
        FROM sync_queue
        WHERE status IN (?, ?) AND next_attempt_at <= ?
        ORDER BY created_at ASC, id ASC`,
		string(enum.QueueStatusPending), string(enum.QueueStatusProcessing), now.UnixMilli())
	if err != nil {
		return nil, err
	}
	items := make([]QueueItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toItem())
	}
	return items, nil
}

func (s *sqliteStore) SyncQueueItemByReceipt(ctx context.Context, receiptID string) (*QueueItem, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var row queueRow
	err := s.db.GetContext(ctx, &row, `
        SELECT id, receipt_id, status, attempts, next_attempt_at, last_error, created_at
        FROM sync_queue WHERE receipt_id = ?`, receiptID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item := row.toItem()
	return &item, nil
}

func (s *sqliteStore) UpdateSyncQueueItem(ctx context.Context, item *QueueItem) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
        UPDATE sync_queue SET status = ?, attempts = ?, next_attempt_at = ?, last_error = ?
        WHERE id = ?`,
		string(item.Status), item.Attempts, item.NextAttemptAt.UnixMilli(), item.LastError, item.ID)
	return err
}

func (s *sqliteStore) DeleteSyncQueueItem(ctx context.Context, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id)
	return err
}

func (s *sqliteStore) Setting(ctx context.Context, key string) (string, error) {
	if err := s.ready(ctx); err != nil {
		return "", err
	}
	return s.settingRaw(ctx, key)
}

func (s *sqliteStore) settingRaw(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *sqliteStore) SetSetting(ctx context.Context, key, value string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.setSettingRaw(ctx, key, value)
}

func (s *sqliteStore) setSettingRaw(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO settings (key, value) VALUES (?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}
