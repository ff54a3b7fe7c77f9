package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spidlabs/spidpos/internal/domain/entity"
	"github.com/spidlabs/spidpos/internal/domain/enum"
	domainRepo "github.com/spidlabs/spidpos/internal/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type receiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *gorm.DB) domainRepo.ReceiptRepository {
	return &receiptRepository{db: db}
}

func itemsInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("receipt_items.position ASC")
}

func (r *receiptRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	var receipt entity.Receipt
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Preload("Items", itemsInOrder).
		First(&receipt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *receiptRepository) GetByClientReceiptID(ctx context.Context, clientReceiptID string) (*entity.Receipt, error) {
	var receipt entity.Receipt
	err := r.db.WithContext(ctx).
		Scopes(TenantScope(ctx)).
		Preload("Items", itemsInOrder).
		First(&receipt, "client_receipt_id = ?", clientReceiptID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *receiptRepository) List(ctx context.Context, params *domainRepo.ReceiptFilterParams) ([]entity.Receipt, error) {
	var receipts []entity.Receipt

	query := r.db.WithContext(ctx).Model(&entity.Receipt{}).Scopes(TenantScope(ctx))

	if params.From != nil {
		query = query.Where("issued_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("issued_at <= ?", *params.To)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Payment != nil {
		query = query.Where("payment_method = ?", *params.Payment)
	}

	err := query.
		Preload("Items", itemsInOrder).
		Order("issued_at DESC").
		Find(&receipts).Error
	return receipts, err
}

// CreateOrGet is the idempotency anchor of the whole sync protocol: for a
// given (merchant, clientReceiptId) exactly one receipt row is ever
// created and its sequential number assigned exactly once. Concurrent
// submissions for one merchant serialize on the locked counter row;
// submissions for different merchants do not block each other.
func (r *receiptRepository) CreateOrGet(ctx context.Context, receipt *entity.Receipt) (*domainRepo.CreateOrGetResult, error) {
	existing, err := r.GetByClientReceiptID(ctx, receipt.ClientReceiptID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domainRepo.CreateOrGetResult{Receipt: existing, Idempotent: true}, nil
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := nextReceiptNumber(tx, receipt.MerchantID)
		if err != nil {
			return err
		}
		receipt.Number = number
		receipt.Status = enum.ReceiptStatusCompleted

		for i := range receipt.Items {
			receipt.Items[i].Position = i
		}

		if err := tx.Create(receipt).Error; err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]any{
			"clientReceiptId": receipt.ClientReceiptID,
			"createdOffline":  receipt.CreatedOffline,
		})
		if err != nil {
			return err
		}

		event := entity.SyncEvent{
			MerchantID: receipt.MerchantID,
			ReceiptID:  receipt.ID,
			Type:       enum.SyncEventReceiptCreated,
			At:         time.Now().UTC(),
			Payload:    string(payload),
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		// A concurrent submission may have won the race on the unique
		// (merchant_id, client_receipt_id) index; resolve to its row.
		if existing, lookupErr := r.GetByClientReceiptID(ctx, receipt.ClientReceiptID); lookupErr == nil && existing != nil {
			return &domainRepo.CreateOrGetResult{Receipt: existing, Idempotent: true}, nil
		}
		return nil, err
	}

	created, err := r.GetByID(ctx, receipt.ID)
	if err != nil {
		return nil, err
	}
	return &domainRepo.CreateOrGetResult{Receipt: created, Idempotent: false}, nil
}

func (r *receiptRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.ReceiptStatus, actedByUserID uuid.UUID) (*entity.Receipt, error) {
	receipt, err := r.GetByID(ctx, id)
	if err != nil || receipt == nil {
		return nil, err
	}

	eventType := enum.SyncEventReceiptVoided
	if status == enum.ReceiptStatusRefunded {
		eventType = enum.SyncEventReceiptRefunded
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.Receipt{}).
			Where("id = ? AND merchant_id = ?", id, receipt.MerchantID).
			Update("status", status).Error; err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]any{
			"status":        status,
			"actedByUserId": actedByUserID,
		})
		if err != nil {
			return err
		}

		event := entity.SyncEvent{
			MerchantID: receipt.MerchantID,
			ReceiptID:  id,
			Type:       eventType,
			At:         time.Now().UTC(),
			Payload:    string(payload),
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// nextReceiptNumber increments the merchant counter under a row lock and
// renders the human-facing number. Must run inside the receipt-creation
// transaction so a failed insert rolls the increment back with it.
func nextReceiptNumber(tx *gorm.DB, merchantID uuid.UUID) (string, error) {
	counter := entity.MerchantCounter{MerchantID: merchantID, LastNumber: 0}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
		return "", err
	}

	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&counter, "merchant_id = ?", merchantID).Error; err != nil {
		return "", err
	}

	counter.LastNumber++
	counter.UpdatedAt = time.Now().UTC()
	if err := tx.Save(&counter).Error; err != nil {
		return "", err
	}

	var merchant entity.Merchant
	if err := tx.First(&merchant, "id = ?", merchantID).Error; err != nil {
		return "", err
	}

	return formatReceiptNumber(merchantPrefix(merchant.Name), counter.LastNumber), nil
}

// merchantPrefix derives a stable three-letter prefix from the initials of
// the merchant name, falling back to MRC when the name yields nothing.
func merchantPrefix(name string) string {
	var initials []rune
	for _, word := range strings.Fields(name) {
		initials = append(initials, []rune(strings.ToUpper(word))[0])
	}

	prefix := string(initials)
	if len(initials) > 3 {
		prefix = string(initials[:3])
	}
	if prefix == "" {
		prefix = "MRC"
	}
	return prefix
}

func formatReceiptNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%06d", prefix, n)
}
