package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/spidlabs/spidpos/internal/domain/entity"
	"github.com/spidlabs/spidpos/internal/domain/enum"
	"github.com/spidlabs/spidpos/internal/domain/repository"
	infraRepo "github.com/spidlabs/spidpos/internal/infrastructure/repository"
	"github.com/spidlabs/spidpos/pkg/apperror"
)

// ReceiptService handles receipt lifecycle operations
type ReceiptService struct {
	receiptRepo repository.ReceiptRepository
}

// NewReceiptService creates a new receipt service
func NewReceiptService(receiptRepo repository.ReceiptRepository) *ReceiptService {
	return &ReceiptService{receiptRepo: receiptRepo}
}

// CreateReceiptItemInput represents one line item of a submitted receipt
type CreateReceiptItemInput struct {
	Name           string
	Qty            int
	UnitPriceCents int64
	VATRate        float64
	LineTotalCents int64
}

// CreateReceiptInput represents the create receipt input
type CreateReceiptInput struct {
	ClientReceiptID string
	IssuedAt        time.Time
	PaymentMethod   enum.PaymentMethod
	Currency        string
	SubtotalCents   int64
	TaxCents        int64
	TotalCents      int64
	CreatedOffline  bool
	Items           []CreateReceiptItemInput
	CreatedByUserID uuid.UUID
}

// CreateReceiptOutput carries the stored receipt and whether the call
// was a replay of an earlier submission.
type CreateReceiptOutput struct {
	Receipt    *entity.Receipt
	Idempotent bool
}

// CreateReceipt validates and idempotently stores a submitted receipt.
// Replays of an already stored clientReceiptId return the stored copy
// untouched, so the assigned number never changes once issued.
func (s *ReceiptService) CreateReceipt(ctx context.Context, input *CreateReceiptInput) (*CreateReceiptOutput, error) {
	merchantID, ok := infraRepo.GetMerchantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Merchant context required")
	}

	if fields := validateCreateReceipt(input); len(fields) > 0 {
		return nil, apperror.NewValidationError(fields)
	}

	receipt := &entity.Receipt{
		MerchantID:      merchantID,
		ClientReceiptID: input.ClientReceiptID,
		IssuedAt:        input.IssuedAt.UTC(),
		PaymentMethod:   input.PaymentMethod,
		Currency:        input.Currency,
		SubtotalCents:   input.SubtotalCents,
		TaxCents:        input.TaxCents,
		TotalCents:      input.TotalCents,
		CreatedByUserID: input.CreatedByUserID,
		CreatedOffline:  input.CreatedOffline,
	}
	for _, item := range input.Items {
		receipt.Items = append(receipt.Items, entity.ReceiptItem{
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			VATRate:        item.VATRate,
			LineTotalCents: item.LineTotalCents,
		})
	}

	result, err := s.receiptRepo.CreateOrGet(ctx, receipt)
	if err != nil {
		return nil, err
	}

	if result.Idempotent {
		log.Printf("AUDIT receipt replay merchant=%s clientReceiptId=%s number=%s",
			merchantID, input.ClientReceiptID, result.Receipt.Number)
	} else {
		log.Printf("AUDIT receipt created merchant=%s clientReceiptId=%s number=%s offline=%t user=%s",
			merchantID, input.ClientReceiptID, result.Receipt.Number, input.CreatedOffline, input.CreatedByUserID)
	}

	return &CreateReceiptOutput{Receipt: result.Receipt, Idempotent: result.Idempotent}, nil
}

// GetReceipt retrieves a receipt by ID
func (s *ReceiptService) GetReceipt(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	receipt, err := s.receiptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, apperror.NewNotFoundError("Receipt")
	}
	return receipt, nil
}

// ListReceipts lists the tenant's receipts, newest first
func (s *ReceiptService) ListReceipts(ctx context.Context, params *repository.ReceiptFilterParams) ([]entity.Receipt, error) {
	if params == nil {
		params = &repository.ReceiptFilterParams{}
	}
	return s.receiptRepo.List(ctx, params)
}

// VoidReceipt marks a receipt VOIDED
func (s *ReceiptService) VoidReceipt(ctx context.Context, id uuid.UUID, actedByUserID uuid.UUID) (*entity.Receipt, error) {
	return s.updateStatus(ctx, id, enum.ReceiptStatusVoided, actedByUserID)
}

// RefundReceipt marks a receipt REFUNDED
func (s *ReceiptService) RefundReceipt(ctx context.Context, id uuid.UUID, actedByUserID uuid.UUID) (*entity.Receipt, error) {
	return s.updateStatus(ctx, id, enum.ReceiptStatusRefunded, actedByUserID)
}

func (s *ReceiptService) updateStatus(ctx context.Context, id uuid.UUID, status enum.ReceiptStatus, actedByUserID uuid.UUID) (*entity.Receipt, error) {
	receipt, err := s.receiptRepo.UpdateStatus(ctx, id, status, actedByUserID)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, apperror.NewNotFoundError("Receipt")
	}

	log.Printf("AUDIT receipt %s id=%s number=%s user=%s", status, id, receipt.Number, actedByUserID)
	return receipt, nil
}

func validateCreateReceipt(input *CreateReceiptInput) []apperror.FieldError {
	var fields []apperror.FieldError

	if input.ClientReceiptID == "" {
		fields = append(fields, apperror.FieldError{Path: "clientReceiptId", Message: "is required"})
	} else if len(input.ClientReceiptID) > 64 {
		fields = append(fields, apperror.FieldError{Path: "clientReceiptId", Message: "must be at most 64 characters"})
	}
	if input.IssuedAt.IsZero() {
		fields = append(fields, apperror.FieldError{Path: "issuedAt", Message: "is required"})
	}
	if !input.PaymentMethod.Valid() {
		fields = append(fields, apperror.FieldError{Path: "paymentMethod", Message: "must be one of CASH, CARD, WALLET, SPLIT"})
	}
	if len(input.Currency) != 3 {
		fields = append(fields, apperror.FieldError{Path: "currency", Message: "must be a 3-letter code"})
	}
	if len(input.Items) == 0 {
		fields = append(fields, apperror.FieldError{Path: "items", Message: "must not be empty"})
	}

	var subtotal int64
	taxByRate := make(map[float64]int64)
	for i, item := range input.Items {
		path := func(field string) string { return fmt.Sprintf("items[%d].%s", i, field) }
		if item.Name == "" {
			fields = append(fields, apperror.FieldError{Path: path("name"), Message: "is required"})
		}
		if item.Qty < 1 {
			fields = append(fields, apperror.FieldError{Path: path("qty"), Message: "must be at least 1"})
		}
		if item.UnitPriceCents < 0 {
			fields = append(fields, apperror.FieldError{Path: path("unitPriceCents"), Message: "must not be negative"})
		}
		if item.VATRate < 0 || item.VATRate > 100 {
			fields = append(fields, apperror.FieldError{Path: path("vatRate"), Message: "must be between 0 and 100"})
		}
		lineSubtotal := int64(item.Qty) * item.UnitPriceCents
		if item.LineTotalCents != lineSubtotal {
			fields = append(fields, apperror.FieldError{Path: path("lineTotalCents"), Message: "does not match qty * unitPriceCents"})
		}
		subtotal += lineSubtotal
		taxByRate[item.VATRate] += lineSubtotal
	}

	if len(fields) > 0 {
		return fields
	}

	// Totals are recomputed server-side: per-rate rounding first, so two
	// half-cent lines at one rate round once, not twice.
	var tax int64
	for rate, rateSubtotal := range taxByRate {
		tax += int64(math.Round(float64(rateSubtotal) * rate / 100))
	}
	if input.SubtotalCents != subtotal {
		fields = append(fields, apperror.FieldError{Path: "subtotalCents", Message: "does not match sum of line totals"})
	}
	if input.TaxCents != tax {
		fields = append(fields, apperror.FieldError{Path: "taxCents", Message: "does not match computed VAT"})
	}
	if input.TotalCents != subtotal+tax {
		fields = append(fields, apperror.FieldError{Path: "totalCents", Message: "does not match subtotal plus tax"})
	}

	return fields
}
