package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spidlabs/spidpos/internal/application/service"
	"github.com/spidlabs/spidpos/internal/domain/entity"
	"github.com/spidlabs/spidpos/internal/domain/enum"
	"github.com/spidlabs/spidpos/internal/domain/repository"
	"github.com/spidlabs/spidpos/internal/presentation/http/dto/request"
	"github.com/spidlabs/spidpos/internal/presentation/http/dto/response"
)

// ReceiptHandler handles receipt-related HTTP requests
type ReceiptHandler struct {
	receiptService *service.ReceiptService
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(receiptService *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// Create handles POST /api/receipts. Replays of an already stored
// clientReceiptId answer 200 with the stored copy; fresh creations 201.
func (h *ReceiptHandler) Create(c *gin.Context) {
	userID := GetUserID(c)
	merchantID := GetMerchantID(c)
	if userID == nil || merchantID == nil {
		response.Unauthorized(c, "Authentication required")
		return
	}

	var req request.CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	// The body names the merchant too; it must agree with the guard's
	// header, otherwise the request is ambiguous about its tenant.
	if req.MerchantID != merchantID.String() {
		response.BadRequest(c, "merchantId does not match X-Merchant-Id header")
		return
	}

	input := &service.CreateReceiptInput{
		ClientReceiptID: req.ClientReceiptID,
		IssuedAt:        req.IssuedAt,
		PaymentMethod:   enum.PaymentMethod(req.PaymentMethod),
		Currency:        req.Currency,
		SubtotalCents:   req.SubtotalCents,
		TaxCents:        req.TaxCents,
		TotalCents:      req.TotalCents,
		CreatedOffline:  req.CreatedOffline,
		CreatedByUserID: *userID,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, service.CreateReceiptItemInput{
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			VATRate:        item.VATRate,
			LineTotalCents: item.LineTotalCents,
		})
	}

	output, err := h.receiptService.CreateReceipt(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.ItemWithIdempotent(c, output.Receipt, output.Idempotent)
}

// Get handles GET /api/receipts/:id
func (h *ReceiptHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid receipt ID")
		return
	}

	receipt, err := h.receiptService.GetReceipt(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Item(c, 200, receipt)
}

// List handles GET /api/receipts
func (h *ReceiptHandler) List(c *gin.Context) {
	var filter request.ReceiptFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	params := &repository.ReceiptFilterParams{}

	if filter.From != "" {
		from, err := time.Parse(time.RFC3339, filter.From)
		if err != nil {
			response.BadRequest(c, "from must be an RFC 3339 timestamp")
			return
		}
		params.From = &from
	}
	if filter.To != "" {
		to, err := time.Parse(time.RFC3339, filter.To)
		if err != nil {
			response.BadRequest(c, "to must be an RFC 3339 timestamp")
			return
		}
		params.To = &to
	}
	if filter.Status != "" {
		status := enum.ReceiptStatus(filter.Status)
		if !status.Valid() {
			response.BadRequest(c, "Invalid status filter")
			return
		}
		params.Status = &status
	}
	if filter.Payment != "" {
		payment := enum.PaymentMethod(filter.Payment)
		if !payment.Valid() {
			response.BadRequest(c, "Invalid payment filter")
			return
		}
		params.Payment = &payment
	}

	receipts, err := h.receiptService.ListReceipts(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Items(c, receipts)
}

// Void handles POST /api/receipts/:id/void
func (h *ReceiptHandler) Void(c *gin.Context) {
	h.updateStatus(c, h.receiptService.VoidReceipt)
}

// Refund handles POST /api/receipts/:id/refund
func (h *ReceiptHandler) Refund(c *gin.Context) {
	h.updateStatus(c, h.receiptService.RefundReceipt)
}

func (h *ReceiptHandler) updateStatus(c *gin.Context, update func(ctx context.Context, id, actedByUserID uuid.UUID) (*entity.Receipt, error)) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "Authentication required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid receipt ID")
		return
	}

	receipt, err := update(c.Request.Context(), id, *userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Item(c, 200, receipt)
}
