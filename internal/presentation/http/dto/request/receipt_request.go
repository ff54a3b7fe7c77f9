package request

import "time"

// ReceiptItemRequest represents one line item of a receipt submission
type ReceiptItemRequest struct {
	Name           string  `json:"name" binding:"required,max=120"`
	Qty            int     `json:"qty" binding:"required,min=1"`
	UnitPriceCents int64   `json:"unitPriceCents" binding:"min=0"`
	VATRate        float64 `json:"vatRate" binding:"min=0,max=100"`
	LineTotalCents int64   `json:"lineTotalCents" binding:"min=0"`
}

// CreateReceiptRequest represents a receipt submission from a terminal.
// merchantId in the body must match the X-Merchant-Id header; the guard
// rejects the request before it reaches the handler otherwise.
type CreateReceiptRequest struct {
	MerchantID      string               `json:"merchantId" binding:"required,uuid"`
	ClientReceiptID string               `json:"clientReceiptId" binding:"required,max=64"`
	IssuedAt        time.Time            `json:"issuedAt" binding:"required"`
	PaymentMethod   string               `json:"paymentMethod" binding:"required"`
	Currency        string               `json:"currency" binding:"required,len=3"`
	SubtotalCents   int64                `json:"subtotalCents" binding:"min=0"`
	TaxCents        int64                `json:"taxCents" binding:"min=0"`
	TotalCents      int64                `json:"totalCents" binding:"min=0"`
	CreatedOffline  bool                 `json:"createdOffline"`
	Items           []ReceiptItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ReceiptFilterRequest represents receipt list query parameters
type ReceiptFilterRequest struct {
	From    string `form:"from"`
	To      string `form:"to"`
	Status  string `form:"status"`
	Payment string `form:"payment"`
}
