package request

// CreateProductRequest represents a product creation request
type CreateProductRequest struct {
	Name       string  `json:"name" binding:"required,min=1,max=255"`
	PriceCents int64   `json:"priceCents" binding:"min=0"`
	VATRate    float64 `json:"vatRate" binding:"min=0,max=100"`
	Category   string  `json:"category" binding:"omitempty,max=100"`
	SKU        string  `json:"sku" binding:"omitempty,max=100"`
}

// UpdateProductRequest represents a product update request
type UpdateProductRequest struct {
	Name       *string  `json:"name" binding:"omitempty,min=1,max=255"`
	PriceCents *int64   `json:"priceCents" binding:"omitempty,min=0"`
	VATRate    *float64 `json:"vatRate" binding:"omitempty,min=0,max=100"`
	Category   *string  `json:"category" binding:"omitempty,max=100"`
	SKU        *string  `json:"sku" binding:"omitempty,max=100"`
	IsActive   *bool    `json:"isActive"`
}

// ProductFilterRequest represents product list query parameters
type ProductFilterRequest struct {
	// UpdatedSince is an RFC 3339 timestamp for incremental catalog sync
	UpdatedSince string `form:"updatedSince"`
	ActiveOnly   bool   `form:"activeOnly"`
}
