package api

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// MerchantPayload mirrors the backend merchant wire shape
type MerchantPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	VATNumber string `json:"vatNumber"`
	Address   string `json:"address"`
}

// ProductPayload mirrors the backend product wire shape
type ProductPayload struct {
	ID         string    `json:"id"`
	MerchantID string    `json:"merchantId"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"priceCents"`
	VATRate    float64   `json:"vatRate"`
	Category   string    `json:"category"`
	SKU        string    `json:"sku"`
	IsActive   bool      `json:"isActive"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ReceiptItemPayload mirrors one wire receipt line
type ReceiptItemPayload struct {
	Name           string  `json:"name"`
	Qty            int     `json:"qty"`
	UnitPriceCents int64   `json:"unitPriceCents"`
	VATRate        float64 `json:"vatRate"`
	LineTotalCents int64   `json:"lineTotalCents"`
}

// ReceiptPayload mirrors the backend receipt wire shape
type ReceiptPayload struct {
	ID              string               `json:"id"`
	MerchantID      string               `json:"merchantId"`
	ClientReceiptID string               `json:"clientReceiptId"`
	Number          string               `json:"number"`
	IssuedAt        time.Time            `json:"issuedAt"`
	Status          string               `json:"status"`
	PaymentMethod   string               `json:"paymentMethod"`
	Currency        string               `json:"currency"`
	SubtotalCents   int64                `json:"subtotalCents"`
	TaxCents        int64                `json:"taxCents"`
	TotalCents      int64                `json:"totalCents"`
	CreatedOffline  bool                 `json:"createdOffline"`
	Items           []ReceiptItemPayload `json:"items"`
}

// CreateReceiptPayload is the receipt submission body
type CreateReceiptPayload struct {
	MerchantID      string               `json:"merchantId"`
	ClientReceiptID string               `json:"clientReceiptId"`
	IssuedAt        time.Time            `json:"issuedAt"`
	PaymentMethod   string               `json:"paymentMethod"`
	Currency        string               `json:"currency"`
	SubtotalCents   int64                `json:"subtotalCents"`
	TaxCents        int64                `json:"taxCents"`
	TotalCents      int64                `json:"totalCents"`
	CreatedOffline  bool                 `json:"createdOffline"`
	Items           []ReceiptItemPayload `json:"items"`
}

// MePayload is the /me answer
type MePayload struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
	Merchants []MerchantPayload `json:"merchants"`
}

type itemEnvelope[T any] struct {
	Item       T     `json:"item"`
	Idempotent *bool `json:"idempotent"`
}

type itemsEnvelope[T any] struct {
	Items []T `json:"items"`
}

// LoginPayload is the dev-login answer
type LoginPayload struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
	Merchants []MerchantPayload `json:"merchants"`
}

// DevLogin exchanges email and password for a bearer token
func (c *Client) DevLogin(ctx context.Context, email, password string) (*LoginPayload, error) {
	body := map[string]string{"email": email, "password": password}
	var out LoginPayload
	if err := c.do(ctx, http.MethodPost, "/api/auth/dev-login", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the authenticated user's identity and merchants
func (c *Client) Me(ctx context.Context) (*MePayload, error) {
	var out MePayload
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Products lists the tenant's products; a non-nil updatedSince asks only
// for catalog entries changed at or after that instant.
func (c *Client) Products(ctx context.Context, updatedSince *time.Time) ([]ProductPayload, error) {
	query := url.Values{}
	if updatedSince != nil {
		query.Set("updatedSince", updatedSince.UTC().Format(time.RFC3339))
	}
	var out itemsEnvelope[ProductPayload]
	if err := c.do(ctx, http.MethodGet, "/api/products", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// CreateProduct creates a product on the backend
func (c *Client) CreateProduct(ctx context.Context, p *ProductPayload) (*ProductPayload, error) {
	var out itemEnvelope[ProductPayload]
	if err := c.do(ctx, http.MethodPost, "/api/products", nil, p, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// UpdateProduct updates a product on the backend
func (c *Client) UpdateProduct(ctx context.Context, id string, p *ProductPayload) (*ProductPayload, error) {
	var out itemEnvelope[ProductPayload]
	if err := c.do(ctx, http.MethodPut, "/api/products/"+id, nil, p, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// Receipts lists the tenant's receipts
func (c *Client) Receipts(ctx context.Context) ([]ReceiptPayload, error) {
	var out itemsEnvelope[ReceiptPayload]
	if err := c.do(ctx, http.MethodGet, "/api/receipts", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Receipt fetches one receipt by backend ID
func (c *Client) Receipt(ctx context.Context, id string) (*ReceiptPayload, error) {
	var out itemEnvelope[ReceiptPayload]
	if err := c.do(ctx, http.MethodGet, "/api/receipts/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// CreateReceipt submits a receipt. The returned bool reports whether the
// backend had already stored this clientReceiptId (a replay).
func (c *Client) CreateReceipt(ctx context.Context, payload *CreateReceiptPayload) (*ReceiptPayload, bool, error) {
	var out itemEnvelope[ReceiptPayload]
	if err := c.do(ctx, http.MethodPost, "/api/receipts", nil, payload, &out); err != nil {
		return nil, false, err
	}
	idempotent := out.Idempotent != nil && *out.Idempotent
	return &out.Item, idempotent, nil
}

// VoidReceipt voids a receipt on the backend
func (c *Client) VoidReceipt(ctx context.Context, id string) (*ReceiptPayload, error) {
	var out itemEnvelope[ReceiptPayload]
	if err := c.do(ctx, http.MethodPost, "/api/receipts/"+id+"/void", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// RefundReceipt refunds a receipt on the backend
func (c *Client) RefundReceipt(ctx context.Context, id string) (*ReceiptPayload, error) {
	var out itemEnvelope[ReceiptPayload]
	if err := c.do(ctx, http.MethodPost, "/api/receipts/"+id+"/refund", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}
