package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// TokenSource supplies the current bearer token; empty means
// unauthenticated.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource with a fixed value
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// ApiError is a non-2xx backend answer, decoded from the wire error
// shape {"error": "...", "details": [...]}.
type ApiError struct {
	Status  int
	Message string
	Details []FieldDetail
}

// FieldDetail is one field-level validation issue
type FieldDetail struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// IsConflict reports whether err is an HTTP 409 ApiError
func IsConflict(err error) bool {
	apiErr, ok := err.(*ApiError)
	return ok && apiErr.Status == http.StatusConflict
}

// Client is a thin typed wrapper over the backend HTTP API. Every
// request carries the bearer token and, for tenant-scoped calls, the
// X-Merchant-Id header.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	// MerchantID returns the currently selected tenant; empty skips the
	// header (login and /me calls).
	MerchantID func() string
	// OnUnauthorized fires on any 401 so the owner can drop its session.
	OnUnauthorized func()
}

// NewClient creates an API client with the given base URL and timeout
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		Tokens:     tokens,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Tokens != nil {
		if token := c.Tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if c.MerchantID != nil {
		if merchantID := c.MerchantID(); merchantID != "" {
			req.Header.Set("X-Merchant-Id", merchantID)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &ApiError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var wire struct {
			Error   string        `json:"error"`
			Details []FieldDetail `json:"details"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&wire); decodeErr == nil && wire.Error != "" {
			apiErr.Message = wire.Error
			apiErr.Details = wire.Details
		}
		if resp.StatusCode == http.StatusUnauthorized && c.OnUnauthorized != nil {
			c.OnUnauthorized()
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
