package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/spidlabs/spidpos/internal/application/service"
	"github.com/spidlabs/spidpos/internal/presentation/http/dto/response"
)

// MerchantHandler handles merchant-related HTTP requests
type MerchantHandler struct {
	merchantService *service.MerchantService
}

// NewMerchantHandler creates a new merchant handler
func NewMerchantHandler(merchantService *service.MerchantService) *MerchantHandler {
	return &MerchantHandler{merchantService: merchantService}
}

// Me handles GET /api/me: the authenticated user's identity plus the
// merchants they may act for. Terminals call this once after login to
// populate the merchant picker; not tenant-scoped, so no X-Merchant-Id.
func (h *MerchantHandler) Me(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "Authentication required")
		return
	}

	merchants, err := h.merchantService.GetUserMerchants(c.Request.Context(), *userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(200, gin.H{
		"user": gin.H{
			"id":    userID,
			"email": c.GetString("user_email"),
			"name":  c.GetString("user_name"),
		},
		"merchants": merchants,
	})
}

// List handles GET /api/merchants: the administrative merchant list
func (h *MerchantHandler) List(c *gin.Context) {
	merchants, err := h.merchantService.ListMerchants(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Items(c, merchants)
}

// Current handles GET /api/merchants/current for the tenant in scope
func (h *MerchantHandler) Current(c *gin.Context) {
	merchantID := GetMerchantID(c)
	if merchantID == nil {
		response.BadRequest(c, "X-Merchant-Id header is required")
		return
	}

	merchant, err := h.merchantService.GetMerchant(c.Request.Context(), *merchantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Item(c, 200, merchant)
}
