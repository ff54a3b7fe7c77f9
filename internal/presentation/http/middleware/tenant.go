package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	infraRepo "github.com/spidlabs/spidpos/internal/infrastructure/repository"
	"github.com/spidlabs/spidpos/internal/presentation/http/dto/response"
)

// MerchantIDHeader selects the tenant a request acts for
const MerchantIDHeader = "X-Merchant-Id"

// TenantMiddleware enforces tenant access on every scoped route. The
// header names the tenant, the token's merchant_ids claim authorizes it:
// missing or malformed header is 400, a merchant outside the claim is
// 403. On success the merchant ID is placed both in the gin context and
// in the request context for repository scoping. Runs after
// AuthMiddleware.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(MerchantIDHeader)
		if header == "" {
			response.BadRequest(c, "X-Merchant-Id header is required")
			c.Abort()
			return
		}

		merchantID, err := uuid.Parse(header)
		if err != nil {
			response.BadRequest(c, "X-Merchant-Id must be a valid UUID")
			c.Abort()
			return
		}

		claimed, exists := c.Get("merchant_ids")
		if !exists {
			response.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}

		allowed := false
		for _, id := range claimed.([]uuid.UUID) {
			if id == merchantID {
				allowed = true
				break
			}
		}
		if !allowed {
			response.Forbidden(c, "Forbidden for this merchant")
			c.Abort()
			return
		}

		c.Set("merchant_id", merchantID)
		c.Request = c.Request.WithContext(infraRepo.WithMerchant(c.Request.Context(), merchantID))

		c.Next()
	}
}
