package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetUserID extracts the user ID from the gin context
func GetUserID(c *gin.Context) *uuid.UUID {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return nil
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return nil
	}
	return &userID
}

// GetMerchantID extracts the merchant ID placed by the tenant guard
func GetMerchantID(c *gin.Context) *uuid.UUID {
	merchantIDVal, exists := c.Get("merchant_id")
	if !exists {
		return nil
	}
	merchantID, ok := merchantIDVal.(uuid.UUID)
	if !ok {
		return nil
	}
	return &merchantID
}
