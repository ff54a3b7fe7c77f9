package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/spidlabs/spidpos/internal/application/service"
	"github.com/spidlabs/spidpos/internal/presentation/http/dto/request"
	"github.com/spidlabs/spidpos/internal/presentation/http/dto/response"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// DevLogin handles POST /api/auth/dev-login. Issues a bearer token for
// development and terminal provisioning; production deployments put an
// identity provider in front instead.
func (h *AuthHandler) DevLogin(c *gin.Context) {
	var req request.DevLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	output, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(200, gin.H{
		"token":     output.Token,
		"user":      output.User,
		"merchants": output.Merchants,
	})
}
