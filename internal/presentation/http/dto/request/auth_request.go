package request

// DevLoginRequest represents a dev-login request. This endpoint stands in
// for the external identity provider in development setups.
type DevLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
