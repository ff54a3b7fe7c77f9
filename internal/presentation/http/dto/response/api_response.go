package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spidlabs/spidpos/pkg/apperror"
)

// The wire shapes below are contractual: offline terminals parse them,
// so responses are {"item": ...}, {"items": [...]} and
// {"error": "...", "details": [...]} with no extra envelope.

// ItemResponse wraps a single resource
type ItemResponse struct {
	Item       interface{} `json:"item"`
	Idempotent *bool       `json:"idempotent,omitempty"`
}

// ItemsResponse wraps a collection
type ItemsResponse struct {
	Items interface{} `json:"items"`
}

// ErrorResponse carries a human-readable error, optionally with
// field-level details for validation failures
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// Item sends a single resource
func Item(c *gin.Context, statusCode int, item interface{}) {
	c.JSON(statusCode, ItemResponse{Item: item})
}

// ItemWithIdempotent sends a single resource flagged with whether the
// request was a replay. 201 for a fresh creation, 200 for a replay.
func ItemWithIdempotent(c *gin.Context, item interface{}, idempotent bool) {
	statusCode := http.StatusCreated
	if idempotent {
		statusCode = http.StatusOK
	}
	c.JSON(statusCode, ItemResponse{Item: item, Idempotent: &idempotent})
}

// Items sends a collection
func Items(c *gin.Context, items interface{}) {
	c.JSON(http.StatusOK, ItemsResponse{Items: items})
}

// Error sends an error response
func Error(c *gin.Context, err error) {
	appErr := apperror.GetAppError(err)
	resp := ErrorResponse{Error: appErr.Message}
	if len(appErr.Fields) > 0 {
		resp.Details = appErr.Fields
	}
	c.JSON(appErr.Code, resp)
}

// ErrorWithCode sends an error response with a specific status code
func ErrorWithCode(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorResponse{Error: message})
}

// BadRequest sends a 400 Bad Request response
func BadRequest(c *gin.Context, message string) {
	ErrorWithCode(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 Unauthorized response
func Unauthorized(c *gin.Context, message string) {
	ErrorWithCode(c, http.StatusUnauthorized, message)
}

// Forbidden sends a 403 Forbidden response
func Forbidden(c *gin.Context, message string) {
	ErrorWithCode(c, http.StatusForbidden, message)
}

// NotFound sends a 404 Not Found response
func NotFound(c *gin.Context, message string) {
	ErrorWithCode(c, http.StatusNotFound, message)
}
