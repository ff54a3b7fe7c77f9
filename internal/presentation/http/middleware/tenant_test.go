package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spidlabs/spidpos/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuardedRouter(t *testing.T, jwtManager *utils.JWTManager) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()

	scoped := router.Group("/api", AuthMiddleware(jwtManager), TenantMiddleware())
	scoped.GET("/probe", func(c *gin.Context) {
		merchantID := c.MustGet("merchant_id").(uuid.UUID)
		c.JSON(http.StatusOK, gin.H{"merchantId": merchantID.String()})
	})
	return router
}

func probe(router *gin.Engine, token, merchantHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/probe", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if merchantHeader != "" {
		req.Header.Set(MerchantIDHeader, merchantHeader)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestTenantGuard(t *testing.T) {
	jwtManager := utils.NewJWTManager("test-secret", time.Hour)
	router := newGuardedRouter(t, jwtManager)

	userID := uuid.New()
	allowed := uuid.New()
	other := uuid.New()

	token, err := jwtManager.GenerateToken(userID, "clerk@brewhaven.test", "Clerk", []uuid.UUID{allowed})
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		rec := probe(router, "", allowed.String())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed authorization header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/probe", nil)
		req.Header.Set("Authorization", token)
		req.Header.Set(MerchantIDHeader, allowed.String())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		rec := probe(router, "not-a-jwt", allowed.String())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := utils.NewJWTManager("test-secret", -time.Minute).
			GenerateToken(userID, "clerk@brewhaven.test", "Clerk", []uuid.UUID{allowed})
		require.NoError(t, err)
		rec := probe(router, expired, allowed.String())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing merchant header", func(t *testing.T) {
		rec := probe(router, token, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body["error"], "X-Merchant-Id")
	})

	t.Run("malformed merchant header", func(t *testing.T) {
		rec := probe(router, token, "not-a-uuid")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("merchant outside claims", func(t *testing.T) {
		rec := probe(router, token, other.String())
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("allowed merchant passes", func(t *testing.T) {
		rec := probe(router, token, allowed.String())
		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, allowed.String(), body["merchantId"])
	})
}

func TestTokenRoundTrip(t *testing.T) {
	jwtManager := utils.NewJWTManager("test-secret", time.Hour)
	userID := uuid.New()
	merchantID := uuid.New()

	token, err := jwtManager.GenerateToken(userID, "owner@brewhaven.test", "Owner", []uuid.UUID{merchantID})
	require.NoError(t, err)

	claims, err := jwtManager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "owner@brewhaven.test", claims.Email)
	assert.Equal(t, []uuid.UUID{merchantID}, claims.MerchantIDs)

	_, err = utils.NewJWTManager("wrong-secret", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}
