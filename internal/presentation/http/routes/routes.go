package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spidlabs/spidpos/internal/config"
	"github.com/spidlabs/spidpos/internal/presentation/http/handler"
	"github.com/spidlabs/spidpos/internal/presentation/http/middleware"
	"github.com/spidlabs/spidpos/pkg/utils"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Auth     *handler.AuthHandler
	Merchant *handler.MerchantHandler
	Product  *handler.ProductHandler
	Receipt  *handler.ReceiptHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager *utils.JWTManager
	Cfg        *config.Config
}

// Setup creates the gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})

	api := router.Group("/api")
	{
		// Public routes (no authentication required)
		api.POST("/auth/dev-login", h.Auth.DevLogin)

		// Authenticated but not tenant-scoped
		authed := api.Group("")
		authed.Use(middleware.AuthMiddleware(deps.JWTManager))
		authed.GET("/me", h.Merchant.Me)
		authed.GET("/merchants", h.Merchant.List)

		// Tenant-scoped routes: auth, then the tenant guard, then the
		// per-merchant rate limiter.
		scoped := authed.Group("")
		scoped.Use(middleware.TenantMiddleware())

		rateLimiter := middleware.NewMerchantRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: float64(deps.Cfg.RateLimit.Requests) / float64(deps.Cfg.RateLimit.Duration),
			BurstSize:         deps.Cfg.RateLimit.Requests,
			CleanupInterval:   5 * time.Minute,
			EntryTTL:          10 * time.Minute,
		})
		scoped.Use(rateLimiter.Middleware())

		scoped.GET("/merchants/current", h.Merchant.Current)

		scoped.GET("/products", h.Product.List)
		scoped.POST("/products", h.Product.Create)
		scoped.GET("/products/:id", h.Product.Get)
		scoped.PUT("/products/:id", h.Product.Update)

		scoped.GET("/receipts", h.Receipt.List)
		scoped.POST("/receipts", h.Receipt.Create)
		scoped.GET("/receipts/:id", h.Receipt.Get)
		scoped.POST("/receipts/:id/void", h.Receipt.Void)
		scoped.POST("/receipts/:id/refund", h.Receipt.Refund)
	}

	return router
}
