package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spidlabs/spidpos/internal/application/service"
	"github.com/spidlabs/spidpos/internal/config"
	"github.com/spidlabs/spidpos/internal/infrastructure/database"
	"github.com/spidlabs/spidpos/internal/infrastructure/repository"
	"github.com/spidlabs/spidpos/internal/presentation/http/handler"
	"github.com/spidlabs/spidpos/internal/presentation/http/routes"
	"github.com/spidlabs/spidpos/pkg/utils"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed demo merchants, products and the dev-login user
	if err := database.SeedDefaultData(db); err != nil {
		log.Printf("Warning: Failed to seed default data: %v", err)
	}

	// Initialize JWT manager
	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpiryHours)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	merchantRepo := repository.NewMerchantRepository(db)
	productRepo := repository.NewProductRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, merchantRepo, jwtManager)
	merchantService := service.NewMerchantService(merchantRepo)
	productService := service.NewProductService(productRepo)
	receiptService := service.NewReceiptService(receiptRepo)

	// Initialize handlers
	handlers := &routes.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Merchant: handler.NewMerchantHandler(merchantService),
		Product:  handler.NewProductHandler(productService),
		Receipt:  handler.NewReceiptHandler(receiptService),
	}

	router := routes.Setup(handlers, &routes.Deps{
		JWTManager: jwtManager,
		Cfg:        cfg,
	})

	log.Printf("Starting %s on port %s (env: %s)", cfg.App.Name, cfg.App.Port, cfg.App.Env)
	if err := router.Run(":" + cfg.App.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
