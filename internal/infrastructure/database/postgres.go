package database

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spidlabs/spidpos/internal/config"
	"github.com/spidlabs/spidpos/internal/domain/entity"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	logLevel := logger.Warn

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // disables implicit prepared statement usage
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Println("Successfully connected to PostgreSQL database")
	return db, nil
}

// AutoMigrate runs GORM auto-migration for all entities
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&entity.User{},
		&entity.Merchant{},
		&entity.MerchantUser{},
		&entity.MerchantCounter{},
		&entity.Product{},
		&entity.Receipt{},
		&entity.ReceiptItem{},
		&entity.SyncEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// Demo tenants. IDs are fixed so terminals seeded independently line up
// with the backend without an exchange step.
var (
	demoMerchantBrewHaven = uuid.MustParse("6f1f64a5-21ab-4c0e-9349-7a8f51f0a001")
	demoMerchantTrattoria = uuid.MustParse("6f1f64a5-21ab-4c0e-9349-7a8f51f0a002")
	demoUserID            = uuid.MustParse("9f52b6ad-8c11-49e8-bb1e-d1f0c77d1001")
)

// DemoMerchants returns the demo tenant records shared with terminal seeds.
func DemoMerchants() []entity.Merchant {
	return []entity.Merchant{
		{ID: demoMerchantBrewHaven, Name: "Brew Haven Coffee", VATNumber: "IT12345678901", Address: "12 Bean Street, Milan"},
		{ID: demoMerchantTrattoria, Name: "Trattoria Roma", VATNumber: "IT10987654321", Address: "8 Piazza Centro, Rome"},
	}
}

// DemoProducts returns the demo catalog shared with terminal seeds.
func DemoProducts() []entity.Product {
	return []entity.Product{
		{ID: uuid.MustParse("3f0a5ba0-0a10-45a1-8c30-c58a9b5e0001"), MerchantID: demoMerchantBrewHaven, Name: "Espresso", PriceCents: 180, VATRate: 10, Category: "Coffee", SKU: "COF-001", IsActive: true},
		{ID: uuid.MustParse("3f0a5ba0-0a10-45a1-8c30-c58a9b5e0002"), MerchantID: demoMerchantBrewHaven, Name: "Cappuccino", PriceCents: 320, VATRate: 10, Category: "Coffee", SKU: "COF-002", IsActive: true},
		{ID: uuid.MustParse("3f0a5ba0-0a10-45a1-8c30-c58a9b5e0003"), MerchantID: demoMerchantBrewHaven, Name: "Cafe Latte", PriceCents: 350, VATRate: 10, Category: "Coffee", SKU: "COF-003", IsActive: true},
		{ID: uuid.MustParse("3f0a5ba0-0a10-45a1-8c30-c58a9b5e0004"), MerchantID: demoMerchantBrewHaven, Name: "Butter Croissant", PriceCents: 250, VATRate: 10, Category: "Bakery", SKU: "BAK-001", IsActive: true},
		{ID: uuid.MustParse("3f0a5ba0-0a10-45a1-8c30-c58a9b5e0005"), MerchantID: demoMerchantBrewHaven, Name: "Club Sandwich", PriceCents: 720, VATRate: 10, Category: "Food", SKU: "FOD-001", IsActive: true},
		{ID: uuid.MustParse("3f0a5ba0-0a10-45a1-8c30-c58a9b5e0006"), MerchantID: demoMerchantTrattoria, Name: "Pizza Margherita", PriceCents: 1150, VATRate: 10, Category: "Main Course", SKU: "RST-001", IsActive: true},
		{ID: uuid.MustParse("3f0a5ba0-0a10-45a1-8c30-c58a9b5e0007"), MerchantID: demoMerchantTrattoria, Name: "Spaghetti Carbonara", PriceCents: 1350, VATRate: 10, Category: "Main Course", SKU: "RST-002", IsActive: true},
		{ID: uuid.MustParse("3f0a5ba0-0a10-45a1-8c30-c58a9b5e0008"), MerchantID: demoMerchantTrattoria, Name: "Lasagna", PriceCents: 1400, VATRate: 10, Category: "Main Course", SKU: "RST-003", IsActive: true},
		{ID: uuid.MustParse("3f0a5ba0-0a10-45a1-8c30-c58a9b5e0009"), MerchantID: demoMerchantTrattoria, Name: "Tiramisu", PriceCents: 650, VATRate: 10, Category: "Dessert", SKU: "RST-004", IsActive: true},
		{ID: uuid.MustParse("3f0a5ba0-0a10-45a1-8c30-c58a9b5e0010"), MerchantID: demoMerchantTrattoria, Name: "House Wine (Glass)", PriceCents: 550, VATRate: 22, Category: "Drinks", SKU: "RST-005", IsActive: true},
	}
}

// SeedDefaultData seeds demo merchants, catalog, counters and one operator
// so a fresh install can take a terminal through checkout and sync.
func SeedDefaultData(db *gorm.DB) error {
	log.Println("Seeding default data...")

	var merchantCount int64
	if err := db.Model(&entity.Merchant{}).Count(&merchantCount).Error; err != nil {
		return err
	}

	if merchantCount == 0 {
		for _, merchant := range DemoMerchants() {
			m := merchant
			if err := db.Create(&m).Error; err != nil {
				log.Printf("Warning: failed to seed merchant %s: %v", m.Name, err)
			}
			counter := entity.MerchantCounter{MerchantID: m.ID, LastNumber: 0}
			if err := db.Create(&counter).Error; err != nil {
				log.Printf("Warning: failed to seed counter for %s: %v", m.Name, err)
			}
		}
	}

	var productCount int64
	if err := db.Model(&entity.Product{}).Count(&productCount).Error; err != nil {
		return err
	}

	if productCount == 0 {
		for _, product := range DemoProducts() {
			p := product
			if err := db.Create(&p).Error; err != nil {
				log.Printf("Warning: failed to seed product %s: %v", p.Name, err)
			}
		}
	}

	var demoUser entity.User
	if err := db.Where("email = ?", "demo@spidpos.dev").First(&demoUser).Error; err != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte("demo-password"), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		demoUser = entity.User{
			ID:       demoUserID,
			Email:    "demo@spidpos.dev",
			Name:     "Demo Operator",
			Password: string(hashed),
		}
		if err := db.Create(&demoUser).Error; err != nil {
			log.Printf("Warning: failed to seed demo user: %v", err)
		} else {
			for _, merchant := range DemoMerchants() {
				membership := entity.MerchantUser{MerchantID: merchant.ID, UserID: demoUser.ID}
				if err := db.Create(&membership).Error; err != nil {
					log.Printf("Warning: failed to seed membership: %v", err)
				}
			}
		}
	}

	log.Println("Default data seeding completed")
	return nil
}
