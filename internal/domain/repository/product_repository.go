package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spidlabs/spidpos/internal/domain/entity"
)

// ProductRepository defines the interface for product data operations.
// All queries are scoped to the tenant carried in the context.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	List(ctx context.Context, params *ProductFilterParams) ([]entity.Product, error)
}

// ProductFilterParams contains filtering parameters for product queries
type ProductFilterParams struct {
	// UpdatedSince limits results to products changed at or after the
	// given instant; used by terminals for incremental catalog sync.
	UpdatedSince *time.Time
	ActiveOnly   bool
}
