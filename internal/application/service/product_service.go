package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/spidlabs/spidpos/internal/domain/entity"
	"github.com/spidlabs/spidpos/internal/domain/repository"
	infraRepo "github.com/spidlabs/spidpos/internal/infrastructure/repository"
	"github.com/spidlabs/spidpos/pkg/apperror"
)

// ProductService handles product catalog operations
type ProductService struct {
	productRepo repository.ProductRepository
}

// NewProductService creates a new product service
func NewProductService(productRepo repository.ProductRepository) *ProductService {
	return &ProductService{productRepo: productRepo}
}

// CreateProductInput represents the create product input
type CreateProductInput struct {
	Name       string
	PriceCents int64
	VATRate    float64
	Category   string
	SKU        string
}

// CreateProduct creates a new product for the tenant in context
func (s *ProductService) CreateProduct(ctx context.Context, input *CreateProductInput) (*entity.Product, error) {
	merchantID, ok := infraRepo.GetMerchantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Merchant context required")
	}

	if fields := validateProduct(input.Name, input.PriceCents, input.VATRate); len(fields) > 0 {
		return nil, apperror.NewValidationError(fields)
	}

	product := &entity.Product{
		MerchantID: merchantID,
		Name:       input.Name,
		PriceCents: input.PriceCents,
		VATRate:    input.VATRate,
		Category:   input.Category,
		SKU:        input.SKU,
		IsActive:   true,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// UpdateProductInput represents the update product input. Nil pointers
// leave the field unchanged.
type UpdateProductInput struct {
	Name       *string
	PriceCents *int64
	VATRate    *float64
	Category   *string
	SKU        *string
	IsActive   *bool
}

// UpdateProduct updates a product. Deactivation happens here via IsActive;
// products are never deleted.
func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, input *UpdateProductInput) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperror.NewNotFoundError("Product")
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.PriceCents != nil {
		product.PriceCents = *input.PriceCents
	}
	if input.VATRate != nil {
		product.VATRate = *input.VATRate
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.SKU != nil {
		product.SKU = *input.SKU
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if fields := validateProduct(product.Name, product.PriceCents, product.VATRate); len(fields) > 0 {
		return nil, apperror.NewValidationError(fields)
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// GetProduct retrieves a product by ID
func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperror.NewNotFoundError("Product")
	}
	return product, nil
}

// ListProducts lists the tenant's products
func (s *ProductService) ListProducts(ctx context.Context, params *repository.ProductFilterParams) ([]entity.Product, error) {
	if params == nil {
		params = &repository.ProductFilterParams{}
	}
	return s.productRepo.List(ctx, params)
}

func validateProduct(name string, priceCents int64, vatRate float64) []apperror.FieldError {
	var fields []apperror.FieldError
	if name == "" {
		fields = append(fields, apperror.FieldError{Path: "name", Message: "is required"})
	}
	if priceCents < 0 {
		fields = append(fields, apperror.FieldError{Path: "priceCents", Message: "must not be negative"})
	}
	if vatRate < 0 || vatRate > 100 {
		fields = append(fields, apperror.FieldError{Path: "vatRate", Message: "must be between 0 and 100"})
	}
	return fields
}
