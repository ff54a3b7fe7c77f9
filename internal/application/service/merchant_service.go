package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/spidlabs/spidpos/internal/domain/entity"
	"github.com/spidlabs/spidpos/internal/domain/repository"
	"github.com/spidlabs/spidpos/pkg/apperror"
)

// MerchantService handles merchant operations
type MerchantService struct {
	merchantRepo repository.MerchantRepository
}

// NewMerchantService creates a new merchant service
func NewMerchantService(merchantRepo repository.MerchantRepository) *MerchantService {
	return &MerchantService{merchantRepo: merchantRepo}
}

// GetMerchant retrieves a merchant by ID
func (s *MerchantService) GetMerchant(ctx context.Context, id uuid.UUID) (*entity.Merchant, error) {
	merchant, err := s.merchantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, apperror.NewNotFoundError("Merchant")
	}
	return merchant, nil
}

// ListMerchants retrieves all merchants, name-sorted
func (s *MerchantService) ListMerchants(ctx context.Context) ([]entity.Merchant, error) {
	return s.merchantRepo.List(ctx)
}

// GetUserMerchants retrieves the merchants the user is a member of
func (s *MerchantService) GetUserMerchants(ctx context.Context, userID uuid.UUID) ([]entity.Merchant, error) {
	return s.merchantRepo.GetUserMerchants(ctx, userID)
}
