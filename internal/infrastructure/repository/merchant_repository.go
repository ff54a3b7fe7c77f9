package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/spidlabs/spidpos/internal/domain/entity"
	domainRepo "github.com/spidlabs/spidpos/internal/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type merchantRepository struct {
	db *gorm.DB
}

// NewMerchantRepository creates a new merchant repository
func NewMerchantRepository(db *gorm.DB) domainRepo.MerchantRepository {
	return &merchantRepository{db: db}
}

func (r *merchantRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Merchant, error) {
	var merchant entity.Merchant
	err := r.db.WithContext(ctx).First(&merchant, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (r *merchantRepository) List(ctx context.Context) ([]entity.Merchant, error) {
	var merchants []entity.Merchant
	err := r.db.WithContext(ctx).Order("name ASC").Find(&merchants).Error
	return merchants, err
}

func (r *merchantRepository) Upsert(ctx context.Context, merchant *entity.Merchant) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "vat_number", "address", "updated_at"}),
		}).
		Create(merchant).Error
}

func (r *merchantRepository) GetUserMerchants(ctx context.Context, userID uuid.UUID) ([]entity.Merchant, error) {
	var merchants []entity.Merchant
	err := r.db.WithContext(ctx).
		Joins("JOIN merchant_users ON merchant_users.merchant_id = merchants.id").
		Where("merchant_users.user_id = ?", userID).
		Order("merchants.name ASC").
		Find(&merchants).Error
	return merchants, err
}

func (r *merchantRepository) IsMember(ctx context.Context, merchantID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.MerchantUser{}).
		Where("merchant_id = ? AND user_id = ?", merchantID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *merchantRepository) AddMember(ctx context.Context, membership *entity.MerchantUser) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(membership).Error
}
