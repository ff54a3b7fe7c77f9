package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/spidlabs/spidpos/internal/domain/entity"
)

// MerchantRepository defines the interface for merchant data operations
type MerchantRepository interface {
	// GetByID retrieves a merchant by ID
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Merchant, error)

	// List retrieves all merchants ordered by name
	List(ctx context.Context) ([]entity.Merchant, error)

	// Upsert creates or administratively updates a merchant
	Upsert(ctx context.Context, merchant *entity.Merchant) error

	// GetUserMerchants retrieves the merchants a user is a member of
	GetUserMerchants(ctx context.Context, userID uuid.UUID) ([]entity.Merchant, error)

	// IsMember checks whether a user may act for a merchant
	IsMember(ctx context.Context, merchantID, userID uuid.UUID) (bool, error)

	// AddMember grants a user access to a merchant
	AddMember(ctx context.Context, membership *entity.MerchantUser) error
}
