package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/spidlabs/spidpos/internal/domain/entity"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Create(ctx context.Context, user *entity.User) error
}
