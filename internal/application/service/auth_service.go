package service

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/spidlabs/spidpos/internal/domain/entity"
	"github.com/spidlabs/spidpos/internal/domain/repository"
	"github.com/spidlabs/spidpos/pkg/apperror"
	"github.com/spidlabs/spidpos/pkg/utils"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles the dev-login flow that stands in for an external
// identity provider. Tokens it issues carry the user's merchant
// memberships as claims.
type AuthService struct {
	userRepo     repository.UserRepository
	merchantRepo repository.MerchantRepository
	jwtManager   *utils.JWTManager
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repository.UserRepository, merchantRepo repository.MerchantRepository, jwtManager *utils.JWTManager) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		merchantRepo: merchantRepo,
		jwtManager:   jwtManager,
	}
}

// LoginOutput carries the issued token and the authenticated user
type LoginOutput struct {
	Token     string
	User      *entity.User
	Merchants []entity.Merchant
}

// Login authenticates by email and password and issues a bearer token
// whose merchant_ids claim lists the user's memberships.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginOutput, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperror.ErrUnauthorized
	}

	merchants, err := s.merchantRepo.GetUserMerchants(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	merchantIDs := make([]uuid.UUID, 0, len(merchants))
	for _, m := range merchants {
		merchantIDs = append(merchantIDs, m.ID)
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Name, merchantIDs)
	if err != nil {
		return nil, err
	}

	log.Printf("AUDIT login user=%s merchants=%d", user.ID, len(merchantIDs))

	return &LoginOutput{Token: token, User: user, Merchants: merchants}, nil
}
