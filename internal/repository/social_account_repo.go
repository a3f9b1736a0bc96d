package repository

import (
	"context"
	"errors"

	"travelo/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SocialAccountRepository interface {
	Create(ctx context.Context, account *entity.SocialAccount) error
	FindByProviderSubject(ctx context.Context, provider entity.SocialProvider, providerUserID string) (*entity.SocialAccount, error)
	FindByUserAndProvider(ctx context.Context, userID uuid.UUID, provider entity.SocialProvider) (*entity.SocialAccount, error)
}

type socialAccountRepository struct {
	db *gorm.DB
}

func NewSocialAccountRepository(db *gorm.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

func (r *socialAccountRepository) Create(ctx context.Context, account *entity.SocialAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *socialAccountRepository) FindByProviderSubject(
	ctx context.Context,
	provider entity.SocialProvider,
	providerUserID string,
) (*entity.SocialAccount, error) {

	var account entity.SocialAccount
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		First(&account).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &account, err
}

func (r *socialAccountRepository) FindByUserAndProvider(
	ctx context.Context,
	userID uuid.UUID,
	provider entity.SocialProvider,
) (*entity.SocialAccount, error) {

	var account entity.SocialAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&account).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &account, err
}
