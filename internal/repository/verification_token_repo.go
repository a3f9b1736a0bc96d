package repository

import (
	"context"
	"errors"
	"time"

	"travelo/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VerificationTokenRepository interface {
	// Upsert replaces any outstanding token of the same kind for the user,
	// keeping at most one live record per (user, kind).
	Upsert(ctx context.Context, token *entity.VerificationToken) error
	FindValid(ctx context.Context, userID uuid.UUID, kind entity.VerificationKind, tokenHash string) (*entity.VerificationToken, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type verificationTokenRepository struct {
	db *gorm.DB
}

func NewVerificationTokenRepository(db *gorm.DB) VerificationTokenRepository {
	return &verificationTokenRepository{db: db}
}

func (r *verificationTokenRepository) Upsert(ctx context.Context, t *entity.VerificationToken) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"token_hash", "expires_at", "created_at"}),
		}).
		Create(t).Error
}

func (r *verificationTokenRepository) FindValid(
	ctx context.Context,
	userID uuid.UUID,
	kind entity.VerificationKind,
	tokenHash string,
) (*entity.VerificationToken, error) {

	var token entity.VerificationToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND token_hash = ? AND expires_at > ?",
			userID, kind, tokenHash, time.Now()).
		First(&token).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &token, err
}

func (r *verificationTokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.VerificationToken{}).
		Error
}
