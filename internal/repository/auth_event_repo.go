package repository

import (
	"context"

	"travelo/internal/entity"

	"gorm.io/gorm"
)

type AuthEventRepository interface {
	Record(ctx context.Context, event *entity.AuthEvent) error
}

type authEventRepository struct {
	db *gorm.DB
}

func NewAuthEventRepository(db *gorm.DB) AuthEventRepository {
	return &authEventRepository{db: db}
}

func (r *authEventRepository) Record(ctx context.Context, event *entity.AuthEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
