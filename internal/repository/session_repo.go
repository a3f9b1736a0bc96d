package repository

import (
	"context"
	"errors"
	"time"

	"travelo/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	// Validate answers "is this session still good for this user" and bumps
	// the session's last-activity timestamp when it is. Returns nil when no
	// matching active row exists.
	Validate(ctx context.Context, userID, sessionID uuid.UUID) (*entity.Session, error)
	Revoke(ctx context.Context, userID, sessionID uuid.UUID) error
	RevokeOthers(ctx context.Context, userID, exceptSessionID uuid.UUID) error
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, s *entity.Session) error {
	if s.LastActiveAt.IsZero() {
		s.LastActiveAt = time.Now()
	}
	s.IsActive = true
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepository) Validate(ctx context.Context, userID, sessionID uuid.UUID) (*entity.Session, error) {
	var session entity.Session
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_active = ?", sessionID, userID, true).
		First(&session).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	session.LastActiveAt = time.Now()
	err = r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("id = ?", session.ID).
		Update("last_active_at", session.LastActiveAt).
		Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Revoke(ctx context.Context, userID, sessionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		Delete(&entity.Session{}).
		Error
}

func (r *sessionRepository) RevokeOthers(ctx context.Context, userID, exceptSessionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND id <> ?", userID, exceptSessionID).
		Delete(&entity.Session{}).
		Error
}

func (r *sessionRepository) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&entity.Session{}).
		Error
}
