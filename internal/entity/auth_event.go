package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuthAction string

const (
	ActionRegistered      AuthAction = "registered"
	ActionLoginSuccess    AuthAction = "login_success"
	ActionLoginFailed     AuthAction = "login_failed"
	ActionSocialLogin     AuthAction = "social_login"
	ActionLogout          AuthAction = "logout"
	ActionSessionsRevoked AuthAction = "sessions_revoked"
	ActionPasswordReset   AuthAction = "password_reset"
	ActionEmailVerified   AuthAction = "email_verified"
	ActionPhoneVerified   AuthAction = "phone_verified"
)

// AuthEvent is the append-only audit trail of authentication activity.
type AuthEvent struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID    *uuid.UUID `gorm:"type:uuid;index"`
	IPAddress *string    `gorm:"type:varchar(45)"`

	Action   AuthAction     `gorm:"type:varchar(32);not null;index"`
	Metadata datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time
}

func (e *AuthEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
