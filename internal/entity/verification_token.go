package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VerificationKind string

const (
	EmailVerify   VerificationKind = "email_verify"
	PhoneVerify   VerificationKind = "phone_verify"
	PasswordReset VerificationKind = "password_reset"
)

// VerificationToken is a one-time-use record backing email verification,
// phone verification, and password reset. At most one row exists per
// (user, kind); issuing a new token replaces the outstanding one. Rows are
// deleted on consumption and ignored past their expiry.
type VerificationToken struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_verification_user_kind"`
	User   User      `gorm:"constraint:OnDelete:CASCADE"`

	Kind      VerificationKind `gorm:"type:varchar(32);not null;uniqueIndex:idx_verification_user_kind"`
	TokenHash string           `gorm:"type:text;not null;index"`

	ExpiresAt time.Time
	CreatedAt time.Time
}

func (t *VerificationToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
