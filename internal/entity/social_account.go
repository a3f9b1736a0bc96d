package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SocialProvider string

const (
	ProviderGoogle   SocialProvider = "google"
	ProviderFacebook SocialProvider = "facebook"
)

func (p SocialProvider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderFacebook:
		return true
	}
	return false
}

// SocialAccount links a user to one external identity provider account.
type SocialAccount struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`
	User   User      `gorm:"constraint:OnDelete:CASCADE"`

	Provider       SocialProvider `gorm:"type:varchar(32);not null;uniqueIndex:idx_social_provider_subject"`
	ProviderUserID string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_social_provider_subject"`

	CreatedAt time.Time
}

func (a *SocialAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
