package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleUser     UserRole = "user"
	UserRoleProvider UserRole = "provider"
	UserRoleAgency   UserRole = "agency"
	UserRoleAdmin    UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleUser, UserRoleProvider, UserRoleAgency, UserRoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Phone        *string   `gorm:"type:varchar(32);uniqueIndex"`
	PasswordHash string    `gorm:"type:text;not null"`
	Role         UserRole  `gorm:"type:varchar(16);default:'user';not null"`

	EmailVerifiedAt *time.Time
	PhoneVerifiedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// The role decides which profile rows exist: every user carries a base
	// Profile, providers and agencies additionally carry their own record.
	Profile         *Profile
	ProviderProfile *ProviderProfile
	AgencyProfile   *AgencyProfile

	Sessions []Session
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
