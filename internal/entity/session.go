package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is one logged-in device or browser instance. Every login event
// creates a fresh row; a session authenticates requests only while the row
// exists and IsActive is set.
type Session struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`
	User   User      `gorm:"constraint:OnDelete:CASCADE"`

	IsActive     bool `gorm:"not null;default:true"`
	LastActiveAt time.Time

	CreatedAt time.Time
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
