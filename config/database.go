package config

import (
	"fmt"

	"travelo/internal/entity"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// OpenDatabase connects to Postgres. The caller owns the handle and is
// responsible for closing it through CloseDatabase on shutdown.
func OpenDatabase(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: cfg.DatabaseURL,
	}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func CloseDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Profile{},
		&entity.ProviderProfile{},
		&entity.AgencyProfile{},
		&entity.Session{},
		&entity.VerificationToken{},
		&entity.SocialAccount{},
		&entity.AuthEvent{},
	)
}
