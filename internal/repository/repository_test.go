package repository

import (
	"context"
	"path/filepath"
	"testing"

	"travelo/internal/entity"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&entity.User{},
		&entity.Profile{},
		&entity.ProviderProfile{},
		&entity.AgencyProfile{},
		&entity.Session{},
		&entity.VerificationToken{},
		&entity.SocialAccount{},
		&entity.AuthEvent{},
	))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *entity.User {
	t.Helper()
	user := &entity.User{
		Email:        email,
		PasswordHash: "hash",
		Role:         entity.UserRoleUser,
		Profile:      &entity.Profile{FirstName: "Test", LastName: "User"},
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}
