package repository

import (
	"context"
	"testing"
	"time"

	"travelo/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionValidateBumpsActivity(t *testing.T) {
	db := openTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	user := createTestUser(t, db, "sessions@example.com")

	session := &entity.Session{
		UserID:       user.ID,
		LastActiveAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, repo.Create(ctx, session))

	got, err := repo.Validate(ctx, user.ID, session.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.ID, got.ID)
	assert.WithinDuration(t, time.Now(), got.LastActiveAt, 5*time.Second)
}

func TestSessionValidateUnknownOrForeign(t *testing.T) {
	db := openTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner@example.com")
	other := createTestUser(t, db, "other@example.com")

	session := &entity.Session{UserID: owner.ID}
	require.NoError(t, repo.Create(ctx, session))

	got, err := repo.Validate(ctx, owner.ID, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)

	// A session never validates for anyone but its owner.
	got, err = repo.Validate(ctx, other.ID, session.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionRevokeIsImmediate(t *testing.T) {
	db := openTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	user := createTestUser(t, db, "revoke@example.com")

	session := &entity.Session{UserID: user.ID}
	require.NoError(t, repo.Create(ctx, session))
	require.NoError(t, repo.Revoke(ctx, user.ID, session.ID))

	got, err := repo.Validate(ctx, user.ID, session.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionRevokeOthersKeepsCaller(t *testing.T) {
	db := openTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	user := createTestUser(t, db, "devices@example.com")

	var sessions []*entity.Session
	for i := 0; i < 3; i++ {
		s := &entity.Session{UserID: user.ID}
		require.NoError(t, repo.Create(ctx, s))
		sessions = append(sessions, s)
	}
	caller := sessions[1]

	require.NoError(t, repo.RevokeOthers(ctx, user.ID, caller.ID))

	for _, s := range sessions {
		got, err := repo.Validate(ctx, user.ID, s.ID)
		require.NoError(t, err)
		if s.ID == caller.ID {
			assert.NotNil(t, got)
		} else {
			assert.Nil(t, got)
		}
	}
}

func TestSessionRevokeAll(t *testing.T) {
	db := openTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	user := createTestUser(t, db, "all@example.com")
	bystander := createTestUser(t, db, "bystander@example.com")

	first := &entity.Session{UserID: user.ID}
	second := &entity.Session{UserID: user.ID}
	foreign := &entity.Session{UserID: bystander.ID}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, foreign))

	require.NoError(t, repo.RevokeAll(ctx, user.ID))

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		got, err := repo.Validate(ctx, user.ID, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	got, err := repo.Validate(ctx, bystander.ID, foreign.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
