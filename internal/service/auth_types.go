package service

import (
	"context"
	"time"

	"travelo/internal/entity"
	"travelo/internal/token"

	"golang.org/x/crypto/bcrypt"
)

type AuthConfig struct {
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	ResetTokenTTL        time.Duration
	VerificationTokenTTL time.Duration
	PhoneCodeTTL         time.Duration
}

type EmailSender interface {
	SendVerificationEmail(ctx context.Context, email string, token string) error
	SendPasswordResetEmail(ctx context.Context, email string, token string) error
}

type SMSSender interface {
	SendVerificationCode(ctx context.Context, phone string, code string) error
}

// SocialIdentity is what a provider vouches for after verifying the token a
// client handed us. EmailVerified is an explicit capability flag: only when
// the provider asserts it do we treat the email as pre-verified.
type SocialIdentity struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	FirstName      string
	LastName       string
}

type SocialVerifier interface {
	Verify(ctx context.Context, provider entity.SocialProvider, providerToken string) (*SocialIdentity, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash string, password string) bool
}

type TokenCodec interface {
	Sign(payload token.Payload, purpose token.Purpose, ttl time.Duration) (string, error)
	Verify(raw string, purpose token.Purpose) (token.Payload, error)
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

type BcryptPasswordHasher struct {
	Cost int
}

func (h BcryptPasswordHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func (h BcryptPasswordHasher) Verify(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
