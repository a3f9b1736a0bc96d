package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Purpose declares what a signed token may be used for. Verification
// rejects a token presented under any purpose other than the one it was
// signed with, and each purpose is signed with its own secret.
type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposeRefresh       Purpose = "refresh"
	PurposePasswordReset Purpose = "password_reset"
	PurposeEmailVerify   Purpose = "email_verify"
	PurposePhoneVerify   Purpose = "phone_verify"
)

// Payload is the identity carried inside a signed token. SessionID is
// uuid.Nil for one-time tokens (reset, verification) that are not bound
// to a login session.
type Payload struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	Role      string
	Email     string
}

type Secrets map[Purpose][]byte

// Codec signs and verifies purpose-typed JWTs. It holds no state beyond
// its configuration; Clock is overridable for tests and defaults to
// time.Now.
type Codec struct {
	Secrets Secrets
	Issuer  string
	Clock   func() time.Time
}

type claims struct {
	Role      string `json:"role,omitempty"`
	Email     string `json:"email,omitempty"`
	SessionID string `json:"sid,omitempty"`
	Purpose   string `json:"pur"`
	jwt.RegisteredClaims
}

func (c Codec) Sign(payload Payload, purpose Purpose, ttl time.Duration) (string, error) {
	secret, ok := c.Secrets[purpose]
	if !ok || len(secret) == 0 {
		return "", fmt.Errorf("no secret configured for purpose %q", purpose)
	}
	if payload.UserID == uuid.Nil {
		return "", errors.New("payload requires a user id")
	}

	now := c.now()
	tokenClaims := claims{
		Role:    payload.Role,
		Email:   payload.Email,
		Purpose: string(purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			// A unique jti keeps two tokens minted in the same second from
			// colliding byte for byte.
			ID:        uuid.NewString(),
			Issuer:    c.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if payload.SessionID != uuid.Nil {
		tokenClaims.SessionID = payload.SessionID.String()
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims).SignedString(secret)
}

// Verify validates the signature and expiry of raw under the secret for
// purpose. It returns ErrTokenExpired only when the token is otherwise
// well formed but past its expiry; every other failure, including a
// purpose mismatch, collapses to ErrTokenInvalid.
func (c Codec) Verify(raw string, purpose Purpose) (Payload, error) {
	secret, ok := c.Secrets[purpose]
	if !ok || len(secret) == 0 {
		return Payload{}, ErrTokenInvalid
	}

	parsed, err := jwt.ParseWithClaims(raw, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Payload{}, ErrTokenExpired
		}
		return Payload{}, ErrTokenInvalid
	}

	tokenClaims, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return Payload{}, ErrTokenInvalid
	}
	if tokenClaims.Purpose != string(purpose) {
		return Payload{}, ErrTokenInvalid
	}

	userID, err := uuid.Parse(tokenClaims.Subject)
	if err != nil {
		return Payload{}, ErrTokenInvalid
	}
	payload := Payload{
		UserID: userID,
		Role:   tokenClaims.Role,
		Email:  tokenClaims.Email,
	}
	if tokenClaims.SessionID != "" {
		sessionID, err := uuid.Parse(tokenClaims.SessionID)
		if err != nil {
			return Payload{}, ErrTokenInvalid
		}
		payload.SessionID = sessionID
	}
	return payload, nil
}

func (c Codec) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}
