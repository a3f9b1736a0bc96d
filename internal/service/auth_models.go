package service

import (
	"travelo/internal/entity"

	"github.com/google/uuid"
)

type RegisterInput struct {
	Email       string
	Phone       string
	Password    string
	Role        entity.UserRole
	FirstName   string
	LastName    string
	CompanyName string
	AgencyName  string
}

type LoginInput struct {
	Email    string
	Phone    string
	Password string
}

type SocialLoginInput struct {
	Provider      entity.SocialProvider
	ProviderToken string
}

// AuthResult is what every successful login-shaped operation returns: the
// user plus a freshly minted access/refresh pair bound to a new session.
type AuthResult struct {
	User             *entity.User
	SessionID        uuid.UUID
	AccessToken      string
	ExpiresIn        int64
	RefreshToken     string
	RefreshExpiresIn int64
}
