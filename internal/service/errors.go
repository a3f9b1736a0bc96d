package service

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidRole         = errors.New("invalid role")
	ErrEmailTaken          = errors.New("email already registered")
	ErrPhoneTaken          = errors.New("phone number already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrSessionInvalid      = errors.New("session is invalid or expired")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrSocialTokenInvalid  = errors.New("social provider token rejected")
	ErrUnsupportedProvider = errors.New("unsupported social provider")
	ErrUserNotFound        = errors.New("user not found")
)
