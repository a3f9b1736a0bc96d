package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"travelo/internal/entity"
	"travelo/internal/repository"
	"travelo/internal/token"
	"travelo/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Burned once per unknown-identifier login so that the response time does
// not reveal whether the account exists.
const dummyPasswordHash = "$2a$10$CwTycUXWue0Thq9StjUM0uJ8yQbWc1x9uxw2sQ2sXUNx5x9xJ9F2S"

type AuthService struct {
	users          repository.UserRepository
	sessions       repository.SessionRepository
	verifications  repository.VerificationTokenRepository
	socialAccounts repository.SocialAccountRepository
	events         repository.AuthEventRepository

	emailSender    EmailSender
	smsSender      SMSSender
	socialVerifier SocialVerifier
	passwordHash   PasswordHasher
	codec          TokenCodec
	clock          Clock
	log            *logrus.Logger
	config         AuthConfig
}

func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	verifications repository.VerificationTokenRepository,
	socialAccounts repository.SocialAccountRepository,
	events repository.AuthEventRepository,
	emailSender EmailSender,
	smsSender SMSSender,
	socialVerifier SocialVerifier,
	passwordHash PasswordHasher,
	codec TokenCodec,
	clock Clock,
	log *logrus.Logger,
	config AuthConfig,
) *AuthService {
	return &AuthService{
		users:          users,
		sessions:       sessions,
		verifications:  verifications,
		socialAccounts: socialAccounts,
		events:         events,
		emailSender:    emailSender,
		smsSender:      smsSender,
		socialVerifier: socialVerifier,
		passwordHash:   passwordHash,
		codec:          codec,
		clock:          clock,
		log:            log,
		config:         config,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput, ipAddress *string) (*AuthResult, error) {
	if strings.TrimSpace(input.Email) == "" || strings.TrimSpace(input.Password) == "" {
		return nil, ErrInvalidInput
	}
	if !input.Role.Valid() || input.Role == entity.UserRoleAdmin {
		return nil, ErrInvalidRole
	}

	email := utils.NormalizeEmail(input.Email)
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	phone := strings.TrimSpace(input.Phone)
	if phone != "" {
		existing, err = s.users.FindByPhone(ctx, phone)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrPhoneTaken
		}
	}

	hash, err := s.passwordHash.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		Profile: &entity.Profile{
			FirstName: strings.TrimSpace(input.FirstName),
			LastName:  strings.TrimSpace(input.LastName),
		},
	}
	if phone != "" {
		user.Phone = &phone
	}
	switch input.Role {
	case entity.UserRoleProvider:
		user.ProviderProfile = &entity.ProviderProfile{CompanyName: strings.TrimSpace(input.CompanyName)}
	case entity.UserRoleAgency:
		user.AgencyProfile = &entity.AgencyProfile{AgencyName: strings.TrimSpace(input.AgencyName)}
	}

	// User and profile rows land in one transaction via association create.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	// Verification deliveries after this point are independently retriable
	// notifications, not part of the registration contract.
	if err := s.sendEmailVerification(ctx, user); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("email verification delivery failed")
	}
	if phone != "" {
		if err := s.sendPhoneVerification(ctx, user); err != nil {
			s.log.WithError(err).WithField("user_id", user.ID).Warn("phone verification delivery failed")
		}
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.recordEvent(ctx, &user.ID, ipAddress, entity.ActionRegistered, map[string]any{"role": user.Role})
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput, ipAddress *string) (*AuthResult, error) {
	identifier := strings.TrimSpace(input.Email)
	if identifier == "" {
		identifier = strings.TrimSpace(input.Phone)
	}
	if identifier == "" || strings.TrimSpace(input.Password) == "" {
		return nil, ErrInvalidInput
	}

	var user *entity.User
	var err error
	if strings.TrimSpace(input.Email) != "" {
		user, err = s.users.FindByEmail(ctx, utils.NormalizeEmail(input.Email))
	} else {
		user, err = s.users.FindByPhone(ctx, strings.TrimSpace(input.Phone))
	}
	if err != nil {
		return nil, err
	}

	// Unknown identifier and wrong password fail identically.
	if user == nil {
		_ = s.passwordHash.Verify(dummyPasswordHash, input.Password)
		s.recordEvent(ctx, nil, ipAddress, entity.ActionLoginFailed, map[string]any{"identifier": identifier})
		return nil, ErrInvalidCredentials
	}
	if !s.passwordHash.Verify(user.PasswordHash, input.Password) {
		s.recordEvent(ctx, &user.ID, ipAddress, entity.ActionLoginFailed, nil)
		return nil, ErrInvalidCredentials
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.recordEvent(ctx, &user.ID, ipAddress, entity.ActionLoginSuccess, nil)
	return result, nil
}

func (s *AuthService) SocialLogin(ctx context.Context, input SocialLoginInput, ipAddress *string) (*AuthResult, error) {
	if s.socialVerifier == nil {
		return nil, ErrUnsupportedProvider
	}
	if !input.Provider.Valid() {
		return nil, ErrUnsupportedProvider
	}
	if strings.TrimSpace(input.ProviderToken) == "" {
		return nil, ErrInvalidInput
	}

	identity, err := s.socialVerifier.Verify(ctx, input.Provider, input.ProviderToken)
	if err != nil {
		s.log.WithError(err).WithField("provider", input.Provider).Warn("social token verification failed")
		return nil, ErrSocialTokenInvalid
	}

	// A returning social user is matched on the provider's subject id first,
	// so a later email change at the provider cannot fork the account.
	var user *entity.User
	existing, err := s.socialAccounts.FindByProviderSubject(ctx, input.Provider, identity.ProviderUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		user, err = s.users.FindByID(ctx, existing.UserID)
		if err != nil {
			return nil, err
		}
	}

	email := utils.NormalizeEmail(identity.Email)
	if user == nil {
		user, err = s.users.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
	}

	if user == nil {
		// First sight of this identity: the password hash is random and never
		// usable for password login.
		randomSecret, err := utils.GenerateRandomToken(32)
		if err != nil {
			return nil, err
		}
		hash, err := s.passwordHash.Hash(randomSecret)
		if err != nil {
			return nil, err
		}
		user = &entity.User{
			Email:        email,
			PasswordHash: hash,
			Role:         entity.UserRoleUser,
			Profile: &entity.Profile{
				FirstName: identity.FirstName,
				LastName:  identity.LastName,
			},
		}
		if identity.EmailVerified {
			now := s.clock.Now()
			user.EmailVerifiedAt = &now
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
	}

	account, err := s.socialAccounts.FindByUserAndProvider(ctx, user.ID, input.Provider)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = &entity.SocialAccount{
			UserID:         user.ID,
			Provider:       input.Provider,
			ProviderUserID: identity.ProviderUserID,
		}
		if err := s.socialAccounts.Create(ctx, account); err != nil {
			return nil, err
		}
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.recordEvent(ctx, &user.ID, ipAddress, entity.ActionSocialLogin, map[string]any{"provider": input.Provider})
	return result, nil
}

// Logout revokes the calling session only.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID uuid.UUID, ipAddress *string) error {
	if err := s.sessions.Revoke(ctx, userID, sessionID); err != nil {
		return err
	}
	s.recordEvent(ctx, &userID, ipAddress, entity.ActionLogout, nil)
	return nil
}

// LogoutOthers revokes every session of the user except the calling one.
func (s *AuthService) LogoutOthers(ctx context.Context, userID, sessionID uuid.UUID, ipAddress *string) error {
	if err := s.sessions.RevokeOthers(ctx, userID, sessionID); err != nil {
		return err
	}
	s.recordEvent(ctx, &userID, ipAddress, entity.ActionSessionsRevoked, map[string]any{"scope": "others"})
	return nil
}

// LogoutAll revokes every session of the user, the calling one included.
func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID, ipAddress *string) error {
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return err
	}
	s.recordEvent(ctx, &userID, ipAddress, entity.ActionSessionsRevoked, map[string]any{"scope": "all"})
	return nil
}

// ForgotPassword never reveals whether the email exists; callers answer with
// the same generic message either way.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrInvalidInput
	}

	user, err := s.users.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	resetToken, err := s.issueOneTimeToken(ctx, user, token.PurposePasswordReset, entity.PasswordReset, s.config.ResetTokenTTL)
	if err != nil {
		return err
	}

	if s.emailSender != nil {
		if err := s.emailSender.SendPasswordResetEmail(ctx, user.Email, resetToken); err != nil {
			s.log.WithError(err).WithField("user_id", user.ID).Warn("password reset delivery failed")
		}
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, rawToken string, newPassword string) error {
	if strings.TrimSpace(rawToken) == "" || strings.TrimSpace(newPassword) == "" {
		return ErrInvalidInput
	}

	payload, err := s.codec.Verify(rawToken, token.PurposePasswordReset)
	if err != nil {
		return ErrInvalidToken
	}

	record, err := s.verifications.FindValid(ctx, payload.UserID, entity.PasswordReset, utils.HashToken(rawToken))
	if err != nil {
		return err
	}
	if record == nil {
		return ErrInvalidToken
	}

	hash, err := s.passwordHash.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, payload.UserID, hash); err != nil {
		return err
	}
	if err := s.verifications.Delete(ctx, record.ID); err != nil {
		return err
	}

	// Force re-login everywhere. Access tokens already in the wild ride out
	// their own expiry; there is no blocklist.
	if err := s.sessions.RevokeAll(ctx, payload.UserID); err != nil {
		s.log.WithError(err).WithField("user_id", payload.UserID).Error("session revocation after password reset failed")
	}
	s.recordEvent(ctx, &payload.UserID, nil, entity.ActionPasswordReset, nil)
	return nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) error {
	if strings.TrimSpace(rawToken) == "" {
		return ErrInvalidInput
	}

	payload, err := s.codec.Verify(rawToken, token.PurposeEmailVerify)
	if err != nil {
		return ErrInvalidToken
	}

	record, err := s.verifications.FindValid(ctx, payload.UserID, entity.EmailVerify, utils.HashToken(rawToken))
	if err != nil {
		return err
	}
	if record == nil {
		return ErrInvalidToken
	}

	if err := s.users.MarkEmailVerified(ctx, payload.UserID); err != nil {
		return err
	}
	if err := s.verifications.Delete(ctx, record.ID); err != nil {
		return err
	}
	s.recordEvent(ctx, &payload.UserID, nil, entity.ActionEmailVerified, nil)
	return nil
}

func (s *AuthService) VerifyPhone(ctx context.Context, userID uuid.UUID, code string) error {
	if strings.TrimSpace(code) == "" {
		return ErrInvalidInput
	}

	record, err := s.verifications.FindValid(ctx, userID, entity.PhoneVerify, utils.HashToken(code))
	if err != nil {
		return err
	}
	if record == nil {
		return ErrInvalidToken
	}

	if err := s.users.MarkPhoneVerified(ctx, userID); err != nil {
		return err
	}
	if err := s.verifications.Delete(ctx, record.ID); err != nil {
		return err
	}
	s.recordEvent(ctx, &userID, nil, entity.ActionPhoneVerified, nil)
	return nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *AuthService) ListUsers(ctx context.Context, limit, offset int) ([]entity.User, error) {
	return s.users.List(ctx, limit, offset)
}

func (s *AuthService) RevokeUserSessions(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.RevokeAll(ctx, userID)
}

// startSession creates a fresh session row and mints the access/refresh pair
// bound to it. Concurrent sessions per user are unlimited.
func (s *AuthService) startSession(ctx context.Context, user *entity.User) (*AuthResult, error) {
	session := &entity.Session{
		UserID:       user.ID,
		LastActiveAt: s.clock.Now(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	payload := token.Payload{
		UserID:    user.ID,
		SessionID: session.ID,
		Role:      string(user.Role),
		Email:     user.Email,
	}
	accessToken, err := s.codec.Sign(payload, token.PurposeAccess, s.config.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.codec.Sign(payload, token.PurposeRefresh, s.config.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		User:             user,
		SessionID:        session.ID,
		AccessToken:      accessToken,
		ExpiresIn:        int64(s.config.AccessTokenTTL.Seconds()),
		RefreshToken:     refreshToken,
		RefreshExpiresIn: int64(s.config.RefreshTokenTTL.Seconds()),
	}, nil
}

func (s *AuthService) sendEmailVerification(ctx context.Context, user *entity.User) error {
	if s.emailSender == nil {
		return nil
	}
	verificationToken, err := s.issueOneTimeToken(ctx, user, token.PurposeEmailVerify, entity.EmailVerify, s.config.VerificationTokenTTL)
	if err != nil {
		return err
	}
	return s.emailSender.SendVerificationEmail(ctx, user.Email, verificationToken)
}

func (s *AuthService) sendPhoneVerification(ctx context.Context, user *entity.User) error {
	if s.smsSender == nil || user.Phone == nil {
		return nil
	}
	code, err := utils.GenerateNumericCode(6)
	if err != nil {
		return err
	}
	record := &entity.VerificationToken{
		UserID:    user.ID,
		Kind:      entity.PhoneVerify,
		TokenHash: utils.HashToken(code),
		ExpiresAt: s.clock.Now().Add(s.config.PhoneCodeTTL),
	}
	if err := s.verifications.Upsert(ctx, record); err != nil {
		return err
	}
	return s.smsSender.SendVerificationCode(ctx, *user.Phone, code)
}

// issueOneTimeToken mints a purpose-typed signed token and upserts the
// matching one-time record, replacing any outstanding token of that kind.
func (s *AuthService) issueOneTimeToken(
	ctx context.Context,
	user *entity.User,
	purpose token.Purpose,
	kind entity.VerificationKind,
	ttl time.Duration,
) (string, error) {
	signed, err := s.codec.Sign(token.Payload{
		UserID: user.ID,
		Role:   string(user.Role),
		Email:  user.Email,
	}, purpose, ttl)
	if err != nil {
		return "", err
	}

	record := &entity.VerificationToken{
		UserID:    user.ID,
		Kind:      kind,
		TokenHash: utils.HashToken(signed),
		ExpiresAt: s.clock.Now().Add(ttl),
	}
	if err := s.verifications.Upsert(ctx, record); err != nil {
		return "", err
	}
	return signed, nil
}

func (s *AuthService) recordEvent(
	ctx context.Context,
	userID *uuid.UUID,
	ipAddress *string,
	action entity.AuthAction,
	metadata map[string]any,
) {
	if s.events == nil {
		return
	}
	var payload datatypes.JSON
	if metadata != nil {
		bytes, err := json.Marshal(metadata)
		if err != nil {
			s.log.WithError(err).Warn("auth event metadata marshal failed")
			return
		}
		payload = datatypes.JSON(bytes)
	}

	event := &entity.AuthEvent{
		UserID:    userID,
		IPAddress: ipAddress,
		Action:    action,
		Metadata:  payload,
	}
	if err := s.events.Record(ctx, event); err != nil {
		s.log.WithError(err).WithField("action", action).Warn("auth event write failed")
	}
}
