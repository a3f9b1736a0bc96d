package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"travelo/api/middleware"
	"travelo/internal/dto"
	"travelo/internal/entity"
	"travelo/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const forgotPasswordMessage = "If an account exists for that email, a reset link has been sent"

type AuthHandler struct {
	Service    *service.AuthService
	Validate   *validator.Validate
	Log        *logrus.Logger
	Cookies    middleware.CookieConfig
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewAuthHandler(svc *service.AuthService, validate *validator.Validate, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		Service:  svc,
		Validate: validate,
		Log:      log,
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate(req); err != nil {
		return writeValidationError(c, err)
	}

	input := service.RegisterInput{
		Email:       req.Email,
		Phone:       req.Phone,
		Password:    req.Password,
		Role:        entity.UserRole(req.Role),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		CompanyName: req.CompanyName,
		AgencyName:  req.AgencyName,
	}
	result, err := h.Service.Register(c.Request().Context(), input, clientIP(c))
	if err != nil {
		return h.writeServiceError(c, err, "register")
	}

	h.deliverTokens(c, result)
	return writeSuccess(c, http.StatusCreated, "Registered", authResponse(result))
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate(req); err != nil {
		return writeValidationError(c, err)
	}

	input := service.LoginInput{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	}
	result, err := h.Service.Login(c.Request().Context(), input, clientIP(c))
	if err != nil {
		return h.writeServiceError(c, err, "log in")
	}

	h.deliverTokens(c, result)
	return writeSuccess(c, http.StatusOK, "Logged in", authResponse(result))
}

func (h *AuthHandler) SocialLogin(c echo.Context) error {
	var req dto.SocialLoginRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate(req); err != nil {
		return writeValidationError(c, err)
	}

	input := service.SocialLoginInput{
		Provider:      entity.SocialProvider(req.Provider),
		ProviderToken: req.Token,
	}
	result, err := h.Service.SocialLogin(c.Request().Context(), input, clientIP(c))
	if err != nil {
		return h.writeServiceError(c, err, "log in")
	}

	h.deliverTokens(c, result)
	return writeSuccess(c, http.StatusOK, "Logged in", authResponse(result))
}

func (h *AuthHandler) Logout(c echo.Context) error {
	userID, sessionID, err := h.identity(c)
	if err != nil {
		return err
	}
	if err := h.Service.Logout(c.Request().Context(), userID, sessionID, clientIP(c)); err != nil {
		return h.writeServiceError(c, err, "log out")
	}
	h.clearTokenCookies(c)
	return writeSuccess(c, http.StatusOK, "Logged out", nil)
}

func (h *AuthHandler) LogoutOthers(c echo.Context) error {
	userID, sessionID, err := h.identity(c)
	if err != nil {
		return err
	}
	if err := h.Service.LogoutOthers(c.Request().Context(), userID, sessionID, clientIP(c)); err != nil {
		return h.writeServiceError(c, err, "log out other devices")
	}
	return writeSuccess(c, http.StatusOK, "Other devices logged out", nil)
}

func (h *AuthHandler) LogoutAll(c echo.Context) error {
	userID, _, err := h.identity(c)
	if err != nil {
		return err
	}
	if err := h.Service.LogoutAll(c.Request().Context(), userID, clientIP(c)); err != nil {
		return h.writeServiceError(c, err, "log out all devices")
	}
	h.clearTokenCookies(c)
	return writeSuccess(c, http.StatusOK, "All devices logged out", nil)
}

func (h *AuthHandler) PasswordForgot(c echo.Context) error {
	var req dto.PasswordForgotRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate(req); err != nil {
		return writeValidationError(c, err)
	}
	if err := h.Service.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return h.writeServiceError(c, err, "request password reset")
	}
	// Identical response whether or not the account exists.
	return writeSuccess(c, http.StatusOK, forgotPasswordMessage, nil)
}

func (h *AuthHandler) PasswordReset(c echo.Context) error {
	var req dto.PasswordResetRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate(req); err != nil {
		return writeValidationError(c, err)
	}
	if err := h.Service.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return h.writeServiceError(c, err, "reset password")
	}
	return writeSuccess(c, http.StatusOK, "Password updated", nil)
}

func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req dto.VerifyEmailRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate(req); err != nil {
		return writeValidationError(c, err)
	}
	if err := h.Service.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return h.writeServiceError(c, err, "verify email")
	}
	return writeSuccess(c, http.StatusOK, "Email verified", nil)
}

func (h *AuthHandler) VerifyPhone(c echo.Context) error {
	userID, _, err := h.identity(c)
	if err != nil {
		return err
	}
	var req dto.VerifyPhoneRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate(req); err != nil {
		return writeValidationError(c, err)
	}
	if err := h.Service.VerifyPhone(c.Request().Context(), userID, req.Code); err != nil {
		return h.writeServiceError(c, err, "verify phone")
	}
	return writeSuccess(c, http.StatusOK, "Phone verified", nil)
}

// Session reports whether the caller is recognized. It sits behind
// OptionalAuth, so anonymous callers get a normal 200 too.
func (h *AuthHandler) Session(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeSuccess(c, http.StatusOK, "OK", map[string]any{"authenticated": false})
	}
	user, err := h.Service.CurrentUser(c.Request().Context(), userID)
	if err != nil || user == nil {
		return writeSuccess(c, http.StatusOK, "OK", map[string]any{"authenticated": false})
	}
	return writeSuccess(c, http.StatusOK, "OK", map[string]any{
		"authenticated": true,
		"user":          dto.UserResponseFromEntity(user),
	})
}

func (h *AuthHandler) Me(c echo.Context) error {
	userID, _, err := h.identity(c)
	if err != nil {
		return err
	}
	user, err := h.Service.CurrentUser(c.Request().Context(), userID)
	if err != nil {
		return h.writeServiceError(c, err, "load profile")
	}
	if user == nil {
		return writeError(c, http.StatusNotFound, "User not found")
	}
	return writeSuccess(c, http.StatusOK, "OK", dto.UserResponseFromEntity(user))
}

func (h *AuthHandler) AdminListUsers(c echo.Context) error {
	limit, offset := parseLimitOffset(c)
	users, err := h.Service.ListUsers(c.Request().Context(), limit, offset)
	if err != nil {
		return h.writeServiceError(c, err, "list users")
	}
	return writeSuccess(c, http.StatusOK, "OK", dto.UserResponsesFromEntities(users))
}

func (h *AuthHandler) AdminRevokeUserSessions(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "Invalid user id")
	}
	if err := h.Service.RevokeUserSessions(c.Request().Context(), userID); err != nil {
		return h.writeServiceError(c, err, "revoke sessions")
	}
	return writeSuccess(c, http.StatusOK, "Sessions revoked", nil)
}

// identity reads the authenticated user and session from the request
// context. Its callers all sit behind Protect, so a missing identity means
// a mis-wired route; the returned error aborts the handler and lets the
// central error handler render the 401.
func (h *AuthHandler) identity(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	sessionID, ok := middleware.SessionIDFromContext(c)
	if !ok {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return userID, sessionID, nil
}

// deliverTokens sets the token cookies when cookie-auth mode is enabled;
// the response body always carries the pair for non-cookie clients.
func (h *AuthHandler) deliverTokens(c echo.Context, result *service.AuthResult) {
	if !h.Cookies.Enabled {
		return
	}
	h.setTokenCookie(c, "accessToken", result.AccessToken, h.AccessTTL)
	h.setTokenCookie(c, "refreshToken", result.RefreshToken, h.RefreshTTL)
}

func (h *AuthHandler) setTokenCookie(c echo.Context, name string, value string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.Cookies.Domain,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   h.Cookies.Secure,
		SameSite: h.Cookies.SameSite,
	})
}

func (h *AuthHandler) clearTokenCookies(c echo.Context) {
	if !h.Cookies.Enabled {
		return
	}
	for _, name := range []string{"accessToken", "refreshToken"} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   h.Cookies.Domain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.Cookies.Secure,
			SameSite: h.Cookies.SameSite,
		})
	}
}

func (h *AuthHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}

func authResponse(result *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		User:             dto.UserResponseFromEntity(result.User),
		AccessToken:      result.AccessToken,
		ExpiresIn:        result.ExpiresIn,
		RefreshToken:     result.RefreshToken,
		RefreshExpiresIn: result.RefreshExpiresIn,
	}
}

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func clientIP(c echo.Context) *string {
	ip := strings.TrimSpace(c.RealIP())
	if ip == "" {
		return nil
	}
	return &ip
}

func parseLimitOffset(c echo.Context) (int, int) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return limit, offset
}
