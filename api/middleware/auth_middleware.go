package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"travelo/internal/entity"
	"travelo/internal/repository"
	"travelo/internal/token"

	"github.com/labstack/echo/v4"
)

// Response headers carrying a freshly minted pair after a transparent
// refresh, so non-cookie clients (mobile apps) can capture it.
const (
	HeaderAccessToken  = "X-Access-Token"
	HeaderRefreshToken = "X-Refresh-Token"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// TokenCodec is the slice of the codec this middleware needs.
type TokenCodec interface {
	Sign(payload token.Payload, purpose token.Purpose, ttl time.Duration) (string, error)
	Verify(raw string, purpose token.Purpose) (token.Payload, error)
}

type CookieConfig struct {
	// Enabled switches cookie delivery of tokens on (web clients). Headers
	// are emitted on refresh regardless.
	Enabled  bool
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

type SessionAuth struct {
	Codec      TokenCodec
	Sessions   repository.SessionRepository
	Users      repository.UserRepository
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Cookies    CookieConfig
}

// Protect gates a route behind session authentication. A valid access token
// authenticates directly; an expired one is transparently exchanged when the
// request also carries a still-valid refresh token, in which case the new
// pair is emitted on the response. Every other failure terminates the
// request with 401.
func (m SessionAuth) Protect(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		accessToken := extractAccessToken(c)
		refreshToken := extractRefreshToken(c)
		if accessToken == "" && refreshToken == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}

		if accessToken != "" {
			payload, err := m.Codec.Verify(accessToken, token.PurposeAccess)
			if err == nil {
				if _, err := m.attachVerifiedIdentity(c, payload); err != nil {
					return err
				}
				return next(c)
			}
			if !errors.Is(err, token.ErrTokenExpired) {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			// Expired, and only expired, falls through to the refresh path.
		}

		if refreshToken == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "please log in again")
		}

		payload, err := m.Codec.Verify(refreshToken, token.PurposeRefresh)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "session has expired")
		}
		user, err := m.attachVerifiedIdentity(c, payload)
		if err != nil {
			return err
		}

		// The new pair is minted from the user row as it is now, so a role
		// or email change does not ride along in stale claims forever.
		freshPayload := token.Payload{
			UserID:    user.ID,
			SessionID: payload.SessionID,
			Role:      string(user.Role),
			Email:     user.Email,
		}
		newAccess, err := m.Codec.Sign(freshPayload, token.PurposeAccess, m.AccessTTL)
		if err != nil {
			return err
		}
		newRefresh, err := m.Codec.Sign(freshPayload, token.PurposeRefresh, m.RefreshTTL)
		if err != nil {
			return err
		}

		c.Response().Header().Set(HeaderAccessToken, newAccess)
		c.Response().Header().Set(HeaderRefreshToken, newRefresh)
		if m.Cookies.Enabled {
			m.setTokenCookie(c, accessTokenCookie, newAccess, m.AccessTTL)
			m.setTokenCookie(c, refreshTokenCookie, newRefresh, m.RefreshTTL)
		}
		return next(c)
	}
}

// OptionalAuth attaches an identity when a valid unexpired access token
// resolves, and otherwise lets the request through anonymous. It never
// refreshes and never fails.
func (m SessionAuth) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		accessToken := extractAccessToken(c)
		if accessToken == "" {
			return next(c)
		}
		payload, err := m.Codec.Verify(accessToken, token.PurposeAccess)
		if err != nil {
			return next(c)
		}
		session, err := m.Sessions.Validate(c.Request().Context(), payload.UserID, payload.SessionID)
		if err != nil || session == nil {
			return next(c)
		}
		user, err := m.Users.FindByID(c.Request().Context(), payload.UserID)
		if err != nil || user == nil {
			return next(c)
		}
		SetAuthContext(c, payload.UserID, payload.Role, payload.SessionID)
		return next(c)
	}
}

// attachVerifiedIdentity confirms the session is still live (bumping its
// last-activity timestamp) and the user still exists, then binds the
// identity to the request. The returned user row is current as of this
// request, not as of token issuance.
func (m SessionAuth) attachVerifiedIdentity(c echo.Context, payload token.Payload) (*entity.User, error) {
	session, err := m.Sessions.Validate(c.Request().Context(), payload.UserID, payload.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "session is invalid or expired")
	}
	user, err := m.Users.FindByID(c.Request().Context(), payload.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "user no longer exists")
	}
	SetAuthContext(c, payload.UserID, string(user.Role), payload.SessionID)
	return user, nil
}

func (m SessionAuth) setTokenCookie(c echo.Context, name string, value string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   m.Cookies.Domain,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   m.Cookies.Secure,
		SameSite: m.Cookies.SameSite,
	})
}

// extractAccessToken checks, in order of precedence, the Authorization
// bearer header, the access-token cookie, and the request-body field.
func extractAccessToken(c echo.Context) string {
	if bearer := extractBearerToken(c.Request()); bearer != "" {
		return bearer
	}
	if cookie, err := c.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return tokenFromBody(c, accessTokenCookie)
}

// extractRefreshToken checks the refresh-token cookie, then the
// request-body field.
func extractRefreshToken(c echo.Context) string {
	if cookie, err := c.Cookie(refreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return tokenFromBody(c, refreshTokenCookie)
}

func extractBearerToken(r *http.Request) string {
	authorization := r.Header.Get(echo.HeaderAuthorization)
	if authorization == "" {
		return ""
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// tokenFromBody reads a top-level string field out of a JSON body and puts
// the body back so the handler can still decode it.
func tokenFromBody(c echo.Context, field string) string {
	request := c.Request()
	if request.Body == nil {
		return ""
	}
	contentType := request.Header.Get(echo.HeaderContentType)
	if contentType != "" && !strings.HasPrefix(contentType, echo.MIMEApplicationJSON) {
		return ""
	}

	body, err := io.ReadAll(request.Body)
	request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	raw, ok := fields[field]
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}
