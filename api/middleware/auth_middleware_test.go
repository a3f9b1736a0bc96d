package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"travelo/internal/entity"
	"travelo/internal/repository"
	"travelo/internal/token"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type authFixture struct {
	auth     SessionAuth
	codec    token.Codec
	sessions repository.SessionRepository
	users    repository.UserRepository
	user     *entity.User
	session  *entity.Session
}

func newAuthFixture(t *testing.T) *authFixture {
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
	))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	codec := token.Codec{
		Secrets: token.Secrets{
			token.PurposeAccess:  []byte("access-secret"),
			token.PurposeRefresh: []byte("refresh-secret"),
		},
		Issuer: "travelo-test",
	}

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)

	user := &entity.User{
		Email:        "traveler@example.com",
		PasswordHash: "hash",
		Role:         entity.UserRoleUser,
	}
	require.NoError(t, users.Create(context.Background(), user))
	session := &entity.Session{UserID: user.ID}
	require.NoError(t, sessions.Create(context.Background(), session))

	return &authFixture{
		auth: SessionAuth{
			Codec:      codec,
			Sessions:   sessions,
			Users:      users,
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		codec:    codec,
		sessions: sessions,
		users:    users,
		user:     user,
		session:  session,
	}
}

func (f *authFixture) payload() token.Payload {
	return token.Payload{
		UserID:    f.user.ID,
		SessionID: f.session.ID,
		Role:      string(f.user.Role),
		Email:     f.user.Email,
	}
}

func (f *authFixture) sign(t *testing.T, purpose token.Purpose, ttl time.Duration) string {
	t.Helper()
	signed, err := f.codec.Sign(f.payload(), purpose, ttl)
	require.NoError(t, err)
	return signed
}

// signExpired issues a token whose expiry is already in the past.
func (f *authFixture) signExpired(t *testing.T, purpose token.Purpose) string {
	t.Helper()
	backdated := f.codec
	backdated.Clock = func() time.Time { return time.Now().Add(-time.Hour) }
	signed, err := backdated.Sign(f.payload(), purpose, time.Minute)
	require.NoError(t, err)
	return signed
}

func runProtected(f *authFixture, req *http.Request) (*httptest.ResponseRecorder, echo.Context, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := f.auth.Protect(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return rec, c, handler(c)
}

func assertUnauthorized(t *testing.T, err error, message string) {
	t.Helper()
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	if message != "" {
		assert.Equal(t, message, httpErr.Message)
	}
}

func TestProtectValidAccessToken(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.sign(t, token.PurposeAccess, time.Minute))

	rec, c, err := runProtected(f, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	userID, ok := UserIDFromContext(c)
	require.True(t, ok)
	assert.Equal(t, f.user.ID, userID)
	sessionID, ok := SessionIDFromContext(c)
	require.True(t, ok)
	assert.Equal(t, f.session.ID, sessionID)

	// No refresh happened, so no new pair is emitted.
	assert.Empty(t, rec.Header().Get(HeaderAccessToken))
}

func TestProtectMissingTokens(t *testing.T) {
	f := newAuthFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	_, _, err := runProtected(f, req)
	assertUnauthorized(t, err, "unauthorized")
}

func TestProtectTamperedAccessTokenDoesNotRefresh(t *testing.T) {
	f := newAuthFixture(t)

	access := f.sign(t, token.PurposeAccess, time.Minute)
	parts := strings.Split(access, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	// Even with a perfectly good refresh token on board, a tampered access
	// token terminates the request.
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tampered)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: f.sign(t, token.PurposeRefresh, time.Hour)})

	rec, _, err := runProtected(f, req)
	assertUnauthorized(t, err, "unauthorized")
	assert.Empty(t, rec.Header().Get(HeaderAccessToken))
}

func TestProtectExpiredAccessWithValidRefresh(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.signExpired(t, token.PurposeAccess))
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: f.sign(t, token.PurposeRefresh, time.Hour)})

	rec, c, err := runProtected(f, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	userID, ok := UserIDFromContext(c)
	require.True(t, ok)
	assert.Equal(t, f.user.ID, userID)

	// The transparently minted pair rides back on the response headers and
	// verifies under the right purposes.
	newAccess := rec.Header().Get(HeaderAccessToken)
	newRefresh := rec.Header().Get(HeaderRefreshToken)
	require.NotEmpty(t, newAccess)
	require.NotEmpty(t, newRefresh)

	payload, err := f.codec.Verify(newAccess, token.PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, f.session.ID, payload.SessionID)
	_, err = f.codec.Verify(newRefresh, token.PurposeRefresh)
	require.NoError(t, err)
}

func TestProtectRefreshTokenOnly(t *testing.T) {
	f := newAuthFixture(t)

	// No access token anywhere on the request; the refresh path alone
	// authenticates it.
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: f.sign(t, token.PurposeRefresh, time.Hour)})

	rec, c, err := runProtected(f, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	userID, ok := UserIDFromContext(c)
	require.True(t, ok)
	assert.Equal(t, f.user.ID, userID)
	assert.NotEmpty(t, rec.Header().Get(HeaderAccessToken))
	assert.NotEmpty(t, rec.Header().Get(HeaderRefreshToken))
}

func TestProtectRefreshMintsCurrentClaims(t *testing.T) {
	f := newAuthFixture(t)

	// Tokens were issued while the user was a plain user; the user has since
	// been promoted.
	expiredAccess := f.signExpired(t, token.PurposeAccess)
	refresh := f.sign(t, token.PurposeRefresh, time.Hour)
	f.user.Role = entity.UserRoleAdmin
	require.NoError(t, f.users.Update(context.Background(), f.user))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+expiredAccess)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refresh})

	rec, c, err := runProtected(f, req)
	require.NoError(t, err)

	// Both the attached identity and the refreshed pair carry the current
	// role, not the one frozen into the old tokens.
	role, ok := RoleFromContext(c)
	require.True(t, ok)
	assert.Equal(t, "admin", role)

	payload, err := f.codec.Verify(rec.Header().Get(HeaderAccessToken), token.PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, "admin", payload.Role)
}

func TestProtectExpiredAccessWithoutRefresh(t *testing.T) {
	f := newAuthFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.signExpired(t, token.PurposeAccess))
	_, _, err := runProtected(f, req)
	assertUnauthorized(t, err, "please log in again")
}

func TestProtectExpiredAccessWithExpiredRefresh(t *testing.T) {
	f := newAuthFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.signExpired(t, token.PurposeAccess))
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: f.signExpired(t, token.PurposeRefresh)})
	_, _, err := runProtected(f, req)
	assertUnauthorized(t, err, "session has expired")
}

func TestProtectRevokedSession(t *testing.T) {
	f := newAuthFixture(t)
	require.NoError(t, f.sessions.Revoke(context.Background(), f.user.ID, f.session.ID))

	// The token itself is still cryptographically valid; revocation wins.
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.sign(t, token.PurposeAccess, time.Minute))
	_, _, err := runProtected(f, req)
	assertUnauthorized(t, err, "session is invalid or expired")
}

func TestProtectRevokedSessionBlocksRefresh(t *testing.T) {
	f := newAuthFixture(t)
	require.NoError(t, f.sessions.Revoke(context.Background(), f.user.ID, f.session.ID))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.signExpired(t, token.PurposeAccess))
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: f.sign(t, token.PurposeRefresh, time.Hour)})

	rec, _, err := runProtected(f, req)
	assertUnauthorized(t, err, "session is invalid or expired")
	assert.Empty(t, rec.Header().Get(HeaderAccessToken))
}

func TestProtectAccessTokenFromCookie(t *testing.T) {
	f := newAuthFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: f.sign(t, token.PurposeAccess, time.Minute)})

	rec, _, err := runProtected(f, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectAccessTokenFromBody(t *testing.T) {
	f := newAuthFixture(t)
	body := `{"accessToken":"` + f.sign(t, token.PurposeAccess, time.Minute) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec, _, err := runProtected(f, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectRefreshSetsCookiesWhenEnabled(t *testing.T) {
	f := newAuthFixture(t)
	f.auth.Cookies = CookieConfig{Enabled: true, SameSite: http.SameSiteLaxMode}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.signExpired(t, token.PurposeAccess))
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: f.sign(t, token.PurposeRefresh, time.Hour)})

	rec, _, err := runProtected(f, req)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, cookie := range rec.Result().Cookies() {
		names[cookie.Name] = true
	}
	assert.True(t, names["accessToken"])
	assert.True(t, names["refreshToken"])
}

func TestOptionalAuthAnonymous(t *testing.T) {
	f := newAuthFixture(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := f.auth.OptionalAuth(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
	require.NoError(t, err)

	_, ok := UserIDFromContext(c)
	assert.False(t, ok)
}

func TestOptionalAuthRecognized(t *testing.T) {
	f := newAuthFixture(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.sign(t, token.PurposeAccess, time.Minute))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := f.auth.OptionalAuth(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
	require.NoError(t, err)

	userID, ok := UserIDFromContext(c)
	require.True(t, ok)
	assert.Equal(t, f.user.ID, userID)
}

func TestOptionalAuthNeverRefreshes(t *testing.T) {
	f := newAuthFixture(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.signExpired(t, token.PurposeAccess))
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: f.sign(t, token.PurposeRefresh, time.Hour)})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := f.auth.OptionalAuth(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
	require.NoError(t, err)

	_, ok := UserIDFromContext(c)
	assert.False(t, ok)
	assert.Empty(t, rec.Header().Get(HeaderAccessToken))
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	handler := RequireRole("admin")(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	// No identity at all.
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/admin/users", nil), httptest.NewRecorder())
	err := handler(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)

	// Authenticated but not an admin.
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/admin/users", nil), httptest.NewRecorder())
	SetAuthContext(c, uuid.New(), "user", uuid.New())
	err = handler(c)
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)

	// Admin passes.
	rec := httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/admin/users", nil), rec)
	SetAuthContext(c, uuid.New(), "admin", uuid.New())
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
