package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	contextUserIDKey  = "auth_user_id"
	contextRoleKey    = "auth_role"
	contextSessionKey = "auth_session_id"
)

// SetAuthContext binds the verified identity to the request. Protect and
// OptionalAuth are the only writers; handlers read it back through the
// accessors below.
func SetAuthContext(c echo.Context, userID uuid.UUID, role string, sessionID uuid.UUID) {
	c.Set(contextUserIDKey, userID)
	c.Set(contextRoleKey, role)
	c.Set(contextSessionKey, sessionID)
}

// UserIDFromContext returns the authenticated user id. The second return is
// false on anonymous requests.
func UserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	value := c.Get(contextUserIDKey)
	userID, ok := value.(uuid.UUID)
	return userID, ok
}

// RoleFromContext returns the authenticated user's role as stored on the
// user row at request time, not as claimed in the token.
func RoleFromContext(c echo.Context) (string, bool) {
	value := c.Get(contextRoleKey)
	role, ok := value.(string)
	return role, ok
}

// SessionIDFromContext returns the id of the session that authenticated
// this request.
func SessionIDFromContext(c echo.Context) (uuid.UUID, bool) {
	value := c.Get(contextSessionKey)
	sessionID, ok := value.(uuid.UUID)
	return sessionID, ok
}
