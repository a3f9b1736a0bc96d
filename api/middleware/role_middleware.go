package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole passes only requests whose authenticated role is one of the
// allowed roles. It must run after Protect; a request with no identity
// attached is rejected as unauthenticated rather than forbidden.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			currentRole, ok := RoleFromContext(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			if !allowed[currentRole] {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
