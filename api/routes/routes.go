package routes

import (
	"time"

	"travelo/api/handler"
	"travelo/api/middleware"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type Router struct {
	Echo        *echo.Echo
	Auth        *handler.AuthHandler
	SessionAuth middleware.SessionAuth
	AuthRate    *middleware.RateLimiter
	LoginRate   *middleware.RateLimiter
}

func NewRouter(e *echo.Echo, authHandler *handler.AuthHandler, sessionAuth middleware.SessionAuth) *Router {
	return &Router{
		Echo:        e,
		Auth:        authHandler,
		SessionAuth: sessionAuth,
		AuthRate:    middleware.NewRateLimiter(rate.Limit(5), 10, 5*time.Minute),
		LoginRate:   middleware.NewRateLimiter(rate.Limit(2), 4, 10*time.Minute),
	}
}

func (r *Router) RegisterRoutes() {
	e := r.Echo
	protect := r.SessionAuth.Protect

	e.POST("/auth/register", r.Auth.Register, r.AuthRate.Middleware())
	e.POST("/auth/login", r.Auth.Login, r.LoginRate.Middleware())
	e.POST("/auth/social", r.Auth.SocialLogin, r.LoginRate.Middleware())
	e.POST("/auth/logout", r.Auth.Logout, protect)
	e.POST("/auth/logout-others", r.Auth.LogoutOthers, protect)
	e.POST("/auth/logout-all", r.Auth.LogoutAll, protect)
	e.POST("/auth/password/forgot", r.Auth.PasswordForgot, r.LoginRate.Middleware())
	e.POST("/auth/password/reset", r.Auth.PasswordReset, r.AuthRate.Middleware())
	e.POST("/auth/verify-email", r.Auth.VerifyEmail, r.AuthRate.Middleware())
	e.POST("/auth/verify-phone", r.Auth.VerifyPhone, protect, r.AuthRate.Middleware())

	e.GET("/auth/session", r.Auth.Session, r.SessionAuth.OptionalAuth)
	e.GET("/me", r.Auth.Me, protect)

	e.GET("/admin/users", r.Auth.AdminListUsers, protect, middleware.RequireRole("admin"))
	e.POST("/admin/users/:id/revoke-sessions", r.Auth.AdminRevokeUserSessions, protect, middleware.RequireRole("admin"))
}
