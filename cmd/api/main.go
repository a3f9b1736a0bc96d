package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"travelo/api/handler"
	"travelo/api/middleware"
	"travelo/api/routes"
	"travelo/config"
	"travelo/internal/repository"
	"travelo/internal/service"
	"travelo/internal/token"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration load failed")
	}
	if cfg.IsProduction() {
		log.SetLevel(logrus.InfoLevel)
	} else {
		log.SetLevel(logrus.DebugLevel)
	}

	db, err := config.OpenDatabase(cfg)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer func() {
		if err := config.CloseDatabase(db); err != nil {
			log.WithError(err).Warn("database close failed")
		}
	}()
	if err := config.Migrate(db); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	verifications := repository.NewVerificationTokenRepository(db)
	socialAccounts := repository.NewSocialAccountRepository(db)
	events := repository.NewAuthEventRepository(db)

	codec := token.Codec{
		Secrets: cfg.TokenSecrets,
		Issuer:  cfg.TokenIssuer,
	}

	authService := service.NewAuthService(
		users,
		sessions,
		verifications,
		socialAccounts,
		events,
		service.NewResendEmailSender(cfg.ResendAPIKey, cfg.MailFrom, cfg.AppBaseURL),
		service.NewTwilioSMSSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, log),
		service.NewHTTPSocialVerifier(),
		service.BcryptPasswordHasher{},
		codec,
		service.RealClock{},
		log,
		service.AuthConfig{
			AccessTokenTTL:       cfg.AccessTokenTTL,
			RefreshTokenTTL:      cfg.RefreshTokenTTL,
			ResetTokenTTL:        cfg.ResetTokenTTL,
			VerificationTokenTTL: cfg.VerificationTokenTTL,
			PhoneCodeTTL:         cfg.PhoneCodeTTL,
		},
	)

	cookies := middleware.CookieConfig{
		Enabled:  cfg.CookieAuth,
		Domain:   cfg.CookieDomain,
		Secure:   cfg.IsProduction(),
		SameSite: cfg.CookieSameSite(),
	}

	sessionAuth := middleware.SessionAuth{
		Codec:      codec,
		Sessions:   sessions,
		Users:      users,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		Cookies:    cookies,
	}

	authHandler := handler.NewAuthHandler(authService, validator.New(), log)
	authHandler.Cookies = cookies
	authHandler.AccessTTL = cfg.AccessTokenTTL
	authHandler.RefreshTTL = cfg.RefreshTokenTTL

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpErrorHandler(log)
	e.Use(echomw.Recover())
	e.Use(requestLogger(log))

	router := routes.NewRouter(e, authHandler, sessionAuth)
	router.RegisterRoutes()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.WithField("addr", cfg.HTTPAddr).Info("server starting")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server stopped")
	}
}

// httpErrorHandler rewraps errors that escape the handlers (middleware
// rejections included) into the standard response envelope.
func httpErrorHandler(log *logrus.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "Internal server error"
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
			if text, ok := httpErr.Message.(string); ok {
				message = text
			}
		}
		if status >= http.StatusInternalServerError {
			log.WithError(err).WithField("path", c.Path()).Error("unhandled error")
		}

		writeErr := c.JSON(status, map[string]any{
			"success": false,
			"message": message,
		})
		if writeErr != nil {
			log.WithError(writeErr).Warn("error response write failed")
		}
	}
}

func requestLogger(log *logrus.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request")
			} else {
				entry.Info("request")
			}
			return nil
		},
	})
}
