package config

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"travelo/internal/token"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	HTTPAddr    string
	DatabaseURL string
	AppBaseURL  string
	TokenIssuer string

	TokenSecrets token.Secrets

	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	ResetTokenTTL        time.Duration
	VerificationTokenTTL time.Duration
	PhoneCodeTTL         time.Duration

	CookieAuth   bool
	CookieDomain string

	ResendAPIKey string
	MailFrom     string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
}

// Load reads configuration from the environment, after loading .env when
// one is present. Token secrets have no defaults and must be set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:         envOr("APP_ENV", "development"),
		HTTPAddr:    envOr("HTTP_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		AppBaseURL:  os.Getenv("APP_BASE_URL"),
		TokenIssuer: envOr("TOKEN_ISSUER", "travelo"),

		AccessTokenTTL:       durationOr("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:      durationOr("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		ResetTokenTTL:        durationOr("RESET_TOKEN_TTL", time.Hour),
		VerificationTokenTTL: durationOr("VERIFICATION_TOKEN_TTL", 24*time.Hour),
		PhoneCodeTTL:         durationOr("PHONE_CODE_TTL", 15*time.Minute),

		CookieAuth:   os.Getenv("COOKIE_AUTH") != "false",
		CookieDomain: os.Getenv("COOKIE_DOMAIN"),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		MailFrom:     os.Getenv("MAIL_FROM"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// One secret per token purpose, so leaking one cannot forge another.
	cfg.TokenSecrets = token.Secrets{}
	for purpose, envName := range map[token.Purpose]string{
		token.PurposeAccess:        "JWT_ACCESS_SECRET",
		token.PurposeRefresh:       "JWT_REFRESH_SECRET",
		token.PurposePasswordReset: "JWT_RESET_SECRET",
		token.PurposeEmailVerify:   "JWT_EMAIL_VERIFY_SECRET",
		token.PurposePhoneVerify:   "JWT_PHONE_VERIFY_SECRET",
	} {
		secret := os.Getenv(envName)
		if secret == "" {
			return nil, fmt.Errorf("%s is required", envName)
		}
		cfg.TokenSecrets[purpose] = []byte(secret)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// CookieSameSite is strict in production and lax everywhere else, so local
// cross-port frontends keep working.
func (c *Config) CookieSameSite() http.SameSite {
	if c.IsProduction() {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}

func envOr(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func durationOr(name string, fallback time.Duration) time.Duration {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
