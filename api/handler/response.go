package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"travelo/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Every response follows the same envelope; validation failures carry one
// entry per offending field.
type Envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    any          `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func writeSuccess(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

func writeError(c echo.Context, status int, message string) error {
	return c.JSON(status, Envelope{Success: false, Message: message})
}

func writeValidationError(c echo.Context, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return writeError(c, http.StatusBadRequest, "Invalid request body")
	}

	fields := make([]FieldError, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		fields = append(fields, FieldError{
			Path:    strings.ToLower(fieldError.Field()),
			Message: fmt.Sprintf("failed validation on %q", fieldError.Tag()),
		})
	}
	return c.JSON(http.StatusBadRequest, Envelope{
		Success: false,
		Message: "Validation failed",
		Errors:  fields,
	})
}

// writeServiceError maps the service's sentinel errors onto statuses and
// user-facing messages. Anything unrecognized is a 500 with a generic
// message so internals never leak to the client.
func (h *AuthHandler) writeServiceError(c echo.Context, err error, action string) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return writeError(c, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, service.ErrInvalidRole):
		return writeError(c, http.StatusBadRequest, "Invalid role")
	case errors.Is(err, service.ErrEmailTaken):
		return writeError(c, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, service.ErrPhoneTaken):
		return writeError(c, http.StatusBadRequest, "Phone number already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		return writeError(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrSessionInvalid):
		return writeError(c, http.StatusUnauthorized, "Session is invalid or expired")
	case errors.Is(err, service.ErrSocialTokenInvalid):
		return writeError(c, http.StatusUnauthorized, "Social login failed")
	case errors.Is(err, service.ErrUnsupportedProvider):
		return writeError(c, http.StatusBadRequest, "Unsupported social provider")
	case errors.Is(err, service.ErrInvalidToken):
		return writeError(c, http.StatusBadRequest, "Invalid or expired token")
	case errors.Is(err, service.ErrUserNotFound):
		return writeError(c, http.StatusNotFound, "User not found")
	}

	h.Log.WithError(err).WithField("action", action).Error("request failed")
	return writeError(c, http.StatusInternalServerError, fmt.Sprintf("Failed to %s", action))
}
