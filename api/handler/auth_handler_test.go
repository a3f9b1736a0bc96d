package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"travelo/api/middleware"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A handler reached without Protect in front of it must abort with an error
// the central error handler renders, not write a response and keep going
// with nil identity.
func TestHandlersAbortWithoutIdentity(t *testing.T) {
	h := &AuthHandler{Log: logrus.New()}
	e := echo.New()

	handlers := map[string]echo.HandlerFunc{
		"logout":        h.Logout,
		"logout-others": h.LogoutOthers,
		"logout-all":    h.LogoutAll,
		"me":            h.Me,
	}
	for name, handlerFunc := range handlers {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

		err := handlerFunc(c)

		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr, name)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code, name)
		// Nothing was written; rendering is the error handler's job.
		assert.Zero(t, rec.Body.Len(), name)
	}
}

func TestHandlersProceedWithIdentity(t *testing.T) {
	h := &AuthHandler{Log: logrus.New()}
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	middleware.SetAuthContext(c, uuid.New(), "user", uuid.New())

	userID, sessionID, err := h.identity(c)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, userID)
	assert.NotEqual(t, uuid.Nil, sessionID)
}
