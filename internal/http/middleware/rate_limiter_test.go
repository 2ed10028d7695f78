package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"portal-service/internal/auth"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(2, 2)

	assert.True(t, rl.Allow("test-key"))
	assert.True(t, rl.Allow("test-key"))
	assert.False(t, rl.Allow("test-key"))
}

func TestRateLimiter_Middleware(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(2, 2)
	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	mw := rl.Middleware()

	call := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		assert.NoError(t, mw(handler)(c))
		return rec
	}

	rec := call()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, call().Code)

	rec = call()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_KeysByUserBeforeIP(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(1, 1)
	handler := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	mw := rl.Middleware()

	call := func(userID *uuid.UUID) int {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if userID != nil {
			c.Set(auth.ContextKeyUserID, *userID)
		}
		assert.NoError(t, mw(handler)(c))
		return rec.Code
	}

	alice, bob := uuid.New(), uuid.New()
	assert.Equal(t, http.StatusNoContent, call(&alice))
	assert.Equal(t, http.StatusNoContent, call(&bob))
	assert.Equal(t, http.StatusNoContent, call(nil))
	assert.Equal(t, http.StatusTooManyRequests, call(&alice))
	assert.Equal(t, http.StatusTooManyRequests, call(nil))
}

func TestRateLimiter_DifferentKeys(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	assert.True(t, rl.Allow("key1"))
	assert.True(t, rl.Allow("key2"))
	assert.False(t, rl.Allow("key1"))
	assert.False(t, rl.Allow("key2"))
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	var buf bytes.Buffer
	mw := RequestID(zerolog.New(&buf))

	var seen string
	handler := func(c echo.Context) error {
		seen = GetRequestID(c)
		zerolog.Ctx(c.Request().Context()).Info().Msg("handled")
		return c.NoContent(http.StatusNoContent)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	assert.NoError(t, mw(handler)(e.NewContext(req, rec)))
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"abc-123"`)

	rec = httptest.NewRecorder()
	assert.NoError(t, mw(handler)(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := SecurityHeaders()(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })(c)

	assert.NoError(t, err)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}
