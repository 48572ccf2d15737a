package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/habitquest/backend/internal/infrastructure/cache"
	"github.com/habitquest/backend/internal/ratelimit"
	"github.com/habitquest/backend/pkg/config"
	"github.com/habitquest/backend/pkg/security/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT() *auth.JWTService {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.JWTIssuer = "habitquest"
	cfg.Auth.JWTExpiryHours = 1
	return auth.NewJWTService(cfg)
}

func newCache(t *testing.T) *cache.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := cache.DefaultConfig()
	cfg.Addr = mr.Addr()
	cfg.HealthInterval = 0
	c := cache.New(cfg, nil)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { c.Close() })
	return c
}

func perform(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	jwtSvc := newJWT()
	userID := uuid.New()
	token, err := jwtSvc.GenerateToken(userID, "me@example.com")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", NewAuthMiddleware(jwtSvc, nil), func(c *gin.Context) {
		id, ok := GetUserID(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": id.String(), "email": GetEmail(c)})
	})

	w := perform(r, http.MethodGet, "/me", token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
	assert.Contains(t, w.Body.String(), "me@example.com")

	w = perform(r, http.MethodGet, "/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(r, http.MethodGet, "/me", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	c := newCache(t)
	limiter := ratelimit.New(c, map[string]config.RateLimitConfig{
		"completeHabit": {Requests: 2, Window: time.Minute},
	}, nil)

	r := gin.New()
	r.POST("/complete", RateLimit(limiter, ratelimit.EndpointCompleteHabit), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := perform(r, http.MethodPost, "/complete", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	w = perform(r, http.MethodPost, "/complete", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = perform(r, http.MethodPost, "/complete", "", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.HealthInterval = 0
	c := cache.New(cfg, nil)
	limiter := ratelimit.New(c, map[string]config.RateLimitConfig{
		"api": {Requests: 1, Window: time.Minute},
	}, nil)

	r := gin.New()
	r.GET("/ping", RateLimit(limiter, ratelimit.EndpointAPI), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		w := perform(r, http.MethodGet, "/ping", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestCacheMiddleware(t *testing.T) {
	c := newCache(t)
	m := NewCacheMiddleware(c, "page", time.Minute)
	calls := 0

	r := gin.New()
	r.GET("/profile/:name", m.CacheResponse(), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"name": c.Param("name"), "calls": calls})
	})
	r.PUT("/profile/:name", m.CacheInvalidate("profile*"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	first := perform(r, http.MethodGet, "/profile/ana", "", "")
	second := perform(r, http.MethodGet, "/profile/ana", "", "")

	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Contains(t, second.Header().Get("Content-Type"), "application/json")

	perform(r, http.MethodPut, "/profile/ana", "", "")
	perform(r, http.MethodGet, "/profile/ana", "", "")
	assert.Equal(t, 2, calls)
}

type habitBody struct {
	Name       string   `json:"name" validate:"required,not_empty,max=100"`
	Frequency  string   `json:"frequency" validate:"omitempty,oneof=daily weekly custom"`
	CustomDays []string `json:"custom_days" validate:"omitempty,dive,weekday"`
	Reminder   string   `json:"reminder_time" validate:"omitempty,clock"`
}

func TestValidationMiddleware(t *testing.T) {
	v := NewValidationMiddleware(nil)

	r := gin.New()
	r.POST("/habits", v.ValidateRequest(&habitBody{}), func(c *gin.Context) {
		body, ok := GetValidated[habitBody](c)
		require.True(t, ok)
		c.JSON(http.StatusCreated, gin.H{"name": body.Name})
	})

	w := perform(r, http.MethodPost, "/habits", "", `{"name":"Read","frequency":"custom","custom_days":["Monday","friday"],"reminder_time":"07:30"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "Read")

	w = perform(r, http.MethodPost, "/habits", "", `{"name":"  ","frequency":"hourly"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"name"`)
	assert.Contains(t, w.Body.String(), `"frequency"`)

	w = perform(r, http.MethodPost, "/habits", "", `{"name":"Run","custom_days":["someday"],"reminder_time":"25:00"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "must be a day of the week")
	assert.Contains(t, w.Body.String(), "HH:MM")

	w = perform(r, http.MethodPost, "/habits", "", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
