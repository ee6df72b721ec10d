package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus_chat/internal/config"
	"campus_chat/internal/domain"
	apperrors "campus_chat/pkg/errors"
	"campus_chat/pkg/jwt"
	"campus_chat/pkg/logger"
)

const secret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func token(t *testing.T, userID uuid.UUID, role string, ttl time.Duration) string {
	t.Helper()
	tok, err := jwt.GenerateAccessToken(userID, role, secret, "campus-auth", ttl)
	require.NoError(t, err)
	return tok
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	auth := NewAuthMiddleware(secret, "campus-auth", logger.Nop())
	userID := uuid.New()

	foreignIssuer, err := jwt.GenerateAccessToken(userID, domain.RoleStudent, secret, "someone-else", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		who, ok := Identity(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": who.UserID, "role": who.Role})
	})

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer header", "Bearer " + token(t, userID, "Faculty", time.Hour), "", http.StatusOK},
		{"query token", "", token(t, userID, domain.RoleStudent, time.Hour), http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", "", http.StatusUnauthorized},
		{"expired", "Bearer " + token(t, userID, domain.RoleStudent, -time.Minute), "", http.StatusUnauthorized},
		{"foreign issuer", "Bearer " + foreignIssuer, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/me"
			if tt.query != "" {
				path += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, userID, " Faculty ", time.Hour))
	w := serve(r, req)
	assert.JSONEq(t, `{"id":"`+userID.String()+`","role":"faculty"}`, w.Body.String())
}

func TestRequireRoles(t *testing.T) {
	auth := NewAuthMiddleware(secret, "campus-auth", logger.Nop())

	r := gin.New()
	r.POST("/course", auth.RequireAuth(), auth.RequireRoles(domain.RoleFaculty, "Admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for role, want := range map[string]int{
		domain.RoleFaculty: http.StatusNoContent,
		"ADMIN":            http.StatusNoContent,
		domain.RoleStudent: http.StatusForbidden,
		"":                 http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodPost, "/course", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, uuid.New(), role, time.Hour))
		assert.Equal(t, want, serve(r, req).Code, "role %q", role)
	}
}

type stubLimiter struct {
	decision domain.RateLimitDecision
	err      error
	subjects []string
}

func (s *stubLimiter) Allow(ctx context.Context, scope, subject string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	s.subjects = append(s.subjects, scope+":"+subject)
	return s.decision, s.err
}

func TestRateLimit(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Minute}

	t.Run("blocks when denied", func(t *testing.T) {
		limiter := &stubLimiter{decision: domain.RateLimitDecision{Allowed: false, Limit: 2, ResetIn: 30 * time.Second}}
		r := gin.New()
		r.GET("/x", NewRateLimitMiddleware(limiter, cfg, logger.Nop()).Limit(), func(c *gin.Context) { c.Status(http.StatusOK) })

		w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "30", w.Header().Get("Retry-After"))
		require.Len(t, limiter.subjects, 1)
		assert.Contains(t, limiter.subjects[0], domain.RateLimitScopeIP+":")
	})

	t.Run("keys by authenticated user", func(t *testing.T) {
		limiter := &stubLimiter{decision: domain.RateLimitDecision{Allowed: true, Limit: 2, Remaining: 1}}
		auth := NewAuthMiddleware(secret, "campus-auth", logger.Nop())
		userID := uuid.New()

		r := gin.New()
		r.GET("/x", auth.RequireAuth(), NewRateLimitMiddleware(limiter, cfg, logger.Nop()).Limit(), func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, userID, domain.RoleStudent, time.Hour))
		w := serve(r, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, []string{domain.RateLimitScopeUser + ":" + userID.String()}, limiter.subjects)
	})

	t.Run("fails open", func(t *testing.T) {
		limiter := &stubLimiter{err: errors.New("redis down")}
		r := gin.New()
		r.GET("/x", NewRateLimitMiddleware(limiter, cfg, logger.Nop()).Limit(), func(c *gin.Context) { c.Status(http.StatusOK) })

		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
	})

	t.Run("disabled", func(t *testing.T) {
		limiter := &stubLimiter{}
		r := gin.New()
		r.GET("/x", NewRateLimitMiddleware(limiter, config.RateLimitConfig{}, logger.Nop()).Limit(), func(c *gin.Context) { c.Status(http.StatusOK) })

		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
		assert.Empty(t, limiter.subjects)
	})
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/missing", func(c *gin.Context) { _ = c.Error(apperrors.ErrChatNotFound) })
	r.GET("/boom", func(c *gin.Context) { _ = c.Error(errors.New("pq: connection refused")) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"chat not found"}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://campus.example"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://campus.example")
	assert.Equal(t, "https://campus.example", serve(r, req).Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	assert.Empty(t, serve(r, req).Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	assert.Equal(t, http.StatusNoContent, serve(r, req).Code)
}
