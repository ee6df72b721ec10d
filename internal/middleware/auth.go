package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campus_chat/internal/domain"
	apperrors "campus_chat/pkg/errors"
	"campus_chat/pkg/jwt"
	"campus_chat/pkg/logger"
)

const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)

// AuthMiddleware проверяет JWT, выданный внешним сервисом аутентификации.
// Сервис чата доверяет user_id и role из токена.
type AuthMiddleware struct {
	jwtSecret string
	issuer    string
	log       logger.Logger
}

func NewAuthMiddleware(jwtSecret, issuer string, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
		issuer:    issuer,
		log:       log,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if err != nil {
			m.log.Debug("Missing or malformed token", "path", c.Request.URL.Path, "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		claims, err := jwt.ValidateToken(tokenString, m.jwtSecret, m.issuer)
		if err != nil {
			m.log.Warn("Token validation failed", "error", err)
			message := "Invalid or expired token"
			if errors.Is(err, apperrors.ErrTokenExpired) {
				message = "Token expired"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": message})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUserRole, domain.NormalizeRole(claims.Role))
		c.Next()
	}
}

// RequireRoles пропускает только пользователей с одной из ролей
func (m *AuthMiddleware) RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range domain.NormalizeRoles(roles) {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)
		if _, ok := allowed[role]; !ok {
			m.log.Warn("Role not permitted", "role", role, "path", c.Request.URL.Path)
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Identity достает проверенного пользователя из контекста
func Identity(c *gin.Context) (domain.Identity, bool) {
	raw, ok := c.Get(ContextUserID)
	if !ok {
		return domain.Identity{}, false
	}
	userID, ok := raw.(uuid.UUID)
	if !ok {
		return domain.Identity{}, false
	}
	return domain.Identity{UserID: userID, Role: c.GetString(ContextUserRole)}, true
}

// bearerToken берет токен из заголовка Authorization, а для websocket из ?token=
func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
		return "", errors.New("Authorization header required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.New("Invalid authorization header format")
	}
	return parts[1], nil
}
