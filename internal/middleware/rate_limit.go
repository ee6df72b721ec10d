package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"campus_chat/internal/config"
	"campus_chat/internal/domain"
	"campus_chat/internal/service"
	"campus_chat/pkg/logger"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	cfg              config.RateLimitConfig
	log              logger.Logger
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService, cfg config.RateLimitConfig, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		cfg:              cfg,
		log:              log,
	}
}

// Limit считает запросы по пользователю, а без аутентификации по IP
func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.cfg.Enabled {
			c.Next()
			return
		}

		scope, subject := domain.RateLimitScopeIP, c.ClientIP()
		if who, ok := Identity(c); ok {
			scope, subject = domain.RateLimitScopeUser, who.UserID.String()
		}

		decision, err := m.rateLimitService.Allow(c.Request.Context(), scope, subject, m.cfg.Requests, m.cfg.Window)
		if err != nil {
			// Лимитер недоступен - запрос не блокируем
			m.log.Error("Rate limit check failed", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(decision.ResetIn.Round(time.Second)/time.Second)))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}
