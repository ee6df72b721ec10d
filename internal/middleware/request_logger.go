package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"campus_chat/pkg/logger"
)

func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
