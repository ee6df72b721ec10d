package middleware

import (
	"github.com/gin-gonic/gin"

	"campus_chat/pkg/errors"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Ответ уже записан обработчиком
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last()
		c.JSON(errors.HTTPStatusFromError(err.Err), gin.H{
			"error": errors.PublicMessage(err.Err),
		})
	}
}
