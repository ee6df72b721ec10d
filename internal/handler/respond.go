package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campus_chat/internal/domain"
	"campus_chat/internal/middleware"
	apperrors "campus_chat/pkg/errors"
	"campus_chat/pkg/logger"
)

// respondError передает доменную ошибку в middleware.ErrorHandler, который выбирает
// HTTP статус и скрывает внутренние детали от клиента
func respondError(c *gin.Context, log logger.Logger, err error) {
	if apperrors.HTTPStatusFromError(err) >= http.StatusInternalServerError {
		log.Error("Request failed", "error", err, "path", c.FullPath())
	}
	_ = c.Error(err)
}

func requireIdentity(c *gin.Context) (domain.Identity, bool) {
	who, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return domain.Identity{}, false
	}
	return who, true
}

func uuidParam(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what})
		return uuid.Nil, false
	}
	return id, true
}
