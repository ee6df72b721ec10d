package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus_chat/internal/realtime"
)

type HealthHandler struct {
	registry *realtime.Registry
	storage  string
}

func NewHealthHandler(registry *realtime.Registry, storage string) *HealthHandler {
	return &HealthHandler{
		registry: registry,
		storage:  storage,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "campus-chat",
		"storage":  h.storage,
		"realtime": h.registry.Stats(),
	})
}
