package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus_chat/internal/service"
	"campus_chat/pkg/logger"
)

type DirectHandler struct {
	directService service.DirectService
	log           logger.Logger
}

func NewDirectHandler(directService service.DirectService, log logger.Logger) *DirectHandler {
	return &DirectHandler{
		directService: directService,
		log:           log,
	}
}

func (h *DirectHandler) Conversations(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}

	conversations, err := h.directService.GetConversations(c.Request.Context(), who.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, conversations)
}

// Messages возвращает историю диалога; входящие сообщения при этом становятся прочитанными
func (h *DirectHandler) Messages(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}
	otherID, ok := uuidParam(c, "userId", "user ID")
	if !ok {
		return
	}

	messages, err := h.directService.GetMessages(c.Request.Context(), who.UserID, otherID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (h *DirectHandler) Send(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}
	receiverID, ok := uuidParam(c, "userId", "user ID")
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.directService.SendDirectMessage(c.Request.Context(), who.UserID, receiverID, req.Content)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

func (h *DirectHandler) Unread(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}

	total, err := h.directService.UnreadTotal(c.Request.Context(), who.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": total})
}
