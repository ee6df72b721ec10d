package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus_chat/internal/service"
	"campus_chat/pkg/logger"
)

type MessageHandler struct {
	messageService service.MessageService
	log            logger.Logger
}

func NewMessageHandler(messageService service.MessageService, log logger.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		log:            log,
	}
}

func (h *MessageHandler) List(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}
	chatID, ok := uuidParam(c, "id", "chat ID")
	if !ok {
		return
	}

	messages, err := h.messageService.FetchMessages(c.Request.Context(), who, chatID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

func (h *MessageHandler) Send(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}
	chatID, ok := uuidParam(c, "id", "chat ID")
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messageService.SendMessage(c.Request.Context(), who, chatID, req.Content)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}
