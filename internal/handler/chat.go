package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campus_chat/internal/service"
	"campus_chat/pkg/logger"
)

type ChatHandler struct {
	chatService service.ChatService
	log         logger.Logger
}

func NewChatHandler(chatService service.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log,
	}
}

type AccessDirectChatRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

func (h *ChatHandler) AccessDirect(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req AccessDirectChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.chatService.AccessOrCreateDirectChat(c.Request.Context(), who.UserID, req.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, chat)
}

func (h *ChatHandler) List(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}

	chats, err := h.chatService.ListChatsForUser(c.Request.Context(), who.UserID, who.Role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, chats)
}

func (h *ChatHandler) Get(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}
	chatID, ok := uuidParam(c, "id", "chat ID")
	if !ok {
		return
	}

	chat, err := h.chatService.GetChat(c.Request.Context(), who, chatID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, chat)
}

type CreateGroupChatRequest struct {
	Name      string      `json:"name"`
	MemberIDs []uuid.UUID `json:"member_ids"`
}

func (h *ChatHandler) CreateGroup(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req CreateGroupChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.chatService.CreateGroupChat(c.Request.Context(), who.UserID, req.Name, req.MemberIDs)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, chat)
}

type CreateCourseChatRequest struct {
	CourseID uuid.UUID `json:"course_id" binding:"required"`
	Name     string    `json:"name"`
}

func (h *ChatHandler) CreateCourse(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req CreateCourseChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.chatService.CreateCourseChat(c.Request.Context(), who.UserID, req.CourseID, req.Name)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, chat)
}

type CreateRoleRoomRequest struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

func (h *ChatHandler) CreateRoleRoom(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req CreateRoleRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.chatService.CreateRoleRoom(c.Request.Context(), who.UserID, req.Roles, req.Name)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, chat)
}
