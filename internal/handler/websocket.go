package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"campus_chat/internal/config"
	"campus_chat/internal/domain"
	"campus_chat/internal/realtime"
	"campus_chat/internal/service"
	apperrors "campus_chat/pkg/errors"
	"campus_chat/pkg/logger"
)

type WebSocketHandler struct {
	registry   *realtime.Registry
	dispatcher realtime.Dispatcher
	guard      realtime.Guard
	upgrader   websocket.Upgrader
	connCfg    realtime.ConnectionConfig
	log        logger.Logger
}

func NewWebSocketHandler(
	chatService service.ChatService,
	messageService service.MessageService,
	registry *realtime.Registry,
	dispatcher realtime.Dispatcher,
	cfg config.RealtimeConfig,
	log logger.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		registry:   registry,
		dispatcher: dispatcher,
		guard:      &socketGuard{chats: chatService, messages: messageService},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		connCfg: realtime.ConnectionConfig{
			PingPeriod:     cfg.PingPeriod,
			PongWait:       cfg.PongWait,
			WriteWait:      cfg.WriteWait,
			ReadLimit:      cfg.ReadLimit,
			SendBufferSize: cfg.SendBufferSize,
		},
		log: log,
	}
}

// Handle поднимает websocket сессию для аутентифицированного пользователя
func (h *WebSocketHandler) Handle(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ
		h.log.Warn("Failed to upgrade connection", "error", err)
		return
	}

	conn := realtime.NewConnection(who.UserID, ws, h.connCfg)
	session := realtime.NewSession(conn, who, h.registry, h.dispatcher, h.guard, h.log)
	session.Run(c.Request.Context())
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// socketGuard проверяет доступ websocket событий через сервисы
type socketGuard struct {
	chats    service.ChatService
	messages service.MessageService
}

func (g *socketGuard) AuthorizeJoin(ctx context.Context, who domain.Identity, chatID uuid.UUID) error {
	_, err := g.chats.GetChat(ctx, who, chatID)
	return err
}

func (g *socketGuard) ResolveRelay(ctx context.Context, who domain.Identity, messageID int64) (*domain.Message, error) {
	msg, err := g.messages.GetMessage(ctx, who, messageID)
	if err != nil {
		return nil, err
	}
	// пересылать можно только свое сообщение
	if msg.SenderID != who.UserID {
		return nil, apperrors.ErrForbidden
	}
	return msg, nil
}
