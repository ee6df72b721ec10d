package handler

import (
	"campus_chat/internal/config"
	"campus_chat/internal/realtime"
	"campus_chat/internal/service"
	"campus_chat/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Chat      *ChatHandler
	Message   *MessageHandler
	Direct    *DirectHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, registry *realtime.Registry, dispatcher realtime.Dispatcher, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(registry, cfg.Storage),
		Chat:      NewChatHandler(services.Chat, log),
		Message:   NewMessageHandler(services.Message, log),
		Direct:    NewDirectHandler(services.Direct, log),
		WebSocket: NewWebSocketHandler(services.Chat, services.Message, registry, dispatcher, cfg.Realtime, log),
	}
}
