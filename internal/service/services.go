package service

import (
	"campus_chat/internal/config"
	"campus_chat/internal/realtime"
	"campus_chat/internal/repository"
	"campus_chat/pkg/logger"
)

type Services struct {
	Chat      ChatService
	Message   MessageService
	Direct    DirectService
	RateLimit RateLimitService
}

func NewServices(repos *repository.Repositories, dispatcher realtime.Dispatcher, cfg *config.Config, log logger.Logger) *Services {
	return &Services{
		Chat:      NewChatService(repos.Chat, repos.Message, repos.Directory, log),
		Message:   NewMessageService(repos.Message, repos.Chat, repos.Directory, dispatcher, cfg.Chat.MaxMessageLength, log),
		Direct:    NewDirectService(repos.DirectMessage, repos.Directory, dispatcher, cfg.Chat.MaxMessageLength, log),
		RateLimit: NewRateLimitService(repos.RateLimit, log),
	}
}
