package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"campus_chat/internal/domain"
	"campus_chat/internal/realtime"
	"campus_chat/internal/repository"
	apperrors "campus_chat/pkg/errors"
	"campus_chat/pkg/logger"
)

type MessageService interface {
	SendMessage(ctx context.Context, sender domain.Identity, chatID uuid.UUID, content string) (*domain.Message, error)
	FetchMessages(ctx context.Context, who domain.Identity, chatID uuid.UUID) ([]*domain.Message, error)
	// GetMessage возвращает сохраненное сообщение с участниками чата
	GetMessage(ctx context.Context, who domain.Identity, messageID int64) (*domain.Message, error)
}

type messageService struct {
	messageRepo   repository.MessageRepository
	chatRepo      repository.ChatRepository
	directoryRepo repository.DirectoryRepository
	dispatcher    realtime.Dispatcher
	hydrate       *hydrator
	maxLength     int
	log           logger.Logger
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	chatRepo repository.ChatRepository,
	directoryRepo repository.DirectoryRepository,
	dispatcher realtime.Dispatcher,
	maxLength int,
	log logger.Logger,
) MessageService {
	return &messageService{
		messageRepo:   messageRepo,
		chatRepo:      chatRepo,
		directoryRepo: directoryRepo,
		dispatcher:    dispatcher,
		hydrate:       &hydrator{directory: directoryRepo, messages: messageRepo},
		maxLength:     maxLength,
		log:           log,
	}
}

func (s *messageService) SendMessage(ctx context.Context, sender domain.Identity, chatID uuid.UUID, content string) (*domain.Message, error) {
	if chatID == uuid.Nil {
		return nil, apperrors.Validation("chat id is required")
	}
	content, err := validateContent(content, s.maxLength)
	if err != nil {
		return nil, err
	}

	chat, err := visibleChat(ctx, s.chatRepo, s.directoryRepo, sender, chatID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ChatID:   chatID,
		SenderID: sender.UserID,
		Content:  content,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	chat.LatestMessageID = &msg.ID
	chat.UpdatedAt = msg.CreatedAt
	if err := s.hydrate.chats(ctx, []*domain.Chat{chat}, false); err != nil {
		return nil, err
	}
	if err := s.hydrate.senders(ctx, []*domain.Message{msg}); err != nil {
		return nil, err
	}
	msg.Chat = chat

	// Сообщение уже сохранено: ошибка доставки не отменяет отправку
	event := realtime.Event{Type: realtime.EventMessageReceived, Room: realtime.ChatRoom(chatID), Message: msg}
	if err := s.dispatcher.Publish(ctx, realtime.ChatRoom(chatID), event); err != nil {
		s.log.Warn("Failed to publish message", "error", err, "chat_id", chatID, "message_id", msg.ID)
	}

	return msg, nil
}

func (s *messageService) FetchMessages(ctx context.Context, who domain.Identity, chatID uuid.UUID) ([]*domain.Message, error) {
	if chatID == uuid.Nil {
		return nil, apperrors.Validation("chat id is required")
	}
	if _, err := visibleChat(ctx, s.chatRepo, s.directoryRepo, who, chatID); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate.senders(ctx, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *messageService) GetMessage(ctx context.Context, who domain.Identity, messageID int64) (*domain.Message, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	chat, err := visibleChat(ctx, s.chatRepo, s.directoryRepo, who, msg.ChatID)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate.chats(ctx, []*domain.Chat{chat}, false); err != nil {
		return nil, err
	}
	if err := s.hydrate.senders(ctx, []*domain.Message{msg}); err != nil {
		return nil, err
	}
	msg.Chat = chat
	return msg, nil
}

func validateContent(content string, maxLength int) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperrors.Validation("content is required")
	}
	if maxLength > 0 && utf8.RuneCountInString(content) > maxLength {
		return "", apperrors.Validation("content is too long")
	}
	return content, nil
}
