package service

import (
	"context"

	"github.com/google/uuid"

	"campus_chat/internal/domain"
	"campus_chat/internal/realtime"
	"campus_chat/internal/repository"
	apperrors "campus_chat/pkg/errors"
	"campus_chat/pkg/logger"
)

// DirectService - упрощенный канал личных сообщений с флагами прочтения
type DirectService interface {
	GetConversations(ctx context.Context, userID uuid.UUID) ([]*domain.ConversationSummary, error)
	// GetMessages помечает входящие сообщения диалога прочитанными и только потом возвращает историю
	GetMessages(ctx context.Context, userID, otherUserID uuid.UUID) ([]*domain.DirectMessage, error)
	SendDirectMessage(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*domain.DirectMessage, error)
	ComputeUnreadCount(ctx context.Context, userID uuid.UUID, conversationKey string) (int, error)
	UnreadTotal(ctx context.Context, userID uuid.UUID) (int, error)
}

type directService struct {
	directRepo    repository.DirectMessageRepository
	directoryRepo repository.DirectoryRepository
	dispatcher    realtime.Dispatcher
	maxLength     int
	log           logger.Logger
}

func NewDirectService(
	directRepo repository.DirectMessageRepository,
	directoryRepo repository.DirectoryRepository,
	dispatcher realtime.Dispatcher,
	maxLength int,
	log logger.Logger,
) DirectService {
	return &directService{
		directRepo:    directRepo,
		directoryRepo: directoryRepo,
		dispatcher:    dispatcher,
		maxLength:     maxLength,
		log:           log,
	}
}

func (s *directService) GetConversations(ctx context.Context, userID uuid.UUID) ([]*domain.ConversationSummary, error) {
	messages, err := s.directRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := summarizeConversations(userID, messages)

	others := make([]uuid.UUID, 0, len(summaries))
	for _, sm := range summaries {
		others = append(others, sm.LastMessage.Counterpart(userID))
	}
	profiles, err := s.directoryRepo.GetProfiles(ctx, others)
	if err != nil {
		return nil, err
	}

	for _, sm := range summaries {
		other := sm.LastMessage.Counterpart(userID)
		if p, ok := profiles[other]; ok {
			sm.OtherUser = p
		} else {
			// пользователь удален из каталога, диалог остается виден
			sm.OtherUser = &domain.UserProfile{ID: other}
		}
	}
	return summaries, nil
}

func (s *directService) GetMessages(ctx context.Context, userID, otherUserID uuid.UUID) ([]*domain.DirectMessage, error) {
	if otherUserID == uuid.Nil {
		return nil, apperrors.Validation("user id is required")
	}
	if userID == otherUserID {
		return nil, apperrors.ErrSelfChat
	}
	return s.readOnFetch(ctx, userID, domain.ConversationKey(userID, otherUserID))
}

// readOnFetch - единственное место, где чтение истории меняет флаги прочтения
func (s *directService) readOnFetch(ctx context.Context, readerID uuid.UUID, key string) ([]*domain.DirectMessage, error) {
	marked, err := s.directRepo.MarkConversationRead(ctx, key, readerID)
	if err != nil {
		return nil, err
	}
	if marked > 0 {
		s.log.Debug("Direct messages marked read", "conversation", key, "reader_id", readerID, "count", marked)
	}
	return s.directRepo.ListByConversation(ctx, key)
}

func (s *directService) SendDirectMessage(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*domain.DirectMessage, error) {
	if receiverID == uuid.Nil {
		return nil, apperrors.Validation("receiver id is required")
	}
	if senderID == receiverID {
		return nil, apperrors.ErrSelfChat
	}
	content, err := validateContent(content, s.maxLength)
	if err != nil {
		return nil, err
	}
	if _, err := s.directoryRepo.GetProfile(ctx, receiverID); err != nil {
		return nil, err
	}

	msg := &domain.DirectMessage{
		ConversationKey: domain.ConversationKey(senderID, receiverID),
		SenderID:        senderID,
		ReceiverID:      receiverID,
		Content:         content,
	}
	if err := s.directRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	room := realtime.UserRoom(receiverID)
	event := realtime.Event{Type: realtime.EventDirectMessageReceived, Room: room, Message: msg}
	if err := s.dispatcher.Publish(ctx, room, event); err != nil {
		s.log.Warn("Failed to publish direct message", "error", err, "message_id", msg.ID)
	}

	return msg, nil
}

func (s *directService) ComputeUnreadCount(ctx context.Context, userID uuid.UUID, conversationKey string) (int, error) {
	messages, err := s.directRepo.ListByConversation(ctx, conversationKey)
	if err != nil {
		return 0, err
	}
	return countUnread(userID, messages), nil
}

func (s *directService) UnreadTotal(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.directRepo.CountUnread(ctx, userID)
}
