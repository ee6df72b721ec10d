package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"campus_chat/internal/domain"
	"campus_chat/internal/repository"
	apperrors "campus_chat/pkg/errors"
	"campus_chat/pkg/logger"
)

type ChatService interface {
	AccessOrCreateDirectChat(ctx context.Context, requesterID, otherUserID uuid.UUID) (*domain.Chat, error)
	ListChatsForUser(ctx context.Context, userID uuid.UUID, role string) ([]*domain.Chat, error)
	CreateGroupChat(ctx context.Context, creatorID uuid.UUID, name string, memberIDs []uuid.UUID) (*domain.Chat, error)
	CreateCourseChat(ctx context.Context, facultyID, courseID uuid.UUID, name string) (*domain.Chat, error)
	CreateRoleRoom(ctx context.Context, creatorID uuid.UUID, roles []string, name string) (*domain.Chat, error)
	GetChat(ctx context.Context, who domain.Identity, chatID uuid.UUID) (*domain.Chat, error)
}

const directGateTimeout = 10 * time.Second

type chatService struct {
	chatRepo      repository.ChatRepository
	directoryRepo repository.DirectoryRepository
	hydrate       *hydrator
	// directGate сводит одновременные find-or-create одной пары к одному запросу в БД
	directGate singleflight.Group
	log        logger.Logger
}

func NewChatService(chatRepo repository.ChatRepository, messageRepo repository.MessageRepository, directoryRepo repository.DirectoryRepository, log logger.Logger) ChatService {
	return &chatService{
		chatRepo:      chatRepo,
		directoryRepo: directoryRepo,
		hydrate:       &hydrator{directory: directoryRepo, messages: messageRepo},
		log:           log,
	}
}

func (s *chatService) AccessOrCreateDirectChat(ctx context.Context, requesterID, otherUserID uuid.UUID) (*domain.Chat, error) {
	if otherUserID == uuid.Nil {
		return nil, apperrors.Validation("user id is required")
	}
	if requesterID == otherUserID {
		return nil, apperrors.ErrSelfChat
	}
	if _, err := s.directoryRepo.GetProfile(ctx, otherUserID); err != nil {
		return nil, err
	}

	key := domain.ConversationKey(requesterID, otherUserID)
	v, err, _ := s.directGate.Do(key, func() (interface{}, error) {
		// результат общий для всех ожидающих, отмена первого запроса не должна его обрывать
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), directGateTimeout)
		defer cancel()

		chat, err := s.chatRepo.FindDirect(ctx, key)
		if err == nil {
			return chat, nil
		}
		if !errors.Is(err, apperrors.ErrChatNotFound) {
			return nil, err
		}

		chat, created, err := s.chatRepo.CreateDirect(ctx, domain.NewDirectChat(requesterID, otherUserID))
		if err != nil {
			return nil, err
		}
		if created {
			s.log.Info("Direct chat created", "chat_id", chat.ID, "key", key)
		}
		return chat, nil
	})
	if err != nil {
		return nil, fmt.Errorf("access direct chat: %w", err)
	}

	// результат singleflight общий для всех ожидающих, гидрируем копию
	shared := v.(*domain.Chat)
	chat := *shared
	if err := s.hydrate.chats(ctx, []*domain.Chat{&chat}, true); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *chatService) ListChatsForUser(ctx context.Context, userID uuid.UUID, role string) ([]*domain.Chat, error) {
	courseIDs, err := s.directoryRepo.ListCourseIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	chats, err := s.chatRepo.ListVisible(ctx, userID, role, courseIDs)
	if err != nil {
		return nil, err
	}

	if err := s.hydrate.chats(ctx, chats, true); err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *chatService) CreateGroupChat(ctx context.Context, creatorID uuid.UUID, name string, memberIDs []uuid.UUID) (*domain.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("group name is required")
	}

	members := make([]uuid.UUID, 0, len(memberIDs))
	for _, id := range domain.UniqueIDs(memberIDs) {
		if id != creatorID {
			members = append(members, id)
		}
	}
	if len(members) < domain.MinGroupMembers {
		return nil, apperrors.Validation("at least two members besides the creator are required")
	}

	participants := append([]uuid.UUID{creatorID}, members...)
	profiles, err := s.directoryRepo.GetProfiles(ctx, participants)
	if err != nil {
		return nil, err
	}
	for _, id := range members {
		if _, ok := profiles[id]; !ok {
			return nil, fmt.Errorf("member %s: %w", id, apperrors.ErrUserNotFound)
		}
	}

	now := time.Now().UTC()
	chat := &domain.Chat{
		ID:             uuid.New(),
		Kind:           domain.ChatKindGroup,
		Name:           name,
		ParticipantIDs: participants,
		AdminID:        &creatorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := chat.Validate(); err != nil {
		return nil, err
	}
	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return nil, err
	}

	s.log.Info("Group chat created", "chat_id", chat.ID, "creator_id", creatorID, "members", len(members))

	if err := s.hydrate.chats(ctx, []*domain.Chat{chat}, false); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *chatService) CreateCourseChat(ctx context.Context, facultyID, courseID uuid.UUID, name string) (*domain.Chat, error) {
	if courseID == uuid.Nil {
		return nil, apperrors.Validation("course id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.DefaultCourseChatName
	}

	now := time.Now().UTC()
	chat := &domain.Chat{
		ID:            uuid.New(),
		Kind:          domain.ChatKindCourse,
		Name:          name,
		ScopeCourseID: &courseID,
		AdminID:       &facultyID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := chat.Validate(); err != nil {
		return nil, err
	}

	// Один чат на курс: повторный вызов возвращает существующий
	chat, created, err := s.chatRepo.UpsertCourseChat(ctx, chat)
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Info("Course chat created", "chat_id", chat.ID, "course_id", courseID, "admin_id", facultyID)
	}

	if err := s.hydrate.chats(ctx, []*domain.Chat{chat}, true); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *chatService) CreateRoleRoom(ctx context.Context, creatorID uuid.UUID, roles []string, name string) (*domain.Chat, error) {
	roles = domain.NormalizeRoles(roles)
	if len(roles) == 0 {
		return nil, apperrors.Validation("at least one role is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("role room name is required")
	}

	now := time.Now().UTC()
	chat := &domain.Chat{
		ID:           uuid.New(),
		Kind:         domain.ChatKindRoleRoom,
		Name:         name,
		AllowedRoles: roles,
		AdminID:      &creatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := chat.Validate(); err != nil {
		return nil, err
	}
	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return nil, err
	}

	s.log.Info("Role room created", "chat_id", chat.ID, "roles", roles, "creator_id", creatorID)

	if err := s.hydrate.chats(ctx, []*domain.Chat{chat}, false); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *chatService) GetChat(ctx context.Context, who domain.Identity, chatID uuid.UUID) (*domain.Chat, error) {
	chat, err := visibleChat(ctx, s.chatRepo, s.directoryRepo, who, chatID)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate.chats(ctx, []*domain.Chat{chat}, true); err != nil {
		return nil, err
	}
	return chat, nil
}
