package service

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"campus_chat/internal/domain"
	"campus_chat/internal/repository"
	apperrors "campus_chat/pkg/errors"
)

// hydrator заполняет профили участников, админа и последнее сообщение
type hydrator struct {
	directory repository.DirectoryRepository
	messages  repository.MessageRepository
}

func (h *hydrator) chats(ctx context.Context, chats []*domain.Chat, withLatest bool) error {
	if len(chats) == 0 {
		return nil
	}

	userIDs := make([]uuid.UUID, 0)
	latestIDs := make([]int64, 0)
	for _, c := range chats {
		userIDs = append(userIDs, c.ParticipantIDs...)
		if c.AdminID != nil {
			userIDs = append(userIDs, *c.AdminID)
		}
		if withLatest && c.LatestMessageID != nil {
			latestIDs = append(latestIDs, *c.LatestMessageID)
		}
	}

	var (
		profiles map[uuid.UUID]*domain.UserProfile
		latest   map[int64]*domain.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = h.directory.GetProfiles(gctx, domain.UniqueIDs(userIDs))
		return err
	})
	g.Go(func() error {
		var err error
		latest, err = h.messages.GetByIDs(gctx, latestIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// отправители последних сообщений могут не быть среди участников (чаты курса и ролей)
	missing := make([]uuid.UUID, 0)
	for _, m := range latest {
		if _, ok := profiles[m.SenderID]; !ok {
			missing = append(missing, m.SenderID)
		}
	}
	if len(missing) > 0 {
		extra, err := h.directory.GetProfiles(ctx, domain.UniqueIDs(missing))
		if err != nil {
			return err
		}
		for id, p := range extra {
			profiles[id] = p
		}
	}

	for _, c := range chats {
		c.Participants = make([]*domain.UserProfile, 0, len(c.ParticipantIDs))
		for _, id := range c.ParticipantIDs {
			if p, ok := profiles[id]; ok {
				c.Participants = append(c.Participants, p)
			}
		}
		if c.AdminID != nil {
			c.Admin = profiles[*c.AdminID]
		}
		if withLatest && c.LatestMessageID != nil {
			if m, ok := latest[*c.LatestMessageID]; ok {
				m.Sender = profiles[m.SenderID]
				c.LatestMessage = m
			}
		}
	}
	return nil
}

func (h *hydrator) senders(ctx context.Context, messages []*domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.SenderID)
	}
	profiles, err := h.directory.GetProfiles(ctx, domain.UniqueIDs(ids))
	if err != nil {
		return err
	}
	for _, m := range messages {
		m.Sender = profiles[m.SenderID]
	}
	return nil
}

// visibleChat загружает чат и проверяет, что он виден пользователю с его текущей ролью
func visibleChat(ctx context.Context, chats repository.ChatRepository, directory repository.DirectoryRepository, who domain.Identity, chatID uuid.UUID) (*domain.Chat, error) {
	chat, err := chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	var courseIDs []uuid.UUID
	if chat.Kind == domain.ChatKindCourse {
		courseIDs, err = directory.ListCourseIDs(ctx, who.UserID)
		if err != nil {
			return nil, err
		}
	}

	if !chat.VisibleTo(who.UserID, who.Role, courseIDs) {
		return nil, apperrors.ErrNotChatMember
	}
	return chat, nil
}
