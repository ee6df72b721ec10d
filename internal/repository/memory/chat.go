package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"campus_chat/internal/domain"
	apperrors "campus_chat/pkg/errors"
)

type chatRepository struct {
	s *Store
}

func (r *chatRepository) Create(ctx context.Context, chat *domain.Chat) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.chats[chat.ID] = cloneChat(chat)
	return nil
}

func (r *chatRepository) CreateDirect(ctx context.Context, chat *domain.Chat) (*domain.Chat, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := chat.DirectKey()
	if id, ok := r.s.directIndex[key]; ok {
		return cloneChat(r.s.chats[id]), false, nil
	}
	r.s.chats[chat.ID] = cloneChat(chat)
	r.s.directIndex[key] = chat.ID
	return cloneChat(chat), true, nil
}

func (r *chatRepository) UpsertCourseChat(ctx context.Context, chat *domain.Chat) (*domain.Chat, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	courseID := *chat.ScopeCourseID
	if id, ok := r.s.courseIndex[courseID]; ok {
		return cloneChat(r.s.chats[id]), false, nil
	}
	r.s.chats[chat.ID] = cloneChat(chat)
	r.s.courseIndex[courseID] = chat.ID
	return cloneChat(chat), true, nil
}

func (r *chatRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	chat, ok := r.s.chats[id]
	if !ok {
		return nil, apperrors.ErrChatNotFound
	}
	return cloneChat(chat), nil
}

func (r *chatRepository) FindDirect(ctx context.Context, directKey string) (*domain.Chat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.directIndex[directKey]
	if !ok {
		return nil, apperrors.ErrChatNotFound
	}
	return cloneChat(r.s.chats[id]), nil
}

func (r *chatRepository) ListVisible(ctx context.Context, userID uuid.UUID, role string, courseIDs []uuid.UUID) ([]*domain.Chat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	chats := make([]*domain.Chat, 0)
	for _, chat := range r.s.chats {
		if chat.VisibleTo(userID, role, courseIDs) {
			chats = append(chats, cloneChat(chat))
		}
	}

	sort.Slice(chats, func(i, j int) bool {
		if !chats[i].UpdatedAt.Equal(chats[j].UpdatedAt) {
			return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
		}
		return chats[i].ID.String() < chats[j].ID.String()
	})
	return chats, nil
}
