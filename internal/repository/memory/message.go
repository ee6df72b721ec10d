package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"campus_chat/internal/domain"
	apperrors "campus_chat/pkg/errors"
)

type messageRepository struct {
	s *Store
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	chat, ok := r.s.chats[msg.ChatID]
	if !ok {
		return apperrors.ErrChatNotFound
	}

	r.s.nextMessageID++
	msg.ID = r.s.nextMessageID
	msg.CreatedAt = r.s.now()
	r.s.messages = append(r.s.messages, cloneMessage(msg))

	id := msg.ID
	chat.LatestMessageID = &id
	chat.UpdatedAt = msg.CreatedAt
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, m := range r.s.messages {
		if m.ID == id {
			return cloneMessage(m), nil
		}
	}
	return nil, apperrors.ErrMessageNotFound
}

func (r *messageRepository) ListByChat(ctx context.Context, chatID uuid.UUID) ([]*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Message, 0)
	for _, m := range r.s.messages {
		if m.ChatID == chatID {
			out = append(out, cloneMessage(m))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *messageRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make(map[int64]*domain.Message, len(ids))
	for _, m := range r.s.messages {
		if _, ok := want[m.ID]; ok {
			out[m.ID] = cloneMessage(m)
		}
	}
	return out, nil
}
