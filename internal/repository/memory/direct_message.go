package memory

import (
	"context"

	"github.com/google/uuid"

	"campus_chat/internal/domain"
)

type directMessageRepository struct {
	s *Store
}

func (r *directMessageRepository) Create(ctx context.Context, msg *domain.DirectMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextDirectID++
	msg.ID = r.s.nextDirectID
	msg.CreatedAt = r.s.now()
	msg.Read = false
	r.s.directs = append(r.s.directs, cloneDirect(msg))
	return nil
}

// Сообщения хранятся в порядке вставки, поэтому отдельная сортировка не нужна

func (r *directMessageRepository) ListByConversation(ctx context.Context, key string) ([]*domain.DirectMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.DirectMessage, 0)
	for _, m := range r.s.directs {
		if m.ConversationKey == key {
			out = append(out, cloneDirect(m))
		}
	}
	return out, nil
}

func (r *directMessageRepository) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*domain.DirectMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.DirectMessage, 0)
	for _, m := range r.s.directs {
		if m.Involves(userID) {
			out = append(out, cloneDirect(m))
		}
	}
	return out, nil
}

func (r *directMessageRepository) MarkConversationRead(ctx context.Context, key string, receiverID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, m := range r.s.directs {
		if m.ConversationKey == key && m.UnreadFor(receiverID) {
			m.Read = true
			n++
		}
	}
	return n, nil
}

func (r *directMessageRepository) CountUnread(ctx context.Context, receiverID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, m := range r.s.directs {
		if m.UnreadFor(receiverID) {
			n++
		}
	}
	return n, nil
}
