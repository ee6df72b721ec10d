package memory

import (
	"context"

	"github.com/google/uuid"

	"campus_chat/internal/domain"
	apperrors "campus_chat/pkg/errors"
)

type directoryRepository struct {
	s *Store
}

func (r *directoryRepository) GetProfile(ctx context.Context, id uuid.UUID) (*domain.UserProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *directoryRepository) GetProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.UserProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[uuid.UUID]*domain.UserProfile, len(ids))
	for _, id := range ids {
		if p, ok := r.s.users[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (r *directoryRepository) ListCourseIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]uuid.UUID, 0, len(r.s.courses[userID]))
	for id := range r.s.courses[userID] {
		out = append(out, id)
	}
	return out, nil
}
