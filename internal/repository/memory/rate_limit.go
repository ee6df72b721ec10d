package memory

import (
	"context"
	"time"
)

type rateWindow struct {
	count   int64
	resetAt time.Time
}

type rateLimitRepository struct {
	s *Store
}

func (r *rateLimitRepository) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	w, ok := r.s.rateCounters[key]
	if !ok || !now.Before(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(window)}
		r.s.rateCounters[key] = w
	}
	w.count++
	return w.count, w.resetAt.Sub(now), nil
}
