package service

import (
	"context"
	"time"

	"campus_chat/internal/domain"
	"campus_chat/internal/repository"
	"campus_chat/pkg/logger"
)

type RateLimitService interface {
	// Allow учитывает запрос в окне scope:subject и решает, пропускать ли его
	Allow(ctx context.Context, scope, subject string, limit int, window time.Duration) (domain.RateLimitDecision, error)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		log:           log,
	}
}

func (s *rateLimitService) Allow(ctx context.Context, scope, subject string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	decision := domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit, ResetIn: window}
	if s.rateLimitRepo == nil || limit <= 0 {
		return decision, nil
	}

	count, resetIn, err := s.rateLimitRepo.Hit(ctx, "rate_limit:"+scope+":"+subject, window)
	if err != nil {
		return decision, err
	}

	decision.ResetIn = resetIn
	decision.Remaining = limit - int(count)
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	decision.Allowed = count <= int64(limit)
	if !decision.Allowed {
		s.log.Warn("Rate limit exceeded", "scope", scope, "subject", subject, "count", count)
	}
	return decision, nil
}
