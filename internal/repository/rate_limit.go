package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"campus_chat/pkg/logger"
)

type RateLimitRepository interface {
	// Hit увеличивает счетчик окна и возвращает его значение и остаток окна
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type rateLimitRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRateLimitRepository(redis *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{redis: redis, log: log}
}

func (r *rateLimitRepository) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		r.log.Error("Failed to increment rate limit", "error", err, "key", key)
		return 0, 0, err
	}

	count, resetIn := incr.Val(), ttl.Val()
	if resetIn < 0 {
		// Новый ключ: окно начинается с первого запроса
		if err := r.redis.PExpire(ctx, key, window).Err(); err != nil {
			r.log.Warn("Failed to set rate limit window", "error", err, "key", key)
		}
		resetIn = window
	}

	return count, resetIn, nil
}
