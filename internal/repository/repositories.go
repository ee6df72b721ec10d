package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"campus_chat/pkg/logger"
)

type Repositories struct {
	Chat          ChatRepository
	Message       MessageRepository
	DirectMessage DirectMessageRepository
	Directory     DirectoryRepository
	RateLimit     RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, redis *redis.Client, log logger.Logger) *Repositories {
	repos := &Repositories{
		Chat:          NewChatRepository(db, log),
		Message:       NewMessageRepository(db, log),
		DirectMessage: NewDirectMessageRepository(db, log),
		Directory:     NewDirectoryRepository(db, log),
	}

	if redis != nil {
		repos.RateLimit = NewRateLimitRepository(redis, log)
	} else {
		log.Warn("Redis is disabled, rate limit repository is not initialized")
	}

	return repos
}
