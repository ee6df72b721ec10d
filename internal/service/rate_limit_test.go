package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus_chat/internal/domain"
	"campus_chat/internal/repository/memory"
	"campus_chat/pkg/logger"
)

func TestRateLimitService_Allow(t *testing.T) {
	repos := memory.NewRepositories(memory.NewStore())
	svc := NewRateLimitService(repos.RateLimit, logger.Nop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := svc.Allow(ctx, domain.RateLimitScopeUser, "u1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 1-i, d.Remaining)
	}

	d, err := svc.Allow(ctx, domain.RateLimitScopeUser, "u1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	// другой субъект считается отдельно
	d, err = svc.Allow(ctx, domain.RateLimitScopeUser, "u2", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRateLimitService_WithoutRepositoryAllows(t *testing.T) {
	svc := NewRateLimitService(nil, logger.Nop())

	d, err := svc.Allow(context.Background(), domain.RateLimitScopeIP, "127.0.0.1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
