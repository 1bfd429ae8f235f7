package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimiter(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	limiter := NewRedisRateLimiter(client, "")
	ctx := context.Background()

	t.Run("WithinAndOverLimit", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			allowed, err := limiter.Allow(ctx, "10.0.0.1", 2, time.Second)
			require.NoError(t, err)
			assert.True(t, allowed)
		}

		allowed, err := limiter.Allow(ctx, "10.0.0.1", 2, time.Second)
		require.NoError(t, err)
		assert.False(t, allowed)

		assert.True(t, s.Exists("rate_limit:10.0.0.1"))
		assert.Equal(t, time.Second, s.TTL("rate_limit:10.0.0.1"))
	})

	t.Run("WindowExpires", func(t *testing.T) {
		s.FastForward(2 * time.Second)

		allowed, err := limiter.Allow(ctx, "10.0.0.1", 2, time.Second)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		allowed, err := limiter.Allow(ctx, "10.0.0.2", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("ConnectionError", func(t *testing.T) {
		s.SetError("LOADING")
		defer s.SetError("")

		_, err := limiter.Allow(ctx, "10.0.0.3", 1, time.Minute)
		assert.Error(t, err)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})
}

func TestRedisRateLimiter_NilClient(t *testing.T) {
	limiter := &RedisRateLimiter{}
	_, err := limiter.Allow(context.Background(), "k", 1, time.Second)
	assert.Error(t, err)
}
