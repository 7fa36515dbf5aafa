package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQuota(t *testing.T) (*RedisQuota, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisQuota(client, time.Hour, "test"), mr
}

func TestConsumeWithinLimit(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQuota(t)

	for i := 1; i <= 3; i++ {
		used, ok, err := q.Consume(ctx, "user:1", 3)
		require.NoError(t, err)
		assert.EqualValues(t, i, used)
		assert.True(t, ok)
	}

	used, ok, err := q.Consume(ctx, "user:1", 3)
	require.NoError(t, err)
	assert.EqualValues(t, 4, used)
	assert.False(t, ok)

	// Separate key, separate window.
	_, ok, err = q.Consume(ctx, "user:2", 3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWindowExpires(t *testing.T) {
	ctx := context.Background()
	q, mr := newTestQuota(t)

	_, _, err := q.Consume(ctx, "user:1", 1)
	require.NoError(t, err)
	_, ok, err := q.Consume(ctx, "user:1", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, mr.Exists("test:user:1"))
	mr.FastForward(time.Hour + time.Second)

	_, ok, err = q.Consume(ctx, "user:1", 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemaining(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQuota(t)

	left, err := q.Remaining(ctx, "user:5", 10)
	require.NoError(t, err)
	assert.EqualValues(t, 10, left)

	_, _, err = q.Consume(ctx, "user:5", 10)
	require.NoError(t, err)
	left, err = q.Remaining(ctx, "user:5", 10)
	require.NoError(t, err)
	assert.EqualValues(t, 9, left)
}

func TestConsumeFailsWhenRedisDown(t *testing.T) {
	q, mr := newTestQuota(t)
	mr.Close()

	_, _, err := q.Consume(context.Background(), "user:1", 1)
	assert.Error(t, err)
}
