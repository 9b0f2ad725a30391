package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisGuard(t *testing.T) *RedisSubmissionGuard {
	t.Helper()
	addr := os.Getenv("PROCUREMENT_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}

	prefix := "test:" + uuid.NewString() + ":"
	g := NewRedisSubmissionGuardWithClient(client, prefix)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestRedisSubmissionGuard_AcquireRelease(t *testing.T) {
	g := newTestRedisGuard(t)
	ctx := context.Background()

	token, ok, err := g.Acquire(ctx, "order:1", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = g.Acquire(ctx, "order:1", 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	held, err := g.Held(ctx, "order:1")
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, g.Release(ctx, "order:1", "someone-else"))
	held, err = g.Held(ctx, "order:1")
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, g.Release(ctx, "order:1", token))

	held, err = g.Held(ctx, "order:1")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestRedisSubmissionGuard_LeaseExpires(t *testing.T) {
	g := newTestRedisGuard(t)
	ctx := context.Background()

	_, ok, err := g.Acquire(ctx, "order:ttl", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		held, err := g.Held(ctx, "order:ttl")
		return err == nil && !held
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRedisSubmissionGuard_ExpiredHolderCannotReleaseSuccessor(t *testing.T) {
	g := newTestRedisGuard(t)
	ctx := context.Background()

	first, ok, err := g.Acquire(ctx, "order:slow", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	var second string
	require.Eventually(t, func() bool {
		second, ok, err = g.Acquire(ctx, "order:slow", 5*time.Second)
		return err == nil && ok
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, g.Release(ctx, "order:slow", first))
	_, ok, err = g.Acquire(ctx, "order:slow", 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, g.Release(ctx, "order:slow", second))
}

func TestNewRedisSubmissionGuardWithClient_DefaultPrefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	g := NewRedisSubmissionGuardWithClient(client, "")
	assert.Equal(t, defaultGuardKeyPrefix, g.keyPrefix)
	assert.Same(t, client, g.GetClient())
}
