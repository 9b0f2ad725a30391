package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/supplychain/procurement/internal/domain/shared"
)

const defaultGuardKeyPrefix = "procurement:submission:"

// releaseScript deletes the lease only while it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisSubmissionGuard implements SubmissionGuard with SET NX PX so that
// every instance sharing the Redis server sees the same leases
type RedisSubmissionGuard struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisSubmissionGuard connects to Redis and verifies the connection
func NewRedisSubmissionGuard(cfg RedisConfig) (*RedisSubmissionGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSubmissionGuardWithClient(client, ""), nil
}

// NewRedisSubmissionGuardWithClient wraps an existing client
func NewRedisSubmissionGuardWithClient(client *redis.Client, keyPrefix string) *RedisSubmissionGuard {
	if keyPrefix == "" {
		keyPrefix = defaultGuardKeyPrefix
	}
	return &RedisSubmissionGuard{client: client, keyPrefix: keyPrefix}
}

// Acquire stores a fresh owner token under the lease key only if it does not exist
func (g *RedisSubmissionGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.keyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire submission lease: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release deletes the lease key with a compare-and-delete on the owner token
func (g *RedisSubmissionGuard) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, g.client, []string{g.keyPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release submission lease: %w", err)
	}
	return nil
}

// Held checks whether the lease key exists
func (g *RedisSubmissionGuard) Held(ctx context.Context, key string) (bool, error) {
	n, err := g.client.Exists(ctx, g.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check submission lease: %w", err)
	}
	return n > 0, nil
}

// Close closes the Redis client
func (g *RedisSubmissionGuard) Close() error {
	return g.client.Close()
}

// GetClient returns the underlying Redis client
func (g *RedisSubmissionGuard) GetClient() *redis.Client {
	return g.client
}

var _ shared.SubmissionGuard = (*RedisSubmissionGuard)(nil)
