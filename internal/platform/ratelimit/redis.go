package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/transfer-verification-engine/internal/domain/shared"
)

// RedisLimiter keeps counters in Redis so every gateway replica shares them
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	logger *slog.Logger
}

// NewRedisLimiter creates a limiter whose keys are namespaced by prefix
func NewRedisLimiter(logger *slog.Logger, client redis.Cmdable, prefix string) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (l *RedisLimiter) key(key string) string {
	return l.prefix + key
}

// Check reports a lockout with the remaining TTL as retry-after
func (l *RedisLimiter) Check(ctx context.Context, key string, maxAttempts int) error {
	k := l.key(key)
	count, err := l.client.Get(ctx, k).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		l.logger.Error("Failed to read attempt counter", "key", k, "error", err)
		return fmt.Errorf("failed to read attempt counter: %w", err)
	}
	if count < maxAttempts {
		return nil
	}
	return l.tooMany(ctx, key)
}

// Reserve increments the counter and rejects when the new value is past
// maxAttempts. INCR is atomic, so every replica sees a distinct count. The
// expiry is only set when the key has none, so repeated failures do not
// extend the window.
func (l *RedisLimiter) Reserve(ctx context.Context, key string, maxAttempts int, cooldown time.Duration) error {
	k := l.key(key)
	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		l.logger.Error("Failed to increment attempt counter", "key", k, "error", err)
		return fmt.Errorf("failed to increment attempt counter: %w", err)
	}
	if err := l.client.ExpireNX(ctx, k, cooldown).Err(); err != nil {
		l.logger.Error("Failed to set attempt counter expiry", "key", k, "error", err)
		return fmt.Errorf("failed to set attempt counter expiry: %w", err)
	}
	if count > int64(maxAttempts) {
		return l.tooMany(ctx, key)
	}
	return nil
}

// Release decrements the counter and drops it once nothing is left
func (l *RedisLimiter) Release(ctx context.Context, key string) error {
	k := l.key(key)
	count, err := l.client.Decr(ctx, k).Result()
	if err != nil {
		l.logger.Error("Failed to release attempt", "key", k, "error", err)
		return fmt.Errorf("failed to release attempt: %w", err)
	}
	if count <= 0 {
		return l.Clear(ctx, key)
	}
	return nil
}

func (l *RedisLimiter) tooMany(ctx context.Context, key string) error {
	k := l.key(key)
	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil {
		l.logger.Error("Failed to read attempt counter ttl", "key", k, "error", err)
		return fmt.Errorf("failed to read attempt counter ttl: %w", err)
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return &shared.TooManyAttemptsError{Key: key, RetryAfter: ttl}
}

// Clear removes the counter
func (l *RedisLimiter) Clear(ctx context.Context, key string) error {
	k := l.key(key)

	if err := l.client.Del(ctx, k).Err(); err != nil {
		l.logger.Error("Failed to clear attempt counter", "key", k, "error", err)
		return fmt.Errorf("failed to clear attempt counter: %w", err)
	}

	return nil
}
