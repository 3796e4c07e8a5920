package roles

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisCache shares resolved roles across instances. Redis errors degrade
// to cache misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func roleKey(userID uuid.UUID) string {
	return "stockdesk:role:" + userID.String()
}

func (c *RedisCache) Get(ctx context.Context, userID uuid.UUID) (access.Role, bool) {
	value, err := c.client.Get(ctx, roleKey(userID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("role cache read failed", "user_id", userID.String(), "error", err)
		}
		return "", false
	}
	role, known := access.ParseRole(value)
	if !known {
		return "", false
	}
	return role, true
}

func (c *RedisCache) Set(ctx context.Context, userID uuid.UUID, role access.Role) {
	if err := c.client.Set(ctx, roleKey(userID), string(role), c.ttl).Err(); err != nil {
		slog.Warn("role cache write failed", "user_id", userID.String(), "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, userID uuid.UUID) {
	if err := c.client.Del(ctx, roleKey(userID)).Err(); err != nil {
		slog.Warn("role cache delete failed", "user_id", userID.String(), "error", err)
	}
}
