package session

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// advanceScript stores ARGV[1] under KEYS[1] unless a larger version is
// already there.
var advanceScript = redis.NewScript(`
local cur = tonumber(redis.call("GET", KEYS[1]))
local v = tonumber(ARGV[1])
if cur == nil or v >= cur then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
	return 1
end
return 0
`)

// RedisVersions shares session versions across instances. Redis errors
// degrade to cache misses.
type RedisVersions struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisVersions(client *redis.Client, ttl time.Duration) *RedisVersions {
	return &RedisVersions{client: client, ttl: ttl}
}

func versionKey(userID uuid.UUID) string {
	return "stockdesk:session:" + userID.String()
}

func (r *RedisVersions) Get(ctx context.Context, userID uuid.UUID) (int, bool) {
	v, err := r.client.Get(ctx, versionKey(userID)).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("session version read failed", "user_id", userID.String(), "error", err)
		}
		return 0, false
	}
	return v, true
}

func (r *RedisVersions) Advance(ctx context.Context, userID uuid.UUID, version int) {
	err := advanceScript.Run(ctx, r.client, []string{versionKey(userID)},
		strconv.Itoa(version), r.ttl.Milliseconds()).Err()
	if err != nil {
		slog.Warn("session version write failed", "user_id", userID.String(), "error", err)
	}
}
