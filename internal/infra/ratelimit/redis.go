package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"mealplanner-app/internal/domain/mealplans"
)

// RedisQuota is a fixed-window counter backed by Redis. The window starts at
// the first hit for a key and every instance of the API shares it.
type RedisQuota struct {
	rdb    *redis.Client
	window time.Duration
	prefix string
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

func NewRedisQuota(rdb *redis.Client, window time.Duration, prefix string) *RedisQuota {
	if window <= 0 {
		window = 24 * time.Hour
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "quota"
	}
	return &RedisQuota{rdb: rdb, window: window, prefix: prefix}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Consume counts one hit for key. It returns the count within the window and
// whether that count is within limit.
func (q *RedisQuota) Consume(ctx context.Context, key string, limit int) (int64, bool, error) {
	count, err := q.incr(ctx, q.prefix+":"+key)
	if err != nil {
		return 0, false, err
	}
	return count, count <= int64(limit), nil
}

// Remaining reports how many hits are left for key without consuming one.
func (q *RedisQuota) Remaining(ctx context.Context, key string, limit int) (int64, error) {
	v, err := q.rdb.Get(ctx, q.prefix+":"+key).Int64()
	if err == redis.Nil {
		return int64(limit), nil
	}
	if err != nil {
		return 0, err
	}
	left := int64(limit) - v
	if left < 0 {
		left = 0
	}
	return left, nil
}

func (q *RedisQuota) incr(ctx context.Context, key string) (int64, error) {
	ms := q.window.Milliseconds()
	res, err := fixedWindowScript.Run(ctx, q.rdb, []string{key}, ms).Result()
	if err != nil {
		return 0, err
	}
	switch v := res.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, err
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected redis script result type %T", res)
	}
}

var _ mealplans.Quota = (*RedisQuota)(nil)
