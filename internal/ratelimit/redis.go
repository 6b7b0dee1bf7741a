package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the limiter with a shared Redis instance so counts
// hold across server processes.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// consumeScript applies the fixed-window policy atomically: increment,
// start the window on first observation, and undo the increment when
// the cap was already reached so denied calls do not grow the count.
// Returns {allowed, count, pttl}.
var consumeScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local count = redis.call("INCR", KEYS[1])
local allowed = 1
if count == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if count > limit then
    redis.call("DECR", KEYS[1])
    count = limit
    allowed = 0
end
local ttl = redis.call("PTTL", KEYS[1])
return {allowed, count, ttl}
`)

func (s *RedisStore) Consume(ctx context.Context, identifier string, limit int, window time.Duration) (Result, error) {
	key := "ratelimit:" + identifier

	values, err := consumeScript.Run(ctx, s.client, []string{key},
		limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: redis consume: %w", err)
	}
	if len(values) != 3 {
		return Result{}, fmt.Errorf("ratelimit: unexpected script reply: %v", values)
	}

	allowed, count, ttl := values[0] == 1, values[1], values[2]

	resetAt := time.Now().Add(time.Duration(ttl) * time.Millisecond)
	if ttl < 0 {
		resetAt = time.Now().Add(window)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{Allowed: allowed, Remaining: remaining, ResetAt: resetAt}, nil
}
