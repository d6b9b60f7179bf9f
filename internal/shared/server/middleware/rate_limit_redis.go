package middleware

import (
	"context"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the counter and sets its expiry on first hit.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RedisRateLimiter shares a fixed-window budget across processes. A rule
// admits Burst requests per Burst/Rate seconds.
type RedisRateLimiter struct {
	client redis.Scripter
	prefix string
}

func NewRedisRateLimiter(client redis.Scripter, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisRateLimiter{client: client, prefix: prefix}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || l.client == nil {
		return true, 0
	}
	if rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	window := windowFor(rule)
	res, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		// fail open
		if err == nil {
			err = redis.Nil
		}
		logLimiterFailure(key, err)
		return true, 0
	}
	count, ttlMs := res[0], res[1]
	if count <= int64(rule.Burst) {
		return true, 0
	}
	if ttlMs <= 0 {
		ttlMs = window.Milliseconds()
	}
	return false, time.Duration(ttlMs) * time.Millisecond
}

func windowFor(rule RateLimitRule) time.Duration {
	seconds := float64(rule.Burst) / rule.Rate
	return time.Duration(math.Ceil(seconds*1000.0)) * time.Millisecond
}
