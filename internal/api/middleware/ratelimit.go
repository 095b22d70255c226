package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eventpass/eventpass-api/internal/api/handler/v1/response"
	"github.com/eventpass/eventpass-api/internal/config"
)

// tokenBucketScript refills the bucket by whole intervals, takes one token
// when available and returns {allowed, tokens_left, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
  local elapsed = math.max(0, now_ms - last_refill)
  local intervals = math.floor(elapsed / interval_ms)
  if intervals > 0 then
    tokens = math.min(capacity, tokens + (intervals * refill_tokens))
    last_refill = last_refill + (intervals * interval_ms)
  end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// RateLimiter is a redis backed token bucket shared by every API instance.
type RateLimiter struct {
	rdb  *redis.Client
	conf *config.RateLimitConfig
	now  func() time.Time
}

func NewRateLimiter(rdb *redis.Client, conf *config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		rdb:  rdb,
		conf: conf,
		now:  time.Now,
	}
}

func (l *RateLimiter) Key(scope, client string) string {
	return fmt.Sprintf("%s:%s:%s", l.conf.Prefix, scope, client)
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	ttl := int64(math.Ceil((2 * l.conf.RefillInterval).Seconds()))
	if ttl < 1 {
		ttl = 1
	}

	vals, err := tokenBucketScript.Run(ctx, l.rdb, []string{key},
		l.now().UnixMilli(),
		int64(l.conf.Capacity),
		int64(l.conf.RefillTokens),
		l.conf.RefillInterval.Milliseconds(),
		ttl,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("tokenBucketScript.Run -> %w", err)
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("unexpected token bucket reply %v", vals)
	}

	return Decision{
		Allowed:    vals[0] == 1,
		Remaining:  vals[1],
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// Limit rate limits requests per client IP within scope. Redis failures
// let the request through.
func (l *RateLimiter) Limit(scope string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !l.conf.Enabled {
			ctx.Next()
			return
		}

		decision, err := l.Allow(ctx.Request.Context(), l.Key(scope, ctx.ClientIP()))
		if err != nil {
			zap.L().Warn("rate limiter unavailable", zap.String("scope", scope), zap.Error(err))
			ctx.Next()
			return
		}

		ctx.Header("X-RateLimit-Limit", strconv.Itoa(l.conf.Capacity))
		ctx.Header("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))

		if !decision.Allowed {
			secs := int(math.Ceil(decision.RetryAfter.Seconds()))
			ctx.Header("Retry-After", strconv.Itoa(secs))
			response.RenderErr(ctx, response.ErrTooManyRequests(secs))
			return
		}

		ctx.Next()
	}
}
