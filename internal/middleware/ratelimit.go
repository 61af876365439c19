package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RateLimitStrategy selects the limiting algorithm
type RateLimitStrategy string

const (
	// FixedWindow counts requests per aligned window. Allows up to 2x bursts at window edges.
	FixedWindow RateLimitStrategy = "fixed_window"
	// SlidingWindow keeps one sorted-set entry per request inside the window
	SlidingWindow RateLimitStrategy = "sliding_window"
	// TokenBucket refills limit tokens per window and allows bursts up to limit
	TokenBucket RateLimitStrategy = "token_bucket"
)

const rateLimitKeyPrefix = "rate_limit:"

// ParseStrategy maps a config value to a strategy
func ParseStrategy(s string) (RateLimitStrategy, error) {
	switch RateLimitStrategy(s) {
	case FixedWindow, SlidingWindow, TokenBucket:
		return RateLimitStrategy(s), nil
	case "":
		return FixedWindow, nil
	default:
		return "", errors.Errorf("unknown rate limit strategy %q", s)
	}
}

// RateLimitConfig configures a RateLimiter
type RateLimitConfig struct {
	Strategy RateLimitStrategy
	// Limit is the number of requests allowed per Window
	Limit  int
	Window time.Duration
	// KeyFunc picks the bucket for a request; defaults to client IP plus route
	KeyFunc func(*gin.Context) string
	// Now overrides the clock, mainly for tests
	Now func() time.Time
}

type limitResult struct {
	allowed   bool
	remaining int
	resetAt   int64
}

// RateLimiter enforces per-client request limits in Redis
type RateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
	logger *logrus.Entry
}

func NewRateLimiter(client *redis.Client, config RateLimitConfig, log *logrus.Logger) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = IPAndRouteKey
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Strategy == "" {
		config.Strategy = FixedWindow
	}
	return &RateLimiter{
		redis:  client,
		config: config,
		logger: log.WithField("module", "middleware/ratelimit"),
	}
}

// Middleware rejects requests over the limit with 429. Redis failures fail open.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.config.KeyFunc(c)

		res, err := rl.check(c.Request.Context(), key)
		if err != nil {
			rl.logger.WithError(err).WithField("key", key).Warn("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.resetAt, 10))

		if !res.allowed {
			retryAfter := res.resetAt - rl.config.Now().Unix()
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "rate limit exceeded, try again later",
				"data":    nil,
			})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) check(ctx context.Context, key string) (limitResult, error) {
	switch rl.config.Strategy {
	case SlidingWindow:
		return rl.slidingWindow(ctx, key)
	case TokenBucket:
		return rl.tokenBucket(ctx, key)
	default:
		return rl.fixedWindow(ctx, key)
	}
}

// fixedWindow keeps one INCR counter per aligned window
func (rl *RateLimiter) fixedWindow(ctx context.Context, key string) (limitResult, error) {
	windowStart := rl.config.Now().Truncate(rl.config.Window).Unix()
	windowKey := fmt.Sprintf("%s:%d", key, windowStart)

	pipe := rl.redis.TxPipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, rl.config.Window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return limitResult{}, errors.Wrap(err, "fixed window")
	}

	count := int(incr.Val())
	return limitResult{
		allowed:   count <= rl.config.Limit,
		remaining: max(rl.config.Limit-count, 0),
		resetAt:   windowStart + int64(rl.config.Window.Seconds()),
	}, nil
}

// slidingWindow stores one member per request scored by its timestamp
func (rl *RateLimiter) slidingWindow(ctx context.Context, key string) (limitResult, error) {
	now := rl.config.Now()
	cutoff := now.Add(-rl.config.Window).UnixNano()

	pipe := rl.redis.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, rl.config.Window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return limitResult{}, errors.Wrap(err, "sliding window")
	}

	count := int(card.Val())
	return limitResult{
		allowed:   count <= rl.config.Limit,
		remaining: max(rl.config.Limit-count, 0),
		resetAt:   now.Add(rl.config.Window).Unix(),
	}, nil
}

// tokenBucketScript refills and takes a token in one round trip.
// KEYS[1] bucket hash; ARGV: capacity, refill per ms, now ms, ttl ms.
var tokenBucketScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil then
  tokens = capacity
  ts = now
end
tokens = math.min(capacity, tokens + math.max(0, now - ts) * rate)
local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end
redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", tostring(now))
redis.call("PEXPIRE", KEYS[1], ARGV[4])
return {allowed, tostring(tokens)}
`)

func (rl *RateLimiter) tokenBucket(ctx context.Context, key string) (limitResult, error) {
	now := rl.config.Now()
	ratePerMs := float64(rl.config.Limit) / float64(rl.config.Window.Milliseconds())

	raw, err := tokenBucketScript.Run(ctx, rl.redis, []string{key + ":bucket"},
		rl.config.Limit,
		strconv.FormatFloat(ratePerMs, 'f', -1, 64),
		now.UnixMilli(),
		(rl.config.Window * 2).Milliseconds(),
	).Slice()
	if err != nil {
		return limitResult{}, errors.Wrap(err, "token bucket")
	}
	if len(raw) != 2 {
		return limitResult{}, errors.Errorf("token bucket: unexpected reply %v", raw)
	}

	allowed, _ := raw[0].(int64)
	tokensStr, _ := raw[1].(string)
	tokens, err := strconv.ParseFloat(tokensStr, 64)
	if err != nil {
		return limitResult{}, errors.Wrap(err, "token bucket: parse tokens")
	}

	resetAt := now.Unix()
	if tokens < 1 {
		resetAt += int64((1 - tokens) / (ratePerMs * 1000))
	}
	return limitResult{
		allowed:   allowed == 1,
		remaining: int(tokens),
		resetAt:   resetAt,
	}, nil
}

// IPAndRouteKey buckets by client IP and matched route, so every short code shares one redirect bucket
func IPAndRouteKey(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return fmt.Sprintf("%s%s:%s", rateLimitKeyPrefix, c.ClientIP(), route)
}

// IPKey buckets by client IP only
func IPKey(c *gin.Context) string {
	return rateLimitKeyPrefix + "ip:" + c.ClientIP()
}
