package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/iliyamo/movie-booking/internal/config"
)

// limiterScript refills continuously at rate tokens per ms and takes one
// token per call. It returns {allowed, remaining, retry_after_ms}.
var limiterScript = redis.NewScript(`
local bucket = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local now = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local per_ms = tonumber(ARGV[3])

local tokens = tonumber(bucket[1]) or burst
local ts = tonumber(bucket[2]) or now
if now > ts then
  tokens = math.min(burst, tokens + (now - ts) * per_ms)
end

local ok, wait = 0, 0
if tokens >= 1 then
  ok = 1
  tokens = tokens - 1
elseif per_ms > 0 then
  wait = math.ceil((1 - tokens) / per_ms)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', now)
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return {ok, math.floor(tokens), wait}
`)

// NewTokenBucket limits requests per key with a token bucket.  With Redis
// the bucket is shared across instances through a Lua script; without it
// an in-process limiter with the same capacity and refill rate is used.
// Redis errors fail open.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if rdb == nil {
		return newMemoryBucket(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			args := []any{
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.PerSecond() / 1000,
				cfg.TTL.Milliseconds(),
			}

			vals, err := limiterScript.Run(c.Request().Context(), rdb, []string{key}, args...).Result()
			if err != nil {
				if cfg.Debug {
					log.Warn("ratelimit redis error", zap.String("key", key), zap.Error(err))
				}
				return next(c)
			}
			arr, ok := vals.([]any)
			if !ok || len(arr) != 3 {
				if cfg.Debug {
					log.Warn("ratelimit unexpected script result", zap.String("key", key), zap.Any("result", vals))
				}
				return next(c)
			}
			allowed := asInt64(arr[0]) == 1
			remaining := asInt64(arr[1])
			retryMs := asInt64(arr[2])

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if cfg.Debug {
				c.Response().Header().Set("X-RateLimit-Key", key)
			}
			if !allowed {
				if cfg.Debug {
					log.Info("ratelimit block", zap.String("key", key), zap.Int64("retry_ms", retryMs))
				}
				return tooManyRequests(c, int(math.Ceil(float64(max(retryMs, 0))/1000)))
			}
			return next(c)
		}
	}
}

func newMemoryBucket(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.PerSecond()),
		Burst:     cfg.Capacity,
		ExpiresIn: cfg.TTL,
	})
	retry := int(math.Ceil(cfg.RefillInterval.Seconds()))
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return buildRateKey(cfg, c), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return tooManyRequests(c, retry)
		},
		ErrorHandler: func(c echo.Context, _ error) error {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "rate limit identifier unavailable"})
		},
	})
}

func tooManyRequests(c echo.Context, retryAfter int) error {
	c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
	return c.JSON(http.StatusTooManyRequests, echo.Map{
		"error":       "rate limit exceeded",
		"retry_after": retryAfter,
	})
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}

// buildRateKey joins the components named by cfg.KeyStrategy, an
// underscore separated list of ip, user and route.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	strategy := strings.ToLower(cfg.KeyStrategy)
	if strategy == "" {
		strategy = "ip_route"
	}
	parts := []string{cfg.Prefix}
	for _, name := range strings.Split(strategy, "_") {
		switch name {
		case "ip":
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			parts = append(parts, name, ip)
		case "user":
			parts = append(parts, name, callerKey(c))
		case "route":
			parts = append(parts, name, c.Request().Method+" "+c.Path())
		}
	}
	return strings.Join(parts, ":")
}
