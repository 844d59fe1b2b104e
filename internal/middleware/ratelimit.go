package middleware

import (
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"
    "golang.org/x/time/rate"

    "github.com/tiffinbox/tiffin-service/internal/config"
)

var limiterScript = redis.NewScript(`
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
        local until_next = interval_ms - (now_ms - last_refill)
        if until_next < 0 then until_next = 0 end
        retry_after_ms = until_next
    end

    redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill, 'capacity', capacity)
    redis.call('EXPIRE', key, ttl_seconds)

    return { allowed, tokens, retry_after_ms }
`)

// NewTokenBucket limits requests per key.  With a Redis client the bucket is
// shared by every instance through a Lua script; without one each process
// keeps its own buckets.  A Redis failure lets the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
    if !cfg.Enabled {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    if rdb == nil {
        return newLocalBuckets(cfg).middleware(log)
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            args := []interface{}{
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL / time.Second),
            }

            vals, err := limiterScript.Run(c.Request().Context(), rdb, []string{key}, args...).Result()
            if err != nil {
                if cfg.Debug {
                    log.WithError(err).WithField("key", key).Warn("rate limit script failed")
                }
                return next(c)
            }
            arr, ok := vals.([]interface{})
            if !ok || len(arr) != 3 {
                if cfg.Debug {
                    log.WithField("key", key).Warnf("unexpected rate limit result %#v", vals)
                }
                return next(c)
            }
            allowed := fmt.Sprint(arr[0]) == "1"
            remaining := asInt64(arr[1])
            retryMs := asInt64(arr[2])

            c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
            if !allowed {
                return tooMany(c, cfg, log, key, time.Duration(retryMs)*time.Millisecond)
            }
            if cfg.Debug {
                c.Response().Header().Set("X-RateLimit-Key", key)
            }
            return next(c)
        }
    }
}

func tooMany(c echo.Context, cfg config.RateLimitConfig, log logrus.FieldLogger, key string, retry time.Duration) error {
    secs := int(math.Ceil(retry.Seconds()))
    if secs < 0 {
        secs = 0
    }
    c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
    if cfg.Debug {
        log.WithFields(logrus.Fields{"key": key, "retry_after": secs}).Info("rate limited")
    }
    return c.JSON(http.StatusTooManyRequests, echo.Map{
        "success":     false,
        "message":     "rate limit exceeded",
        "retry_after": secs,
    })
}

// localBuckets is the in-process fallback used when Redis is unavailable.
type localBuckets struct {
    cfg      config.RateLimitConfig
    mu       sync.Mutex
    limiters map[string]*rate.Limiter
    limit    rate.Limit
}

func newLocalBuckets(cfg config.RateLimitConfig) *localBuckets {
    limit := rate.Inf
    if cfg.RefillTokens > 0 && cfg.RefillInterval > 0 {
        limit = rate.Every(cfg.RefillInterval / time.Duration(cfg.RefillTokens))
    }
    return &localBuckets{cfg: cfg, limiters: map[string]*rate.Limiter{}, limit: limit}
}

func (b *localBuckets) get(key string) *rate.Limiter {
    b.mu.Lock()
    defer b.mu.Unlock()
    l, ok := b.limiters[key]
    if !ok {
        // Bounded memory: start over rather than track last use.
        if len(b.limiters) >= 10000 {
            b.limiters = map[string]*rate.Limiter{}
        }
        l = rate.NewLimiter(b.limit, b.cfg.Capacity)
        b.limiters[key] = l
    }
    return l
}

func (b *localBuckets) middleware(log logrus.FieldLogger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(b.cfg, c)
            l := b.get(key)
            r := l.Reserve()
            if !r.OK() {
                return tooMany(c, b.cfg, log, key, b.cfg.RefillInterval)
            }
            c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(b.cfg.Capacity))
            if d := r.Delay(); d > 0 {
                r.Cancel()
                return tooMany(c, b.cfg, log, key, d)
            }
            c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(l.Tokens())))
            return next(c)
        }
    }
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil {
            return n
        }
    }
    return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    uid := callerKey(c)
    route := c.Request().Method + " " + c.Path()

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "user":
        parts = append(parts, "user", uid)
    case "route":
        parts = append(parts, "route", route)
    case "ip_user":
        parts = append(parts, "ip", ip, "user", uid)
    case "ip_route":
        parts = append(parts, "ip", ip, "route", route)
    case "user_route":
        parts = append(parts, "user", uid, "route", route)
    default:
        parts = append(parts, "ip", ip, "user", uid, "route", route)
    }
    return strings.Join(parts, ":")
}
