package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fleetcost/backend/internal/infrastructure/logger"
	"github.com/fleetcost/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter counts requests per key in fixed windows
type Limiter interface {
	// Allow consumes one request for key and reports the remaining budget
	Allow(ctx context.Context, key string) (allowed bool, remaining int, err error)
	Limit() int
}

// LocalLimiter is an in-process Limiter for single-instance deployments
type LocalLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type window struct {
	start time.Time
	count int
}

// NewLocalLimiter creates a LocalLimiter; Stop ends its sweeper
func NewLocalLimiter(limit int, period time.Duration) *LocalLimiter {
	l := &LocalLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.sweep()
	return l
}

func (l *LocalLimiter) sweep() {
	ticker := time.NewTicker(2 * l.period)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, w := range l.windows {
				if now.Sub(w.start) >= l.period {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop ends the sweeper; safe to call more than once
func (l *LocalLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Limit implements Limiter
func (l *LocalLimiter) Limit() int { return l.limit }

// Allow implements Limiter
func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.period {
		w = &window{start: now}
		l.windows[key] = w
	}
	if w.count >= l.limit {
		return false, 0, nil
	}
	w.count++
	return true, l.limit - w.count, nil
}

// RedisLimiter shares windows between server instances
type RedisLimiter struct {
	client redis.Cmdable
	limit  int
	period time.Duration
	prefix string
}

// NewRedisLimiter creates a RedisLimiter
func NewRedisLimiter(client redis.Cmdable, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, period: period, prefix: "fleetcost:ratelimit:"}
}

// Limit implements Limiter
func (l *RedisLimiter) Limit() int { return l.limit }

// Allow implements Limiter. The window starts with the first request of a key.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	k := l.prefix + key
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, err
	}
	if n == 1 {
		if err := l.client.PExpire(ctx, k, l.period).Err(); err != nil {
			return false, 0, err
		}
	}
	if int(n) > l.limit {
		return false, 0, nil
	}
	return true, l.limit - int(n), nil
}

// RateLimitKey picks the bucket of a request: the token's tenant, then the
// user, then the client IP.
func RateLimitKey(c *gin.Context) string {
	if id, ok := uuidFromGin(c, JWTTenantIDKey); ok {
		return "tenant:" + id.String()
	}
	if id, ok := GetUserID(c); ok {
		return "user:" + id.String()
	}
	return "ip:" + c.ClientIP()
}

// RateLimit rejects requests over the limiter's budget with 429. A limiter
// error lets the request through.
func RateLimit(limiter Limiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = RateLimitKey
	}
	return func(c *gin.Context) {
		allowed, remaining, err := limiter.Allow(c.Request.Context(), keyFunc(c))
		if err != nil {
			logger.RequestLogger(c).Warn("Rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			abortWithError(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, "Too many requests, try again later")
			return
		}
		c.Next()
	}
}
