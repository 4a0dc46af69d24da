// Package ratelimit applies a fixed-window request limit per caller. The
// window counter lives in Redis so the limit holds across replicas; a
// process-local limiter backs development mode.
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"incorp/pkg/platform/httputil"
	"incorp/pkg/requestcontext"
)

// Result reports one limiter decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter counts one request against the caller's window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Middleware enforces the limit per authenticated user, falling back to the
// remote address for unauthenticated requests. Limiter failures fail open:
// dropping requests because Redis blinked would hurt more than a brief
// window overrun.
func Middleware(limiter Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := r.RemoteAddr
			if id := requestcontext.UserID(ctx); !id.IsNil() {
				key = id.String()
			}

			result, err := limiter.Allow(ctx, key)
			if err != nil {
				logger.WarnContext(ctx, "rate limit check failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retry := int(time.Until(result.ResetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":       "rate_limit_exceeded",
					"message":     "Too many requests. Please try again later.",
					"retry_after": retry,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RedisLimiter is a fixed-window counter shared across replicas.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now()
	bucket := now.Truncate(l.window)
	redisKey := "ratelimit:" + key + ":" + strconv.FormatInt(bucket.Unix(), 10)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	n := int(count.Val())
	remaining := l.limit - n
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   n <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   bucket.Add(l.window),
	}, nil
}

// MemoryLimiter is a process-local fixed-window counter.
type MemoryLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	bucket time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		counts: make(map[string]int),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket := l.now().Truncate(l.window)
	if bucket != l.bucket {
		l.bucket = bucket
		l.counts = make(map[string]int)
	}
	l.counts[key]++

	n := l.counts[key]
	remaining := l.limit - n
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   n <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   bucket.Add(l.window),
	}, nil
}
