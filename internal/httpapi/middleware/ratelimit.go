package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/academictracker/api/internal/cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter enforces fixed-window request limits backed by Redis.
type RateLimiter struct {
	client    *redis.Client
	namespace string
	logger    *zap.Logger
	now       func() time.Time
}

// NewRateLimiter returns a limiter. With a nil client every request passes.
func NewRateLimiter(client *redis.Client, namespace string, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{client: client, namespace: namespace, logger: logger, now: time.Now}
}

// Limit allows at most limit requests per key in each window.
func (l *RateLimiter) Limit(name string, limit int, window time.Duration, keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l.client == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bucket := l.now().Unix() / int64(window.Seconds())
			key := cache.Key(l.namespace, "ratelimit", name, keyFn(r), strconv.FormatInt(bucket, 10))

			pipe := l.client.TxPipeline()
			incr := pipe.Incr(r.Context(), key)
			pipe.Expire(r.Context(), key, window)
			if _, err := pipe.Exec(r.Context()); err != nil {
				// Fail open: a Redis outage must not lock users out.
				l.logger.Warn("rate limiter unavailable", zap.String("limiter", name), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			count := incr.Val()
			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if count > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				writeError(w, http.StatusTooManyRequests, "rate_limited", fmt.Sprintf("too many %s attempts, try again later", name))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
