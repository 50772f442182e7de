package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter backed by redis, shared across
// instances. It fails open: if redis is unreachable the request goes
// through and the error is logged by the caller's redis hooks, not here.
type RateLimiter struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{
		client:  client,
		prefix:  "chronocap:ratelimit:",
		timeout: 250 * time.Millisecond,
	}
}

// Allow increments the window counter for key and reports whether the
// request fits the limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	if limit <= 0 {
		return true
	}
	if window <= 0 {
		window = time.Minute
	}

	ctx, cancel := context.WithTimeout(ctx, rl.timeout)
	defer cancel()

	redisKey := rl.prefix + key
	counter, err := rl.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return true
	}
	if counter == 1 {
		_ = rl.client.Expire(ctx, redisKey, window).Err()
	}
	return int(counter) <= limit
}

// Limit builds a gin middleware limiting each caller to limit requests
// per window. Authenticated callers are keyed by user id, everyone else
// by client IP. A nil limiter disables limiting (no redis configured).
func (rl *RateLimiter) Limit(limit int, window time.Duration) gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if uid := c.GetString("user_id"); uid != "" {
			key = "user:" + uid
		}

		if !rl.Allow(c.Request.Context(), key, limit, window) {
			c.JSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
