// Package middleware holds request middleware shared across route groups.
package middleware

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/mkarlsv/votify/config"
)

// LoginRateLimit limits login attempts per client address with a fixed
// counter in the store: the first attempt in a window starts the expiry,
// once the cap is hit every further attempt gets a 429 until the window
// lapses.
func LoginRateLimit(rdb *redis.Client, cfg *config.RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || !cfg.Enabled {
			c.Next()
			return
		}

		key := "ratelimit:login:" + c.ClientIP()

		count, err := rdb.Incr(c.Request.Context(), key).Result()
		if err != nil {
			// Fail open: a broken limiter must not lock everyone out.
			log.Warn("login rate limit increment failed", "error", err)
			c.Next()
			return
		}
		if count == 1 {
			window := time.Duration(cfg.WindowMinutes) * time.Minute
			if err := rdb.Expire(c.Request.Context(), key, window).Err(); err != nil {
				log.Warn("login rate limit expiry failed", "error", err)
			}
		}

		if count > int64(cfg.MaxAttempts) {
			log.Warn("login rate limit exceeded", "ip", c.ClientIP(), "count", count)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many login attempts. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
