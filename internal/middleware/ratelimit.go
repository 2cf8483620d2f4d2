package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"pixelnest/internal/metrics"

	"github.com/gin-gonic/gin"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// RateLimit caps requests per client IP for one route group. A nil limiter
// disables the check; limiter errors let the request through.
func RateLimit(l Limiter, name string, limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || limit <= 0 {
			c.Next()
			return
		}

		ok, err := l.Allow(c.Request.Context(), name+":"+c.ClientIP(), limit, window)
		if err != nil {
			log.Printf("[RateLimit] %s: %v", name, err)
			c.Next()
			return
		}
		if !ok {
			metrics.RateLimited.WithLabelValues(name).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests, please try again later",
				"error":   "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
