package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/wikifun/wikifun/backend/go-services/pkg/logger"
	"github.com/wikifun/wikifun/backend/go-services/pkg/metrics"
)

// RedisRateLimitMiddleware counts requests per key in fixed windows stored
// in Redis, so every wikid replica shares one budget of
// rps*window+burst requests per window. When Redis cannot be reached the
// request is let through.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst)
	}
	secs := int64(window / time.Second)
	if secs <= 0 {
		secs = 1
	}
	limit := int64(rps*float64(secs)) + int64(burst)
	ttl := time.Duration(secs+1) * time.Second
	retryAfter := strconv.FormatInt(secs, 10)

	return func(c *gin.Context) {
		if unlimitedPaths[c.Request.URL.Path] {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := fmt.Sprintf("rl:%s:%d", rateKey(c), time.Now().Unix()/secs)

		var count *redis.IntCmd
		_, err := client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			count = p.Incr(ctx, key)
			p.Expire(ctx, key, ttl)
			return nil
		})
		if err != nil {
			logger.Warnf("redis rate limit unavailable, allowing %s: %v", key, err)
			metrics.RateLimitAllowed.WithLabelValues("redis_unavailable").Inc()
			c.Next()
			return
		}

		n := count.Val()
		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		if n > limit {
			c.Header("X-RateLimit-Remaining", "0")
			rejectRate(c, "redis", retryAfter)
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(limit-n, 10))
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
