package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/wikifun/wikifun/backend/go-services/pkg/metrics"
)

// probe endpoints are never limited
var unlimitedPaths = map[string]bool{"/health": true, "/ready": true, "/metrics": true}

// limiterStore holds one token bucket per key for a single middleware instance.
type limiterStore struct {
	rps   float64
	burst int
	m     sync.Map // map[string]*rate.Limiter
}

func (s *limiterStore) get(key string) *rate.Limiter {
	if v, ok := s.m.Load(key); ok {
		return v.(*rate.Limiter)
	}
	v, _ := s.m.LoadOrStore(key, rate.NewLimiter(rate.Limit(s.rps), s.burst))
	return v.(*rate.Limiter)
}

// rateKey limits authenticated users per username (NAT-friendly) and
// everybody else per client IP.
func rateKey(c *gin.Context) string {
	if a := ActorFrom(c); a.IsAuthenticated() {
		return "user:" + a.Username()
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

func rejectRate(c *gin.Context, limiter, retryAfter string) {
	c.Header("Retry-After", retryAfter)
	metrics.RateLimitRejected.WithLabelValues(limiter).Inc()
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
}

// RateLimitMiddleware enforces a per-key token bucket inside this process:
// rps tokens per second, at most burst banked.
// Register it after Identity so authenticated requests are keyed by username.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	store := &limiterStore{rps: rps, burst: burst}
	return func(c *gin.Context) {
		if unlimitedPaths[c.Request.URL.Path] {
			c.Next()
			return
		}
		if !store.get(rateKey(c)).Allow() {
			rejectRate(c, "memory", "1")
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
