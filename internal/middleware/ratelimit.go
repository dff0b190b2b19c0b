package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ClientLimiter hands out one token bucket per client IP. A client may burst
// maxRequests at once and refills at maxRequests per window. Buckets of idle
// clients expire.
type ClientLimiter struct {
	mu       sync.Mutex
	buckets  *cache.Cache
	limit    rate.Limit
	burst    int
	maxReqs  int
	window   time.Duration
	disabled bool
}

// NewRateLimit creates a limiter. A non-positive maxRequests or window
// disables limiting.
func NewRateLimit(maxRequests int, window time.Duration) *ClientLimiter {
	if maxRequests <= 0 || window <= 0 {
		return &ClientLimiter{disabled: true}
	}
	idle := 2 * window
	return &ClientLimiter{
		buckets: cache.New(idle, idle),
		limit:   rate.Limit(float64(maxRequests) / window.Seconds()),
		burst:   maxRequests,
		maxReqs: maxRequests,
		window:  window,
	}
}

func (l *ClientLimiter) limiterFor(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.buckets.Get(client); ok {
		lim := v.(*rate.Limiter)
		l.buckets.Set(client, lim, cache.DefaultExpiration)
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.buckets.Set(client, lim, cache.DefaultExpiration)
	return lim
}

// Allow reports whether client may make a request now, and how many requests
// it has left in its bucket.
func (l *ClientLimiter) Allow(client string) (bool, int) {
	if l.disabled {
		return true, math.MaxInt32
	}
	lim := l.limiterFor(client)
	ok := lim.Allow()
	remaining := int(lim.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return ok, remaining
}

// RateLimitMiddleware rejects clients that exhausted their bucket with 429.
func RateLimitMiddleware(limiter *ClientLimiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter.disabled {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		allowed, remaining := limiter.Allow(clientIP)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.maxReqs))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			logger.Warn("Rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.Int("max_requests", limiter.maxReqs),
				zap.Duration("window", limiter.window),
			)

			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limiter.window.Seconds()/float64(limiter.maxReqs)))))
			c.AbortWithStatusJSON(429, gin.H{
				"error": "Rate limit exceeded",
				"code":  "RATE_LIMIT_EXCEEDED",
			})
			return
		}

		c.Next()
	}
}
