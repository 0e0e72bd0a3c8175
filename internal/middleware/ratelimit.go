package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/charlesng35/complaintdesk/pkg/errors"
	"github.com/charlesng35/complaintdesk/pkg/response"
)

const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit applies a token bucket per client IP. requestsPerMinute <= 0 disables it.
func RateLimit(requestsPerMinute, burst int) gin.HandlerFunc {
	if requestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = requestsPerMinute
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*clientLimiter)
		sweptAt = time.Now()
		limit   = rate.Limit(float64(requestsPerMinute) / 60)
	)

	return func(c *gin.Context) {
		now := time.Now()
		ip := c.ClientIP()

		mu.Lock()
		if now.Sub(sweptAt) > limiterIdleTTL {
			for key, cl := range clients {
				if now.Sub(cl.lastSeen) > limiterIdleTTL {
					delete(clients, key)
				}
			}
			sweptAt = now
		}
		cl, ok := clients[ip]
		if !ok {
			cl = &clientLimiter{limiter: rate.NewLimiter(limit, burst)}
			clients[ip] = cl
		}
		cl.lastSeen = now
		allowed := cl.limiter.AllowN(now, 1)
		remaining := int(cl.limiter.TokensAt(now))
		mu.Unlock()

		c.Header("X-RateLimit-Limit", strconv.Itoa(requestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(0, remaining)))

		if !allowed {
			c.Header("Retry-After", "60")
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}
		c.Next()
	}
}
