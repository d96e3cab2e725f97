package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipLimiters hands out one token bucket per client IP and forgets idle ones.
type ipLimiters struct {
	mu       sync.Mutex
	perSec   rate.Limit
	burst    int
	limiters map[string]*clientLimiter
	lastGC   time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const limiterIdleTTL = 10 * time.Minute

func (l *ipLimiters) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastGC) > limiterIdleTTL {
		for key, cl := range l.limiters {
			if now.Sub(cl.lastSeen) > limiterIdleTTL {
				delete(l.limiters, key)
			}
		}
		l.lastGC = now
	}

	cl, ok := l.limiters[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.perSec, l.burst)}
		l.limiters[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// RateLimit rejects requests from a client IP above perSecond with a burst
// of burst. perSecond <= 0 disables the limit.
func RateLimit(perSecond float64, burst int) gin.HandlerFunc {
	if perSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiters := &ipLimiters{
		perSec:   rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*clientLimiter),
		lastGC:   time.Now(),
	}
	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP(), time.Now()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Too many requests, please slow down"})
			return
		}
		c.Next()
	}
}
