package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	resp "task-manager-api/internal/transport/http/response"
)

// RateLimit is one token bucket shared by every caller.
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeTooMany, "too many requests"))
	}
}

// ipBucketIdle is how long a client ip may stay quiet before its bucket is dropped.
const ipBucketIdle = 10 * time.Minute

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// ipBuckets keeps one limiter per client ip and forgets idle ones, so the
// map is bounded by the ips seen within one idle window.
type ipBuckets struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	m         map[string]*ipBucket
}

func newIPBuckets(rps rate.Limit, burst int, idle time.Duration) *ipBuckets {
	return &ipBuckets{rps: rps, burst: burst, idle: idle, m: make(map[string]*ipBucket)}
}

func (b *ipBuckets) allow(ip string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	// sweep at most once per idle window
	if now.Sub(b.lastSweep) >= b.idle {
		for k, v := range b.m {
			if now.Sub(v.seen) >= b.idle {
				delete(b.m, k)
			}
		}
		b.lastSweep = now
	}

	e, ok := b.m[ip]
	if !ok {
		e = &ipBucket{lim: rate.NewLimiter(b.rps, b.burst)}
		b.m[ip] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

func (b *ipBuckets) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.m)
}

// RateLimitPerIP keeps one bucket per client ip.
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	buckets := newIPBuckets(rps, burst, ipBucketIdle)
	return func(c *gin.Context) {
		if buckets.allow(c.ClientIP(), time.Now()) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeTooMany, "too many requests"))
	}
}
