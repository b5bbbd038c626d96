package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/guttosm/k4ledger/internal/domain/dto"
)

// Defaults used by RateLimiter. A pipeline run re-reads a whole year of
// exports, so the budget is per minute rather than per second.
var (
	window = time.Minute
	limit  = 60
)

type visitor struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// limiter keeps one token bucket per client IP. The bucket holds `burst`
// tokens and refills burst tokens per window.
type limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    rate.Limit
	burst    int
	idle     time.Duration
}

func newLimiter(limit int, window time.Duration) *limiter {
	if limit < 1 {
		limit = 1
	}
	return &limiter{
		visitors: make(map[string]*visitor),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		idle:     2 * window,
	}
}

// allow takes one token from the bucket of ip at now.
func (l *limiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(l.every, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.lim.AllowN(now, 1)
}

// evict drops clients not seen for the idle period before now.
func (l *limiter) evict(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, ip)
			n++
		}
	}
	return n
}

// janitor evicts idle clients every interval until stop is closed.
func (l *limiter) janitor(interval time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-t.C:
			l.evict(now)
		}
	}
}

// RateLimiter limits each client IP to `limit` requests per `window`
// (60 per minute by default) and answers 429 beyond that.
//
// Response when limit exceeded:
//
//	HTTP/1.1 429 Too Many Requests
//	{"message": "rate limit exceeded", ...}
//
// The buckets live in memory; each instance limits on its own.
func RateLimiter() gin.HandlerFunc {
	return NewRateLimiter(limit, window)
}

// NewRateLimiter is RateLimiter with an explicit budget. Idle clients are
// evicted by a background goroutine once per window.
func NewRateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	l := newLimiter(limit, window)
	go l.janitor(window, nil)
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse("rate limit exceeded", nil))
			return
		}
		c.Next()
	}
}
