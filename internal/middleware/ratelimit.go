package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window per-key request limiter used on the admin API.
// The bot webhook is deliberately not limited by IP: platform updates all
// arrive from the platform's own egress addresses, so an IP limit there would
// throttle the bot itself.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	span    time.Duration
}

type window struct {
	count int
	reset time.Time
}

func NewRateLimiter(limit int, span time.Duration) *RateLimiter {
	r := &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		span:    span,
	}
	go r.cleanup()
	return r
}

func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	w := r.windows[key]
	if w == nil || now.After(w.reset) {
		r.windows[key] = &window{count: 1, reset: now.Add(r.span)}
		return true
	}
	if w.count >= r.limit {
		return false
	}
	w.count++
	return true
}

func (r *RateLimiter) cleanup() {
	tick := time.NewTicker(time.Minute)
	for range tick.C {
		r.mu.Lock()
		now := time.Now()
		for k, w := range r.windows {
			if now.After(w.reset) {
				delete(r.windows, k)
			}
		}
		r.mu.Unlock()
	}
}

// RateLimit returns a middleware that limits by client IP.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
