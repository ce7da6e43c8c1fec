package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Well-known rate-limit buckets. Marketplace proxying is cheap and gets a
// generous cap; AI calls are expensive and get a tight one.
const (
	BucketEtsy = "etsy"
	BucketAI   = "ai"
)

const sweepEvery = 100

// RateLimiter applies per-client sliding-window limits, keyed by bucket and
// client IP. State is in-process; the service is otherwise stateless, so a
// single instance needs no cross-instance coordination.
//
// Stale windows are swept lazily every sweepEvery requests instead of by a
// background timer.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	limits map[string]int
	hits   map[string][]time.Time
	seen   int
	now    func() time.Time
}

func NewRateLimiter(window time.Duration, limits map[string]int) *RateLimiter {
	return &RateLimiter{
		window: window,
		limits: limits,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records a hit for (bucket, client) and reports whether it is within
// the window limit. Unknown buckets are unlimited.
func (l *RateLimiter) Allow(bucket, client string) bool {
	limit, ok := l.limits[bucket]
	if !ok || limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.seen++
	if l.seen%sweepEvery == 0 {
		l.sweep(now)
	}

	key := bucket + "|" + client
	recent := prune(l.hits[key], now.Add(-l.window))
	if len(recent) >= limit {
		l.hits[key] = recent
		return false
	}
	l.hits[key] = append(recent, now)
	return true
}

// sweep drops clients whose whole window has expired. Called under mu.
func (l *RateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-l.window)
	for key, times := range l.hits {
		recent := prune(times, cutoff)
		if len(recent) == 0 {
			delete(l.hits, key)
			continue
		}
		l.hits[key] = recent
	}
}

func prune(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}

// Limit is the gin middleware form of Allow for one bucket.
func (l *RateLimiter) Limit(bucket string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(bucket, c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limited. Try again in a moment.",
			})
			return
		}
		c.Next()
	}
}
