package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type clientInfo struct {
	start time.Time
	count int
}

// localLimiter is the in-process fixed window used when Redis is not configured.
type localLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
	max     int
	window  time.Duration
}

const localSweepSize = 10000

func newLocalLimiter(max int, window time.Duration) *localLimiter {
	return &localLimiter{clients: make(map[string]*clientInfo), max: max, window: window}
}

// allow counts one hit for key and reports whether it is within the limit.
func (l *localLimiter) allow(key string, now time.Time) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.clients) > localSweepSize {
		for k, ci := range l.clients {
			if now.Sub(ci.start) > l.window {
				delete(l.clients, k)
			}
		}
	}

	ci, ok := l.clients[key]
	if !ok || now.Sub(ci.start) > l.window {
		l.clients[key] = &clientInfo{start: now, count: 1}
		return true, 1
	}
	ci.count++
	return ci.count <= l.max, ci.count
}

// SimpleRateLimit blocks clients that send more than maxRequests per window
func SimpleRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	l := newLocalLimiter(maxRequests, window)
	return func(c *gin.Context) {
		if ok, _ := l.allow(c.ClientIP(), time.Now()); !ok {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
