package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ActionRateLimit limits shop and ledger actions per user (not per IP).
// Requires JWT middleware to run before this.
func ActionRateLimit(maxActions int, window time.Duration) gin.HandlerFunc {
	local := newLocalLimiter(maxActions, window)
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var count int64
		if redisClient == nil {
			_, n := local.allow(userID, time.Now())
			count = int64(n)
		} else {
			key := "action_rl:" + userID + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
			val, err := hit(c.Request.Context(), key, window)
			if err != nil {
				c.Header("X-ActionRateLimit-Error", "redis-error")
				c.Next()
				return
			}
			count = val
		}

		c.Header("X-ActionRateLimit-Limit", strconv.Itoa(maxActions))
		c.Header("X-ActionRateLimit-Remaining", strconv.FormatInt(max(0, int64(maxActions)-count), 10))

		if count > int64(maxActions) {
			RLBlocked.WithLabelValues("action:" + c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "action rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues("action:" + c.FullPath()).Inc()
		c.Next()
	}
}
