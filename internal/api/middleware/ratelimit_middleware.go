package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitquest/backend/internal/ratelimit"
)

// RateLimit enforces the quota for endpoint. Authenticated callers are keyed
// by user id, anonymous ones by client IP.
func RateLimit(limiter *ratelimit.Limiter, endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := "ip:" + c.ClientIP()
		if userID, ok := GetUserID(c); ok {
			subject = userID.String()
		}

		res := limiter.Check(c.Request.Context(), subject, endpoint)
		for k, v := range ratelimit.Headers(res) {
			c.Header(k, v)
		}

		if ratelimit.IsRateLimited(res) {
			retry := ratelimit.RetryAfter(res, time.Now())
			c.Header("Retry-After", strconv.Itoa(retry))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retry,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
