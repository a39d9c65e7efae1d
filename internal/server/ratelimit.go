package server

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

// refreshRateLimit throttles refreshes per session id.
func (s *Server) refreshRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.refreshLimit.Enabled() {
			c.Next()
			return
		}

		res := s.refreshLimit.AllowSession(c.Request.Context(), c.Param("id"))
		if res.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		}
		if !res.Allowed {
			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
