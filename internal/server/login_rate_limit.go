package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginRateLimit throttles credential endpoints per client IP before they
// reach the lockout guard. The limiter degrades open; the lockout guard is
// the enforcement layer.
func (s *Server) LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.loginLimiter.Enabled() {
			c.Next()
			return
		}

		res, err := s.loginLimiter.AllowLogin(c.Request.Context(), c.ClientIP())
		if err != nil {
			s.log.Warn("login rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			if res.RetryAfter > 0 {
				seconds := int(res.RetryAfter / time.Second)
				if seconds < 1 {
					seconds = 1
				}
				c.Header("Retry-After", strconv.Itoa(seconds))
			}
			AbortWithError(c, ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
