package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storefront-auth/internal/ratelimit"
)

// LoginRateLimit throttles an endpoint per client IP. The limiter fails open:
// if Redis is unreachable the request proceeds, since an outage of the
// limiter must not lock everyone out of login.
func LoginRateLimit(limiter *ratelimit.Limiter, log zerolog.Logger) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := c.ClientIP()
		err := limiter.Allow(c.Request.Context(), key)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, ratelimit.ErrRateLimited):
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts, try again later"})
			return
		default:
			log.Warn().Err(err).Msg("rate limiter unavailable, failing open")
			c.Next()
		}
		// A successful attempt clears the counter so a user who eventually
		// presents the right password is not penalized next time.
		if c.Writer.Status() < http.StatusBadRequest {
			if err := limiter.Reset(c.Request.Context(), key); err != nil {
				log.Warn().Err(err).Msg("rate limiter reset failed")
			}
		}
	}
}
