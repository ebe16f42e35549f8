package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/herbario-app/herbario/internal/apperr"
	"github.com/herbario-app/herbario/internal/config"
	"github.com/herbario-app/herbario/internal/ratelimit"
)

// RateLimit enforces a per-IP budget for the routes it wraps. The scope
// keeps counters of different route classes apart.
func RateLimit(limiter ratelimit.Limiter, scope string, budget config.WindowLimit) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || budget.Max <= 0 {
			c.Next()
			return
		}
		decision := limiter.Allow(c.Request.Context(), scope+":"+c.ClientIP(), budget.Max)
		if !decision.Allowed {
			c.Header("Retry-After", ratelimit.FormatRetryAfter(decision))
			Fail(c, apperr.New(http.StatusTooManyRequests, apperr.CodeRateLimited, "too many requests"))
			return
		}
		c.Next()
	}
}
