package api

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ProbePaths are left out of rate limiting so health checks and scrapes never
// compete with clients for tokens.
var ProbePaths = []string{"/health", "/readyz", "/metrics"}

// RateLimitMiddleware applies one global token bucket to every request whose
// route is not in exempt.
func RateLimitMiddleware(rps int, exempt ...string) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), rps)

	return func(c *gin.Context) {
		if slices.Contains(exempt, c.FullPath()) {
			c.Next()
			return
		}
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
