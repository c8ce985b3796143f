package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/haystack/common/metrics"
	"github.com/lyzr/haystack/common/ratelimit"
)

// ClientRateLimitMiddleware limits requests per client address on one route.
// Counters live in the cache cluster so every server behind the load
// balancer shares them. A failed check lets the request through.
func ClientRateLimitMiddleware(rateLimiter *ratelimit.RateLimiter, route string, limit int64, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			client := c.RealIP()

			result, err := rateLimiter.CheckClient(c.Request().Context(), route, client, limit, window)
			if err != nil {
				// fail open
				return next(c)
			}

			if !result.Allowed {
				metrics.RateLimited.WithLabelValues(route).Inc()
				c.Response().Header().Set("Retry-After", strconv.FormatInt(result.RetryAfterSeconds, 10))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "rate_limit_exceeded",
					"message": "Too many requests. Please wait before trying again.",
					"details": map[string]interface{}{
						"limit":               result.Limit,
						"window":              window.String(),
						"current_count":       result.CurrentCount,
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}
