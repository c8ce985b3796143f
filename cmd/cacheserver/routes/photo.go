package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/lyzr/haystack/cmd/cacheserver/container"
	"github.com/lyzr/haystack/cmd/cacheserver/handlers"
	"github.com/lyzr/haystack/common/middleware"
)

// RegisterPhotoRoutes registers the photo read and pre-warm routes
func RegisterPhotoRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewPhotoHandler(c.Orchestrator, c.Components.Logger)

	// GET /1/7/42.jpg?cookie=abc
	e.GET("/:machine_id/:logical_volume/:photo_id", h.GetPhoto)

	var guards []echo.MiddlewareFunc
	if c.RateLimiter != nil {
		rl := c.Components.Config.RateLimit
		guards = append(guards, middleware.ClientRateLimitMiddleware(c.RateLimiter, "cacheit", rl.CacheItLimit, rl.Window))
	}

	// POST /cacheit/1/7/42/abc
	e.POST("/cacheit/:machine_id/:logical_volume/:photo_id/:cookie", h.CacheIt, guards...)
}
