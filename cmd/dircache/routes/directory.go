package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/lyzr/haystack/cmd/dircache/handlers"
	"github.com/lyzr/haystack/common/logger"
)

// RegisterDirectoryRoutes registers the directory read and write routes
func RegisterDirectoryRoutes(e *echo.Echo, registry handlers.Registry, log *logger.Logger) {
	h := handlers.NewDirectoryHandler(registry, log)

	// GET /photos/42.jpg
	e.GET("/photos/:photo_id", h.GetLocation)

	// POST /cacheit/1/7/42/abc
	e.POST("/cacheit/:machine_id/:logical_volume/:photo_id/:cookie", h.CacheIt)
}
