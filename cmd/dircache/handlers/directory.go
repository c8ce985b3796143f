package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/haystack/common/logger"
	"github.com/lyzr/haystack/common/models"
)

// Registry is the directory cache. *resolution.Directory satisfies it.
type Registry interface {
	Lookup(ctx context.Context, photoID string) (models.DirectoryEntry, bool, error)
	Register(ctx context.Context, machineID int, logicalVolume string, identity models.PhotoIdentity) (models.DirectoryEntry, error)
}

// DirectoryHandler serves photo locations
type DirectoryHandler struct {
	registry Registry
	log      *logger.Logger
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(registry Registry, log *logger.Logger) *DirectoryHandler {
	return &DirectoryHandler{
		registry: registry,
		log:      log,
	}
}

// GetLocation returns the URL a photo is served from
// GET /photos/:photo_id
func (h *DirectoryHandler) GetLocation(c echo.Context) error {
	photoID := c.Param("photo_id")

	entry, found, err := h.registry.Lookup(c.Request().Context(), photoID)
	if err != nil {
		h.log.WithPhotoID(photoID).Error("directory lookup failed", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "directory unavailable").SetInternal(err)
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "photo not in directory")
	}

	return c.String(http.StatusOK, entry.URL)
}

// CacheIt records the location of a committed photo
// POST /cacheit/:machine_id/:logical_volume/:photo_id/:cookie
func (h *DirectoryHandler) CacheIt(c echo.Context) error {
	machineID, err := strconv.Atoi(c.Param("machine_id"))
	if err != nil || machineID < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "machine_id must be a non-negative integer")
	}

	identity := models.NewPhotoIdentity(c.Param("photo_id"), c.Param("cookie"))
	if identity.Cookie == "" {
		return echo.NewHTTPError(http.StatusForbidden, "cookie is required")
	}

	entry, err := h.registry.Register(c.Request().Context(), machineID, c.Param("logical_volume"), identity)
	if err != nil {
		h.log.WithPhotoID(identity.PhotoID).Error("directory register failed", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "directory unavailable").SetInternal(err)
	}

	return c.JSON(http.StatusOK, entry)
}
