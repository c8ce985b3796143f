package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/haystack/common/cache"
	"github.com/lyzr/haystack/common/logger"
	"github.com/lyzr/haystack/common/models"
	"github.com/lyzr/haystack/common/resolution"
)

// maxPhotoBytes caps the body of a pre-warm request at what the cache accepts
const maxPhotoBytes = cache.MaxEntryBytes

// Pipeline is the read-through photo pipeline. *resolution.Orchestrator
// satisfies it.
type Pipeline interface {
	Lookup(ctx context.Context, identity models.PhotoIdentity, machineID int) (resolution.Result, error)
	Populate(ctx context.Context, identity models.PhotoIdentity, data []byte) error
	Warm(ctx context.Context, identity models.PhotoIdentity, machineID int) error
}

// PhotoHandler serves photo bytes and accepts pre-warm pushes
type PhotoHandler struct {
	pipeline Pipeline
	log      *logger.Logger
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(pipeline Pipeline, log *logger.Logger) *PhotoHandler {
	return &PhotoHandler{
		pipeline: pipeline,
		log:      log,
	}
}

// GetPhoto serves a photo through the cache
// GET /:machine_id/:logical_volume/:photo_id?cookie=
func (h *PhotoHandler) GetPhoto(c echo.Context) error {
	machineID, err := parseMachineID(c)
	if err != nil {
		return err
	}

	cookie := c.QueryParam("cookie")
	if cookie == "" {
		return echo.NewHTTPError(http.StatusForbidden, "cookie is required")
	}

	identity := models.NewPhotoIdentity(c.Param("photo_id"), cookie)
	res, err := h.pipeline.Lookup(c.Request().Context(), identity, machineID)
	if err != nil {
		return faultResponse(err)
	}

	if res.Status != resolution.StatusFound {
		return echo.NewHTTPError(http.StatusNotFound, "photo not found")
	}

	return c.Blob(http.StatusOK, http.DetectContentType(res.Data), res.Data)
}

// CacheIt pre-warms the cache. A request body is cached as the photo
// bytes; an empty body loads the photo from its store partition.
// POST /cacheit/:machine_id/:logical_volume/:photo_id/:cookie
func (h *PhotoHandler) CacheIt(c echo.Context) error {
	machineID, err := parseMachineID(c)
	if err != nil {
		return err
	}

	identity := models.NewPhotoIdentity(c.Param("photo_id"), c.Param("cookie"))
	if identity.Cookie == "" {
		return echo.NewHTTPError(http.StatusForbidden, "cookie is required")
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPhotoBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read body").SetInternal(err)
	}
	if len(body) > maxPhotoBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "photo too large")
	}

	ctx := c.Request().Context()
	source := "request"
	if len(body) > 0 {
		err = h.pipeline.Populate(ctx, identity, body)
	} else {
		source = "store"
		err = h.pipeline.Warm(ctx, identity, machineID)
	}

	switch {
	case err == nil:
	case errors.Is(err, resolution.ErrNotInStore):
		return echo.NewHTTPError(http.StatusNotFound, "photo not found in store")
	case source == "store" && isFault(err):
		return faultResponse(err)
	default:
		h.log.WithPhotoID(identity.PhotoID).Error("pre-warm failed", "source", source, "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "cache unavailable").SetInternal(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":     "cached",
		"photo_id":   identity.PhotoID,
		"machine_id": machineID,
		"source":     source,
	})
}
