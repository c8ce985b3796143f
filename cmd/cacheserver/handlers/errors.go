package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/haystack/common/store"
)

// faultResponse maps a store fault to its HTTP status. Faults are never
// reported as a plain not-found.
func faultResponse(err error) error {
	kind := store.KindOf(err)

	var status int
	switch kind {
	case store.KindRouting:
		status = http.StatusBadRequest
	case store.KindUnavailable:
		status = http.StatusServiceUnavailable
	case store.KindIndexCorruption:
		status = http.StatusInternalServerError
	case store.KindQuery:
		status = http.StatusBadGateway
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, map[string]string{
			"error": "internal",
		}).SetInternal(err)
	}

	return echo.NewHTTPError(status, map[string]string{
		"error":   kind.String(),
		"message": err.Error(),
	}).SetInternal(err)
}

func parseMachineID(c echo.Context) (int, error) {
	machineID, err := strconv.Atoi(c.Param("machine_id"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "machine_id must be an integer")
	}
	return machineID, nil
}

func isFault(err error) bool {
	return store.KindOf(err) != store.KindNone
}
