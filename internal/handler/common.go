package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/escape-room-reservation/internal/middleware"
	"github.com/iliyamo/escape-room-reservation/internal/model"
)

// statusOf maps a domain error kind to its HTTP status.
var statusOf = map[model.Kind]int{
	model.KindNotFound:                     http.StatusNotFound,
	model.KindDuplicateBooking:             http.StatusConflict,
	model.KindAlreadyClaimed:               http.StatusConflict,
	model.KindInUse:                        http.StatusConflict,
	model.KindSameDayCancellationForbidden: http.StatusBadRequest,
	model.KindInvalidStatusFilter:          http.StatusBadRequest,
	model.KindInvalidTransition:            http.StatusBadRequest,
	model.KindInvalidArgument:              http.StatusBadRequest,
	model.KindForbidden:                    http.StatusForbidden,
	model.KindUnauthorized:                 http.StatusUnauthorized,
}

// writeError renders err as {"error": kind, "message": ...}.  Errors that
// are not domain errors are logged and reported as 500 without detail.
func writeError(c echo.Context, err error) error {
	var de *model.Error
	if errors.As(err, &de) {
		status, ok := statusOf[de.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		return c.JSON(status, echo.Map{"error": de.Kind, "message": de.Message})
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL", "message": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": model.KindInvalidArgument, "message": msg})
}

// callerOf returns the authenticated caller or a zero Caller, which the
// service rejects as unauthenticated.
func callerOf(c echo.Context) model.Caller {
	caller, _ := middleware.CallerFrom(c)
	return caller
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// optionalUint parses an optional numeric query parameter; empty means zero.
func optionalUint(c echo.Context, name string) (uint64, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.ParseUint(v, 10, 64)
	return n, err == nil
}

// optionalDate parses an optional YYYY-MM-DD query parameter.
func optionalDate(c echo.Context, name string) (time.Time, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return time.Time{}, true
	}
	t, err := model.ParseDate(v)
	return t, err == nil
}
