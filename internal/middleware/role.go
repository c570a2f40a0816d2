package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/escape-room-reservation/internal/model"
)

// RequireRole aborts with 403 unless the caller stored by JWTAuth has one of
// roles.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := CallerFrom(c)
			if !ok || !slices.Contains(roles, caller.Role) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": string(model.KindForbidden), "message": "forbidden"})
			}
			return next(c)
		}
	}
}
