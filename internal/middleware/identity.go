package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/escape-room-reservation/internal/model"
)

const callerKey = "caller"

// CallerFrom returns the authenticated caller, if any.
func CallerFrom(c echo.Context) (model.Caller, bool) {
	caller, ok := c.Get(callerKey).(model.Caller)
	return caller, ok && caller.ID != 0
}

// currentUserID keys rate limit buckets; anonymous requests share "anon".
func currentUserID(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s
	}
	return "anon"
}
