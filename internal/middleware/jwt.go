package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/escape-room-reservation/internal/model"
	"github.com/iliyamo/escape-room-reservation/internal/utils"
)

// JWTAuth validates a Bearer access token and stores the caller in the
// request context.  Handlers read it with CallerFrom; "user_id" and "role"
// are also set for the rate limiter.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": string(model.KindUnauthorized), "message": "missing bearer token"})
			}
			id, role, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": string(model.KindUnauthorized), "message": "invalid token"})
			}
			r := model.Role(role)
			if r != model.RoleAdmin {
				r = model.RoleUser
			}
			c.Set(callerKey, model.Caller{ID: id, Role: r})
			c.Set("user_id", strconv.FormatUint(id, 10))
			c.Set("role", string(r))
			return next(c)
		}
	}
}

// OptionalJWT behaves like JWTAuth when an Authorization header is sent and
// lets anonymous requests through otherwise.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	required := JWTAuth(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withAuth := required(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				return next(c)
			}
			return withAuth(c)
		}
	}
}
