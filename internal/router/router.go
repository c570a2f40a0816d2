// Package router registers the HTTP routes and their middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/escape-room-reservation/internal/config"
	"github.com/iliyamo/escape-room-reservation/internal/handler"
	"github.com/iliyamo/escape-room-reservation/internal/middleware"
	"github.com/iliyamo/escape-room-reservation/internal/model"
)

// Deps carries everything the routes need.  A nil Redis client disables
// rate limiting and response caching.
type Deps struct {
	JWTSecret    string
	DB           handler.Pinger
	Redis        *redis.Client
	RateLimit    config.RateLimitConfig
	Cache        config.CacheConfig
	Auth         *handler.AuthHandler
	Reservations *handler.ReservationHandler
	Catalog      *handler.CatalogHandler
}

// RegisterRoutes wires public, member and admin routes on e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))

	RegisterAuth(e, d)
	RegisterPublic(e, d)
	RegisterMember(e, d)
	RegisterAdmin(e, d)
}

// RegisterAuth registers the session endpoints.  Register, login and
// refresh need no session; logout accepts one when present.
func RegisterAuth(e *echo.Echo, d Deps) {
	g := e.Group("/v1/auth")
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	// Rotates the refresh token.
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/logout", d.Auth.Logout, middleware.OptionalJWT(d.JWTSecret))

	g.GET("/me", d.Auth.Me, middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(model.RoleUser, model.RoleAdmin))
}

// RegisterPublic registers the catalog reads.  Theme and time listings are
// cached; availability depends on reservations and is always computed.
func RegisterPublic(e *echo.Echo, d Deps) {
	cache := middleware.NewRedisCache(d.Cache, d.Redis)
	e.GET("/v1/themes", d.Catalog.Themes, cache)
	e.GET("/v1/times", d.Catalog.Times, cache)
	e.GET("/v1/times/available", d.Catalog.Available)
}

// RegisterMember registers reservation routes for any signed-in member.
// Booking and cancel are rate limited.
func RegisterMember(e *echo.Echo, d Deps) {
	g := e.Group("/v1/reservations")
	g.Use(middleware.JWTAuth(d.JWTSecret))
	g.Use(middleware.RequireRole(model.RoleUser, model.RoleAdmin))

	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis)
	g.POST("", d.Reservations.Create, limit)
	g.GET("/mine", d.Reservations.Mine)
	g.GET("/:id", d.Reservations.Get)
	g.DELETE("/:id", d.Reservations.Cancel, limit)
}

// RegisterAdmin registers the ADMIN-only routes.  Catalog writes purge the
// response cache.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(d.JWTSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin))

	g.GET("/reservations", d.Reservations.List)
	g.GET("/reservations/search", d.Reservations.Search)
	g.POST("/reservations", d.Reservations.Create, middleware.NewTokenBucket(d.RateLimit, d.Redis))
	g.DELETE("/reservations/:id", d.Reservations.Delete)
	g.GET("/waitlist", d.Reservations.Waitlist)

	purge := middleware.InvalidateCache(d.Cache, d.Redis)
	g.POST("/themes", d.Catalog.CreateTheme, purge)
	g.POST("/times", d.Catalog.CreateTime, purge)
	g.DELETE("/times/:id", d.Catalog.DeleteTime, purge)
}
