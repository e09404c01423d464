// Package router registers the HTTP routes of the equipment calendar.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/faylib/equipment-calendar/internal/config"
	"github.com/faylib/equipment-calendar/internal/handler"
	"github.com/faylib/equipment-calendar/internal/middleware"
)

// RegisterRoutes registers routes that need no collaborators.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterProxy mounts the passthrough routes.  Each call costs one
// upstream request, so they share the rate limiter.
func RegisterProxy(e *echo.Echo, p *handler.ProxyHandler, rl config.RateLimitConfig, rdb *redis.Client, logger *zap.Logger) {
	g := e.Group("/api", middleware.NewTokenBucket(rl, rdb, logger))
	g.GET("/availability", p.Availability)
	g.POST("/book", p.Book)
	g.GET("/patron", p.Patron)
}

// RegisterCalendar mounts the catalog and calendar views.  The asset list is
// static and is not rate limited.
func RegisterCalendar(e *echo.Echo, h *handler.CalendarHandler, rl config.RateLimitConfig, rdb *redis.Client, logger *zap.Logger) {
	e.GET("/api/assets", h.Assets)

	g := e.Group("/api/calendar", middleware.NewTokenBucket(rl, rdb, logger))
	g.GET("", h.Month)
	g.GET("/day", h.Day)
	g.GET("/slot", h.Slot)
}

// RegisterBooking mounts the booking session routes.  Everything except
// creation requires the session token issued by Create.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, secret string, rl config.RateLimitConfig, rdb *redis.Client, logger *zap.Logger) {
	limit := middleware.NewTokenBucket(rl, rdb, logger)

	e.POST("/api/booking-sessions", b.Create, limit)

	g := e.Group("/api/booking-sessions/:id", middleware.SessionAuth(secret))
	g.GET("", b.Get)
	g.DELETE("", b.Close)
	g.POST("/login", b.Login, limit)
	g.POST("/confirm", b.Confirm, limit)
}
