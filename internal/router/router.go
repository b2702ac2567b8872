package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/seatwise/show-reservation/internal/handler"
	"github.com/seatwise/show-reservation/internal/middleware"
	"github.com/seatwise/show-reservation/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems probe this endpoint to verify
	// that the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes.  Register and login
// live under /v1/auth and issue the access tokens the protected routes
// require.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
}

// RegisterPublic registers the unauthenticated browse endpoints: the
// show catalog, seat maps and the availability count that booking
// clients poll while choosing seats.  No JWT or role middleware is
// applied so guests can browse before registering.
func RegisterPublic(e *echo.Echo, s *handler.ShowHandler) {
	e.GET("/v1/shows", s.ListShows)
	e.GET("/v1/shows/:id/seats", s.GetShowSeats)
	e.GET("/v1/shows/:id/availability", s.GetAvailability)
}

// RegisterBooking registers the booking endpoints.  All of them require
// a valid access token; the book endpoint additionally passes through
// the Redis token-bucket rate limiter so one client cannot hammer the
// conditional update path.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleCustomer, model.RoleAdmin))

	auth.POST("/shows/:id/book", b.BookSeats, limit)
	auth.GET("/bookings/:token", b.GetBooking)
	auth.GET("/my-bookings", b.ListBookings)
}

// RegisterAdmin registers the admin-only catalog management endpoints.
// Show creation bulk-generates the full seat pool, so it is restricted
// to the ADMIN role.
func RegisterAdmin(e *echo.Echo, s *handler.ShowHandler, jwtSecret string) {
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))

	admin.POST("/shows", s.CreateShow)
}
