package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-booking/internal/handler"
	"github.com/iliyamo/venue-booking/internal/middleware"
)

// RegisterRoutes registers the health check. It pings the database so load
// balancers stop routing to an instance that lost it.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the authentication routes. Register, login and
// refresh need no session; logout accepts either a refresh token or an
// access token, the latter revoking every session of the user.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWTAuth(jwtSecret))

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the unauthenticated browse and availability
// endpoints. cache wraps the listings that change rarely.
func RegisterPublic(e *echo.Echo, b *handler.BookingHandler, v *handler.VenueHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/venues", v.ListVenues, cache)
	e.GET("/v1/venues/:id", v.GetVenue)
	e.GET("/v1/venues/:id/resources", v.ListResources, cache)

	// Availability is never cached: it changes with every booking.
	e.GET("/v1/venues/:id/availability", b.FindAvailable)
	e.GET("/v1/venues/:id/capacity", b.VenueCapacity)
	e.GET("/v1/resources/:id/availability", b.CheckAvailability)
}
