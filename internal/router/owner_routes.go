package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-booking/internal/handler"
	"github.com/iliyamo/venue-booking/internal/middleware"
	"github.com/iliyamo/venue-booking/internal/model"
)

// RegisterOwner registers OWNER-scoped endpoints under /v1.
// All routes require a valid JWT and OWNER role; the handlers check that
// the caller owns the venue in question.
func RegisterOwner(e *echo.Echo, b *handler.BookingHandler, v *handler.VenueHandler, o *handler.OrderHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOwner),
	)

	// ---- Venues and resources ----
	g.POST("/venues", v.CreateVenue)
	g.POST("/resources", v.CreateResource)
	g.PATCH("/resources/:id", v.SetResourceDisabled)
	g.DELETE("/resources/:id", v.DeleteResource)

	// ---- Bookings ----
	g.POST("/bookings/:id/status", b.Transition)
	g.GET("/venues/:id/bookings", b.VenueBookings)

	// ---- Reports ----
	g.GET("/venues/:id/upcoming", b.Upcoming)
	g.GET("/venues/:id/check-outs", b.CheckOuts)
	g.GET("/venues/:id/stats", b.Stats)
	g.GET("/resources/:id/occupancy", b.Occupancy)

	// ---- Orders ----
	g.GET("/venues/:id/orders/kitchen", o.Kitchen)
	g.GET("/venues/:id/orders/delivery", o.Deliveries)
	g.POST("/orders/:id/status", o.Transition)
	g.POST("/orders/:id/driver", o.AssignDriver)
}
