package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-booking/internal/handler"
	"github.com/iliyamo/venue-booking/internal/middleware"
	"github.com/iliyamo/venue-booking/internal/model"
)

// RegisterCustomer registers the endpoints any signed-in user may call:
// booking and ordering for themselves. Access to a single booking or order
// is checked in the handler. bookingLimit throttles booking creation on
// top of the global limiter.
func RegisterCustomer(e *echo.Echo, b *handler.BookingHandler, o *handler.OrderHandler, jwtSecret string, bookingLimit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOwner, model.RoleCustomer),
	)

	g.POST("/bookings", b.Create, bookingLimit)
	g.GET("/bookings/:id", b.Get)
	g.GET("/bookings/number/:number", b.GetByNumber)
	g.PATCH("/bookings/:id", b.Update)
	g.DELETE("/bookings/:id", b.Cancel)
	g.GET("/my-bookings", b.Mine)

	g.POST("/orders", o.Create)
	g.GET("/orders/:id", o.Get)
	g.GET("/orders/number/:number", o.GetByNumber)
}
