package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-booking/internal/booking"
	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/schedule"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// getUserID reads the user id stored by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := c.Get("user_id").(uint64); ok && id != 0 {
		return id, nil
	}
	return 0, errors.New("invalid user_id in context")
}

func getRole(c echo.Context) string {
	role, _ := c.Get("role").(string)
	return role
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s", booking.ErrValidation, name)
	}
	return id, nil
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", booking.ErrValidation, name)
	}
	return n, nil
}

func queryDate(c echo.Context, name string) (time.Time, error) {
	d, err := schedule.ParseDate(c.QueryParam(name))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", booking.ErrValidation, name, err)
	}
	return d, nil
}

// bindQuery binds the query string into each of dst.
func bindQuery(c echo.Context, dst ...any) error {
	b := &echo.DefaultBinder{}
	for _, d := range dst {
		if err := b.BindQueryParams(c, d); err != nil {
			return err
		}
	}
	return nil
}

// slotInput is the time part of a booking request. Tables and whole-venue
// reservations use Date, Time and DurationMinutes; rooms use CheckIn and
// CheckOut. Dates are YYYY-MM-DD and times HH:MM, all UTC.
type slotInput struct {
	Date            string `json:"date" query:"date"`
	Time            string `json:"time" query:"time"`
	DurationMinutes int    `json:"duration_minutes" query:"duration"`
	CheckIn         string `json:"check_in" query:"check_in"`
	CheckOut        string `json:"check_out" query:"check_out"`
}

func (in slotInput) empty() bool {
	return in.Date == "" && in.Time == "" && in.DurationMinutes == 0 && in.CheckIn == "" && in.CheckOut == ""
}

// isStay reports whether the input describes a room stay.
func (in slotInput) isStay() bool { return in.CheckIn != "" || in.CheckOut != "" }

// slot parses the fields that apply to kind.
func (in slotInput) slot(kind model.BookingKind) (booking.Slot, error) {
	var (
		s   booking.Slot
		err error
	)
	if kind == model.BookingRoom {
		if s.CheckIn, err = schedule.ParseDate(in.CheckIn); err != nil {
			return s, fmt.Errorf("%w: check_in: %v", booking.ErrValidation, err)
		}
		if s.CheckOut, err = schedule.ParseDate(in.CheckOut); err != nil {
			return s, fmt.Errorf("%w: check_out: %v", booking.ErrValidation, err)
		}
		return s, nil
	}
	if s.Date, err = schedule.ParseDate(in.Date); err != nil {
		return s, fmt.Errorf("%w: date: %v", booking.ErrValidation, err)
	}
	if s.Clock, err = schedule.ParseClock(in.Time); err != nil {
		return s, fmt.Errorf("%w: time: %v", booking.ErrValidation, err)
	}
	if in.DurationMinutes < 0 {
		return s, fmt.Errorf("%w: duration must be positive", booking.ErrValidation)
	}
	s.Duration = time.Duration(in.DurationMinutes) * time.Minute
	return s, nil
}
