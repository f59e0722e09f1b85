package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-booking/internal/booking"
	"github.com/iliyamo/venue-booking/internal/repository"
)

// errorMapping pairs a sentinel with its HTTP status and machine-readable
// code. Order matters: the first match wins, so more specific sentinels
// (ErrResourceInUse wraps ErrConflict) come first.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{booking.ErrValidation, http.StatusBadRequest, "validation_failed"},
	{booking.ErrCapacityExceeded, http.StatusUnprocessableEntity, "capacity_exceeded"},
	{booking.ErrResourceUnavailable, http.StatusConflict, "resource_unavailable"},
	{booking.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{booking.ErrImmutableState, http.StatusConflict, "immutable_state"},
	{booking.ErrWriteConflict, http.StatusConflict, "write_conflict"},
	{booking.ErrNotFound, http.StatusNotFound, "not_found"},
	{repository.ErrForbidden, http.StatusForbidden, "forbidden"},
	{repository.ErrResourceInUse, http.StatusConflict, "resource_in_use"},
	{repository.ErrEmailExists, http.StatusConflict, "email_exists"},
	{repository.ErrConflict, http.StatusConflict, "conflict"},
}

// respondError writes the JSON body {"error": code, "message": text} for
// err. Unmapped errors are logged and reported as a bare 500 so internal
// details never reach the client.
func respondError(c echo.Context, log logrus.FieldLogger, err error) error {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return c.JSON(m.status, echo.Map{"error": m.code, "message": err.Error()})
		}
	}
	log.WithError(err).WithFields(logrus.Fields{
		"method": c.Request().Method,
		"route":  c.Path(),
	}).Error("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error", "message": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": msg})
}
