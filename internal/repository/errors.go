// Package repository is the MySQL implementation of the persistence
// collaborators. Lookups of unknown rows return errors wrapping
// booking.ErrNotFound, and lost write races (deadlock, lock wait timeout,
// duplicate key) return errors wrapping booking.ErrWriteConflict.
package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/venue-booking/internal/booking"
)

// ErrForbidden is returned when the caller attempts an operation
// on a venue they do not own. Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of dependent records. Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// ErrResourceInUse is returned when deleting a table or room that an
// active booking still references.
var ErrResourceInUse = fmt.Errorf("%w: resource has active bookings", ErrConflict)

// ErrEmailExists is returned when registering an email twice.
var ErrEmailExists = errors.New("email already exists")

// MySQL server error numbers that mean the statement lost a race.
const (
	errDuplicateEntry  = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// mapError translates driver errors into the booking error taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDuplicateEntry, errLockWaitTimeout, errDeadlock:
			return fmt.Errorf("%w: %s", booking.ErrWriteConflict, me.Message)
		}
	}
	return err
}

// notFound turns sql.ErrNoRows into booking.ErrNotFound naming what was
// looked up.
func notFound(err error, what string, key any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %v", booking.ErrNotFound, what, key)
	}
	return err
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}
