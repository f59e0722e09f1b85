package booking

import (
	"errors"

	"github.com/iliyamo/venue-booking/internal/lifecycle"
)

// Errors returned by the orchestrator. Each one is a distinct,
// user-actionable outcome; handlers map them with errors.Is. Anything else
// coming out of the package is an infrastructure failure.
var (
	// ErrValidation reports malformed input such as a check-out before the
	// check-in or a non-positive guest count.
	ErrValidation = errors.New("validation failed")

	// ErrCapacityExceeded means the party is too large for the resource (or
	// the venue). The caller should pick a bigger resource.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrResourceUnavailable means the resource is taken for that window,
	// whether detected by the check or rejected at commit. The caller should
	// pick another time or resource.
	ErrResourceUnavailable = errors.New("resource unavailable")

	// ErrInvalidTransition is the state machine rejecting a status change.
	ErrInvalidTransition = lifecycle.ErrInvalidTransition

	// ErrNotFound means the booking or resource id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrImmutableState means the booking is terminal and cannot be changed.
	ErrImmutableState = errors.New("booking is in a terminal state")
)

// ErrWriteConflict is returned by Store implementations when the write lost
// a race (lock timeout, deadlock, duplicate key). The orchestrator reports
// it as ErrResourceUnavailable.
var ErrWriteConflict = errors.New("write conflict")
