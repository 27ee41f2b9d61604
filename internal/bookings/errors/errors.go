package errors

import (
	"errors"
	"fmt"

	"classflow/pkg/model"
)

var (
	ErrNotFound = errors.New("booking not found")

	ErrTimeConflict = errors.New("booking time conflicts with existing booking")

	ErrInvalidMonth = errors.New("month must be in YYYY-MM format")

	ErrInvalidGroupCode = errors.New("invalid group code")

	// ErrPermissionDenied marks a remote store failure caused by missing
	// rights on the group document.
	ErrPermissionDenied = errors.New("permission denied on group document")

	// ErrConnectivity marks any other remote store failure.
	ErrConnectivity = errors.New("remote store connection unstable")

	// ErrWriteFailed marks a push of the booking list that did not reach the
	// remote store. The local list and cache keep the change.
	ErrWriteFailed = errors.New("failed to save bookings to remote store")
)

// ConflictError carries the existing booking that blocked a create.
type ConflictError struct {
	Existing model.Booking
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s %s %s-%s (%s)",
		ErrTimeConflict.Error(),
		e.Existing.LocationID,
		e.Existing.Date,
		e.Existing.StartTime,
		e.Existing.EndTime,
		e.Existing.ID,
	)
}

func (e *ConflictError) Unwrap() error {
	return ErrTimeConflict
}
