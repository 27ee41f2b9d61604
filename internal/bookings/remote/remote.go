// Package remote synchronizes the booking list with the shared group
// document. Writes replace the whole document; subscribers receive the
// current document first and then every later version, including their own
// echoed writes.
package remote

import (
	"context"
	"errors"
	"fmt"

	bookingserrors "classflow/internal/bookings/errors"
	"classflow/pkg/kafka"
	"classflow/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type SnapshotFunc func(model.GroupSnapshot)

type ErrorFunc func(error)

// Subscription is a live feed of one group document. Close stops delivery
// without waiting for an in-flight callback to return.
type Subscription interface {
	Close() error
}

type Store interface {
	Push(ctx context.Context, code string, bookings []model.Booking) error
	Subscribe(ctx context.Context, code string, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error)
}

// mongo server codes for Unauthorized, AuthenticationFailed and the Atlas
// "user is not allowed" error.
var permissionCodes = []int{13, 18, 8000}

// Classify wraps err in ErrPermissionDenied or ErrConnectivity.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, bookingserrors.ErrPermissionDenied) || errors.Is(err, bookingserrors.ErrConnectivity) {
		return err
	}
	if isPermissionError(err) {
		return fmt.Errorf("%w: %w", bookingserrors.ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %w", bookingserrors.ErrConnectivity, err)
}

func isPermissionError(err error) bool {
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		for _, code := range permissionCodes {
			if serverErr.HasErrorCode(code) {
				return true
			}
		}
	}
	return kafka.IsAuthorizationError(err)
}

// writeFailure marks a failed push while keeping the classified cause.
func writeFailure(err error) error {
	return fmt.Errorf("%w: %w", bookingserrors.ErrWriteFailed, Classify(err))
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *subscription) Close() error {
	s.cancel()
	return nil
}

// Done is closed once the feed goroutine has exited.
func (s *subscription) Done() <-chan struct{} {
	return s.done
}
