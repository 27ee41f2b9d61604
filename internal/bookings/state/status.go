package state

import (
	"errors"
	"time"

	bookingserrors "classflow/internal/bookings/errors"
)

const (
	SyncErrorPermission   = "PERMISSION_DENIED"
	SyncErrorConnectivity = "CONNECTIVITY"
	SyncErrorWrite        = "WRITE_FAILED"

	MessagePermission   = "權限錯誤"
	MessageConnectivity = "連線不穩"
	MessageWrite        = "儲存失敗"
)

// SyncStatus is what the sync indicator shows.
type SyncStatus struct {
	GroupCode    string     `json:"groupCode"`
	Subscribed   bool       `json:"subscribed"`
	Syncing      bool       `json:"syncing"`
	LastSynced   *time.Time `json:"lastSynced,omitempty"`
	LastUpdated  string     `json:"lastUpdated,omitempty"`
	ErrorCode    string     `json:"errorCode,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	JustSynced   bool       `json:"justSynced"`
	BookingCount int        `json:"bookingCount"`
}

type syncError struct {
	code    string
	message string
}

// subscriptionError maps a subscription failure to what the user sees.
func subscriptionError(err error) syncError {
	if errors.Is(err, bookingserrors.ErrPermissionDenied) {
		return syncError{code: SyncErrorPermission, message: MessagePermission}
	}
	return syncError{code: SyncErrorConnectivity, message: MessageConnectivity}
}

var writeError = syncError{code: SyncErrorWrite, message: MessageWrite}
