// Package conflict detects double-booked rooms.
//
// Two bookings conflict when they share a location and date and their
// [start, end) ranges overlap. Touching ranges do not conflict, and bookings
// at different locations never do. Times are zero-padded HH:MM strings and
// compare lexicographically.
package conflict

import "classflow/pkg/model"

// Overlaps reports whether a and b occupy the same room at the same time.
// It is symmetric.
func Overlaps(a, b model.Slot) bool {
	return a.LocationID == b.LocationID &&
		a.Date == b.Date &&
		a.StartTime < b.EndTime &&
		a.EndTime > b.StartTime
}

// FindConflict returns the first booking in existing that overlaps
// candidate, or nil.
func FindConflict(candidate model.Slot, existing []model.Booking) *model.Booking {
	for i := range existing {
		if Overlaps(candidate, existing[i].Slot()) {
			found := existing[i]
			return &found
		}
	}
	return nil
}
