package model

import "time"

// GroupDocument is the shared document stored under a group code. Every
// write replaces it whole.
type GroupDocument struct {
	Code        string    `json:"-" bson:"_id"`
	Bookings    []Booking `json:"bookings" bson:"bookings"`
	LastUpdated string    `json:"lastUpdated" bson:"lastUpdated"`
}

func NewGroupDocument(code string, bookings []Booking, now time.Time) *GroupDocument {
	if bookings == nil {
		bookings = []Booking{}
	}
	return &GroupDocument{
		Code:        code,
		Bookings:    bookings,
		LastUpdated: now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// GroupSnapshot is one delivery from a group subscription. Exists is false
// when the document is missing or was deleted. HasBookings is false when the
// document carries no bookings array; such a snapshot must not replace the
// local list.
type GroupSnapshot struct {
	Code        string
	Exists      bool
	HasBookings bool
	Bookings    []Booking
	LastUpdated string
}
