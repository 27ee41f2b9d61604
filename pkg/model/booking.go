package model

type BookingType string

const (
	BookingTypeMonthly   BookingType = "MONTHLY"
	BookingTypeTemporary BookingType = "TEMPORARY"
)

// Booking is a single classroom reservation. Dates are YYYY-MM-DD and times
// are zero-padded 24h HH:MM, so both compare correctly as strings.
type Booking struct {
	ID          string      `json:"id" bson:"id" validate:"omitempty,max=64"`
	Title       string      `json:"title" bson:"title" validate:"required,session_kind"`
	TeacherID   string      `json:"teacherId" bson:"teacherId" validate:"required,teacher"`
	TeacherName string      `json:"teacherName" bson:"teacherName"`
	LocationID  string      `json:"locationId" bson:"locationId" validate:"required,location"`
	Date        string      `json:"date" bson:"date" validate:"required,calendar_date"`
	StartTime   string      `json:"startTime" bson:"startTime" validate:"required,clock_time"`
	EndTime     string      `json:"endTime" bson:"endTime" validate:"required,clock_time"`
	Type        BookingType `json:"type" bson:"type" validate:"required,oneof=MONTHLY TEMPORARY"`
	Description string      `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=500"`
}

// Month returns the YYYY-MM prefix of the booking date.
func (b Booking) Month() string {
	if len(b.Date) < 7 {
		return b.Date
	}
	return b.Date[:7]
}

// Slot is the part of a booking the conflict checker looks at.
type Slot struct {
	LocationID string `json:"locationId"`
	Date       string `json:"date"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
}

func (b Booking) Slot() Slot {
	return Slot{
		LocationID: b.LocationID,
		Date:       b.Date,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
	}
}

// CloneBookings returns a copy that shares no backing array with the input.
func CloneBookings(bookings []Booking) []Booking {
	if bookings == nil {
		return nil
	}
	out := make([]Booking, len(bookings))
	copy(out, bookings)
	return out
}
