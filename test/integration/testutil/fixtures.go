package testutil

import (
	"fmt"

	"classflow/pkg/model"
)

func ValidBooking() model.Booking {
	return model.Booking{
		Title:      "Live Class",
		TeacherID:  "t1",
		LocationID: model.LocationYuenLong,
		Date:       "2026-03-02",
		StartTime:  "09:00",
		EndTime:    "11:00",
		Type:       model.BookingTypeMonthly,
	}
}

func BookingAt(location, date, start, end string) model.Booking {
	b := ValidBooking()
	b.LocationID = location
	b.Date = date
	b.StartTime = start
	b.EndTime = end
	return b
}

func BookingWithID(id int) model.Booking {
	b := ValidBooking()
	b.ID = fmt.Sprintf("it-%03d", id)
	b.StartTime = fmt.Sprintf("%02d:00", 8+id%12)
	b.EndTime = fmt.Sprintf("%02d:30", 8+id%12)
	return b
}
