// Package export renders bookings as an iCalendar feed and as an XLSX
// month report.
package export

import (
	"errors"
	"fmt"
	"time"

	"classflow/pkg/logger"
	"classflow/pkg/model"

	ics "github.com/arran4/golang-ical"
)

const productID = "-//ClassFlow//Booking Feed//EN"

var errEmptyRange = errors.New("end is not after start")

// Calendar builds one VEVENT per booking. Booking dates and times are wall
// clock in loc and are written as UTC. Remote snapshots are not validated,
// so a booking whose times do not parse, or whose end is not after its
// start, is logged and left out of the feed.
func Calendar(location model.Location, bookings []model.Booking, loc *time.Location, now time.Time, log *logger.Logger) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(fmt.Sprintf("ClassFlow %s", location.Name))

	for _, b := range bookings {
		start, end, err := bookingTimes(b, loc)
		if err != nil {
			log.Warn("Skipping booking in calendar feed",
				"booking_id", b.ID,
				"date", b.Date,
				"start_time", b.StartTime,
				"end_time", b.EndTime,
				"error", err,
			)
			continue
		}

		event := cal.AddEvent(b.ID + "@classflow")
		event.SetDtStampTime(now)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(eventSummary(b))
		event.SetLocation(fmt.Sprintf("%s %s", location.ChineseName, location.Name))
		if b.Description != "" {
			event.SetDescription(b.Description)
		}
	}

	return cal.Serialize()
}

func bookingTimes(b model.Booking, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04", b.Date+" "+b.StartTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.ParseInLocation("2006-01-02 15:04", b.Date+" "+b.EndTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, errEmptyRange
	}
	return start, end, nil
}

func eventSummary(b model.Booking) string {
	title := b.Title
	if kind, ok := model.FindSessionKind(b.Title); ok {
		title = kind.Chinese
	}
	if b.TeacherName == "" {
		return title
	}
	return title + " · " + b.TeacherName
}
