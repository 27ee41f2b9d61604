package state

import (
	"fmt"
	"sort"
	"strconv"

	"classflow/pkg/model"
)

var teacherColorHex = map[string]string{
	"rose":    "#e11d48",
	"blue":    "#2563eb",
	"indigo":  "#4f46e5",
	"cyan":    "#0891b2",
	"amber":   "#d97706",
	"orange":  "#ea580c",
	"fuchsia": "#c026d3",
	"emerald": "#059669",
}

const defaultColorHex = "#64748b"

func colorHex(color string) string {
	if hex, ok := teacherColorHex[color]; ok {
		return hex
	}
	return defaultColorHex
}

type TeacherLoad struct {
	TeacherID string `json:"teacherId"`
	ShortName string `json:"shortName"`
	Subject   string `json:"subject"`
	Count     int    `json:"count"`
	Color     string `json:"color"`
}

type Dashboard struct {
	LocationID  string          `json:"locationId"`
	Total       int             `json:"total"`
	Monthly     int             `json:"monthly"`
	Temporary   int             `json:"temporary"`
	Utilization []TeacherLoad   `json:"utilization"`
	Upcoming    []model.Booking `json:"upcoming"`
}

type MonthGroup struct {
	Month    string `json:"month"`
	Label    string `json:"label"`
	Total    int    `json:"total"`
	YuenLong int    `json:"yuenLong"`
	MongKok  int    `json:"mongKok"`
}

// Snapshot returns a copy of the whole list.
func (s *AppState) Snapshot() []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := model.CloneBookings(s.bookings)
	if out == nil {
		out = []model.Booking{}
	}
	return out
}

// Bookings returns the bookings at locationID in list order. An empty
// locationID returns every booking.
func (s *AppState) Bookings(locationID string) []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterLocked(func(b model.Booking) bool {
		return locationID == "" || b.LocationID == locationID
	})
}

// Day lists one campus day ordered by start time.
func (s *AppState) Day(locationID, date string) []model.Booking {
	s.mu.Lock()
	day := s.filterLocked(func(b model.Booking) bool {
		return b.LocationID == locationID && b.Date == date
	})
	s.mu.Unlock()

	sort.SliceStable(day, func(i, j int) bool {
		return day[i].StartTime < day[j].StartTime
	})
	return day
}

// Dashboard summarizes one campus. Upcoming holds bookings dated today or
// later, ordered by date then start time.
func (s *AppState) Dashboard(locationID, today string) Dashboard {
	s.mu.Lock()
	bookings := s.filterLocked(func(b model.Booking) bool {
		return b.LocationID == locationID
	})
	s.mu.Unlock()

	d := Dashboard{
		LocationID:  locationID,
		Total:       len(bookings),
		Utilization: make([]TeacherLoad, 0, len(model.Teachers)),
		Upcoming:    []model.Booking{},
	}

	counts := make(map[string]int, len(model.Teachers))
	for _, b := range bookings {
		switch b.Type {
		case model.BookingTypeMonthly:
			d.Monthly++
		case model.BookingTypeTemporary:
			d.Temporary++
		}
		counts[b.TeacherID]++
		if b.Date >= today {
			d.Upcoming = append(d.Upcoming, b)
		}
	}

	for _, t := range model.Teachers {
		d.Utilization = append(d.Utilization, TeacherLoad{
			TeacherID: t.ID,
			ShortName: t.ShortName(),
			Subject:   t.Subject,
			Count:     counts[t.ID],
			Color:     colorHex(t.Color),
		})
	}

	sort.SliceStable(d.Upcoming, func(i, j int) bool {
		a, b := d.Upcoming[i], d.Upcoming[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.StartTime < b.StartTime
	})
	return d
}

// Months groups every booking by YYYY-MM, newest month first.
func (s *AppState) Months() []MonthGroup {
	s.mu.Lock()
	defer s.mu.Unlock()

	byMonth := make(map[string]*MonthGroup)
	for _, b := range s.bookings {
		month := b.Month()
		g, ok := byMonth[month]
		if !ok {
			g = &MonthGroup{Month: month, Label: monthLabel(month)}
			byMonth[month] = g
		}
		g.Total++
		switch b.LocationID {
		case model.LocationYuenLong:
			g.YuenLong++
		case model.LocationMongKok:
			g.MongKok++
		}
	}

	groups := make([]MonthGroup, 0, len(byMonth))
	for _, g := range byMonth {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Month > groups[j].Month
	})
	return groups
}

// monthLabel renders 2026-03 as "2026年 3月".
func monthLabel(month string) string {
	if len(month) != 7 {
		return month
	}
	m, err := strconv.Atoi(month[5:])
	if err != nil {
		return month
	}
	return fmt.Sprintf("%s年 %d月", month[:4], m)
}

// MonthBookings returns the bookings dated in month ordered by date, start
// time and campus.
func (s *AppState) MonthBookings(month string) []model.Booking {
	s.mu.Lock()
	out := s.filterLocked(func(b model.Booking) bool { return b.Month() == month })
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.LocationID < b.LocationID
	})
	return out
}

func (s *AppState) filterLocked(keep func(model.Booking) bool) []model.Booking {
	out := []model.Booking{}
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}
