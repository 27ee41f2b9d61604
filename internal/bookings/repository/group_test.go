package repository

import (
	"context"
	"testing"
	"time"

	"classflow/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

func mustRaw(t *testing.T, v any) bson.Raw {
	t.Helper()
	data, err := bson.Marshal(v)
	if err != nil {
		t.Fatalf("bson.Marshal() error = %v", err)
	}
	return bson.Raw(data)
}

func TestDecodeSnapshot(t *testing.T) {
	doc := model.NewGroupDocument("LE", []model.Booking{
		{ID: "b1", Title: "Live Class", TeacherID: "t1", LocationID: "yl", Date: "2026-03-02", StartTime: "09:00", EndTime: "11:00", Type: model.BookingTypeMonthly},
	}, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))

	snap, err := DecodeSnapshot("LE", mustRaw(t, doc))
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if !snap.Exists || !snap.HasBookings {
		t.Errorf("snapshot flags = %+v", snap)
	}
	if len(snap.Bookings) != 1 || snap.Bookings[0].ID != "b1" {
		t.Errorf("bookings = %+v", snap.Bookings)
	}
	if snap.LastUpdated != "2026-03-01T08:00:00.000Z" {
		t.Errorf("LastUpdated = %q", snap.LastUpdated)
	}
}

func TestDecodeSnapshot_EmptyArrayCounts(t *testing.T) {
	snap, err := DecodeSnapshot("LE", mustRaw(t, bson.M{"_id": "LE", "bookings": bson.A{}}))
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if !snap.HasBookings || snap.Bookings == nil || len(snap.Bookings) != 0 {
		t.Errorf("empty array should replace the list, got %+v", snap)
	}
}

func TestDecodeSnapshot_MissingBookings(t *testing.T) {
	snap, err := DecodeSnapshot("LE", mustRaw(t, bson.M{"_id": "LE", "lastUpdated": "x"}))
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if !snap.Exists || snap.HasBookings {
		t.Errorf("document without bookings: %+v", snap)
	}

	snap, _ = DecodeSnapshot("LE", mustRaw(t, bson.M{"_id": "LE", "bookings": nil}))
	if snap.HasBookings {
		t.Errorf("null bookings should not count: %+v", snap)
	}
}

func TestWithTimeout_KeepsEarlierDeadline(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	ctx, cancel2 := withTimeout(parent, time.Hour)
	defer cancel2()

	deadline, ok := ctx.Deadline()
	if !ok || time.Until(deadline) > time.Second {
		t.Errorf("deadline = %v, want the parent's", deadline)
	}
}
