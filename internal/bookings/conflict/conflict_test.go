package conflict

import (
	"testing"

	"classflow/pkg/model"
)

func booking(id, loc, date, start, end string) model.Booking {
	return model.Booking{ID: id, LocationID: loc, Date: date, StartTime: start, EndTime: end}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a    model.Slot
		b    model.Slot
		want bool
	}{
		{
			name: "touching boundary is not a conflict",
			a:    model.Slot{LocationID: "yl", Date: "2026-03-02", StartTime: "09:00", EndTime: "11:00"},
			b:    model.Slot{LocationID: "yl", Date: "2026-03-02", StartTime: "11:00", EndTime: "13:00"},
			want: false,
		},
		{
			name: "partial overlap",
			a:    model.Slot{LocationID: "yl", Date: "2026-03-02", StartTime: "09:00", EndTime: "11:00"},
			b:    model.Slot{LocationID: "yl", Date: "2026-03-02", StartTime: "10:00", EndTime: "12:00"},
			want: true,
		},
		{
			name: "different location never conflicts",
			a:    model.Slot{LocationID: "yl", Date: "2026-03-02", StartTime: "09:00", EndTime: "11:00"},
			b:    model.Slot{LocationID: "mk", Date: "2026-03-02", StartTime: "09:00", EndTime: "11:00"},
			want: false,
		},
		{
			name: "different date",
			a:    model.Slot{LocationID: "yl", Date: "2026-03-02", StartTime: "09:00", EndTime: "11:00"},
			b:    model.Slot{LocationID: "yl", Date: "2026-03-03", StartTime: "09:00", EndTime: "11:00"},
			want: false,
		},
		{
			name: "containment",
			a:    model.Slot{LocationID: "mk", Date: "2026-03-02", StartTime: "08:00", EndTime: "18:00"},
			b:    model.Slot{LocationID: "mk", Date: "2026-03-02", StartTime: "12:00", EndTime: "13:00"},
			want: true,
		},
		{
			name: "identical range",
			a:    model.Slot{LocationID: "mk", Date: "2026-03-02", StartTime: "12:00", EndTime: "13:00"},
			b:    model.Slot{LocationID: "mk", Date: "2026-03-02", StartTime: "12:00", EndTime: "13:00"},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Errorf("Overlaps(a, b) = %v, want %v", got, tt.want)
			}
			if got := Overlaps(tt.b, tt.a); got != tt.want {
				t.Errorf("Overlaps(b, a) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindConflict_ReturnsFirstMatch(t *testing.T) {
	existing := []model.Booking{
		booking("b1", "mk", "2026-03-02", "10:00", "12:00"),
		booking("b2", "yl", "2026-03-02", "10:00", "12:00"),
		booking("b3", "yl", "2026-03-02", "11:00", "13:00"),
	}

	got := FindConflict(model.Slot{LocationID: "yl", Date: "2026-03-02", StartTime: "11:30", EndTime: "12:30"}, existing)
	if got == nil || got.ID != "b2" {
		t.Fatalf("FindConflict() = %v, want b2", got)
	}

	got.ID = "mutated"
	if existing[1].ID != "b2" {
		t.Error("FindConflict() must return a copy")
	}
}

func TestFindConflict_None(t *testing.T) {
	existing := []model.Booking{
		booking("b1", "yl", "2026-03-02", "09:00", "11:00"),
	}

	if got := FindConflict(model.Slot{LocationID: "yl", Date: "2026-03-02", StartTime: "11:00", EndTime: "12:00"}, existing); got != nil {
		t.Errorf("FindConflict() = %v, want nil", got)
	}
	if got := FindConflict(model.Slot{LocationID: "yl", Date: "2026-03-02", StartTime: "08:00", EndTime: "09:00"}, nil); got != nil {
		t.Errorf("FindConflict() on empty set = %v, want nil", got)
	}
}
