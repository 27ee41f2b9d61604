package state

import (
	"context"
	"errors"
	"testing"
	"time"

	bookingserrors "classflow/internal/bookings/errors"
	"classflow/internal/bookings/validator"
	"classflow/pkg/logger"
	"classflow/pkg/model"
)

func booking(id, location, date, start, end string) model.Booking {
	return model.Booking{
		ID:         id,
		Title:      "Live Class",
		TeacherID:  "t1",
		LocationID: location,
		Date:       date,
		StartTime:  start,
		EndTime:    end,
		Type:       model.BookingTypeMonthly,
	}
}

type fixture struct {
	state  *AppState
	cache  *fakeCache
	remote *fakeRemote
	clock  *fakeClock
}

func newFixture(t *testing.T, groupCode string, existing ...model.Booking) *fixture {
	t.Helper()
	f := &fixture{
		cache:  &fakeCache{bookings: existing, groupCode: groupCode},
		remote: &fakeRemote{},
		clock:  &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	ids := 0
	f.state = New(context.Background(), Options{
		Cache:     f.cache,
		Remote:    f.remote,
		Validator: validator.NewBookingValidator(logger.Discard()),
		Log:       logger.Discard(),
		Now:       f.clock.Now,
		NewID: func() string {
			ids++
			return "gen-" + string(rune('0'+ids))
		},
	})
	return f
}

func TestNew_LoadsFromCache(t *testing.T) {
	f := newFixture(t, " le ", booking("b1", "yl", "2026-03-02", "09:00", "10:00"))

	status := f.state.Status()
	if status.GroupCode != "LE" {
		t.Errorf("GroupCode = %q, want LE", status.GroupCode)
	}
	if status.BookingCount != 1 {
		t.Errorf("BookingCount = %d, want 1", status.BookingCount)
	}
	if status.Syncing {
		t.Error("state should not be syncing before Start")
	}
}

func TestNew_CacheFailureStartsEmpty(t *testing.T) {
	c := &fakeCache{loadErr: errors.New("disk gone")}
	s := New(context.Background(), Options{
		Cache:     c,
		Remote:    &fakeRemote{},
		Validator: validator.NewBookingValidator(logger.Discard()),
		Log:       logger.Discard(),
	})
	if got := s.Snapshot(); len(got) != 0 {
		t.Errorf("Snapshot() = %v, want empty", got)
	}
}

func TestStart_SubscribesAndMarksSyncing(t *testing.T) {
	f := newFixture(t, "LE")
	f.state.Start(context.Background())

	sub := f.remote.lastSub()
	if sub == nil || sub.code != "LE" {
		t.Fatalf("expected subscription to LE, got %+v", sub)
	}
	if !f.state.Status().Syncing {
		t.Error("state should be syncing until the first snapshot")
	}
}

func TestStart_NoGroupCode(t *testing.T) {
	f := newFixture(t, "")
	f.state.Start(context.Background())
	if f.remote.lastSub() != nil {
		t.Error("no subscription expected without a group code")
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t, "LE", booking("b1", "yl", "2026-03-02", "09:00", "10:00"))

	in := booking("", "yl", "2026-3-2", "10:00", "11:00")
	in.Title = "  Tutorial "
	got, err := f.state.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if got.ID != "gen-1" {
		t.Errorf("ID = %q, want gen-1", got.ID)
	}
	if got.Date != "2026-03-02" {
		t.Errorf("Date = %q, want normalized 2026-03-02", got.Date)
	}
	if got.Title != "Tutorial" {
		t.Errorf("Title = %q, want Tutorial", got.Title)
	}
	if got.TeacherName != "dsechinese.man" {
		t.Errorf("TeacherName = %q, want dsechinese.man", got.TeacherName)
	}
	if n := len(f.state.Snapshot()); n != 2 {
		t.Errorf("len(Snapshot()) = %d, want 2", n)
	}
	if n := len(f.cache.bookings); n != 2 {
		t.Errorf("cached bookings = %d, want 2", n)
	}
	if f.remote.pushCount() != 1 {
		t.Fatalf("pushes = %d, want 1", f.remote.pushCount())
	}
	push := f.remote.pushes[0]
	if push.code != "LE" || len(push.bookings) != 2 {
		t.Errorf("push = %s with %d bookings, want LE with 2", push.code, len(push.bookings))
	}
}

func TestCreate_ConflictLeavesStateUnchanged(t *testing.T) {
	existing := booking("b1", "yl", "2026-03-02", "09:00", "11:00")
	f := newFixture(t, "LE", existing)

	_, err := f.state.Create(context.Background(), booking("", "yl", "2026-03-02", "10:00", "12:00"))

	var conflictErr *bookingserrors.ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("Create() error = %v, want ConflictError", err)
	}
	if !errors.Is(err, bookingserrors.ErrTimeConflict) {
		t.Error("ConflictError should unwrap to ErrTimeConflict")
	}
	if conflictErr.Existing.ID != "b1" {
		t.Errorf("Existing.ID = %q, want b1", conflictErr.Existing.ID)
	}
	if n := len(f.state.Snapshot()); n != 1 {
		t.Errorf("len(Snapshot()) = %d, want 1", n)
	}
	if f.remote.pushCount() != 0 {
		t.Error("conflicting create must not push")
	}
	if f.cache.saves != 0 {
		t.Error("conflicting create must not touch the cache")
	}
}

func TestCreate_OtherCampusDoesNotConflict(t *testing.T) {
	f := newFixture(t, "LE", booking("b1", "yl", "2026-03-02", "09:00", "11:00"))

	if _, err := f.state.Create(context.Background(), booking("", "mk", "2026-03-02", "09:00", "11:00")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func TestCreate_ValidationError(t *testing.T) {
	f := newFixture(t, "LE")

	in := booking("", "tsw", "2026-03-02", "09:00", "10:00")
	_, err := f.state.Create(context.Background(), in)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Create() error = %v, want ValidationErrors", err)
	}
	if f.remote.pushCount() != 0 {
		t.Error("invalid booking must not push")
	}
}

func TestCreate_InvertedRangeAccepted(t *testing.T) {
	f := newFixture(t, "LE")

	if _, err := f.state.Create(context.Background(), booking("", "yl", "2026-03-02", "11:00", "10:00")); err != nil {
		t.Fatalf("Create() error = %v, want inverted range accepted", err)
	}
}

func TestCreate_PushFailureKeepsBooking(t *testing.T) {
	f := newFixture(t, "LE")
	f.remote.pushErr = errors.New("network down")

	if _, err := f.state.Create(context.Background(), booking("", "yl", "2026-03-02", "09:00", "10:00")); err != nil {
		t.Fatalf("Create() error = %v, want push failure to be non-fatal", err)
	}

	status := f.state.Status()
	if status.ErrorCode != SyncErrorWrite || status.ErrorMessage != MessageWrite {
		t.Errorf("status error = %s/%s, want %s/%s", status.ErrorCode, status.ErrorMessage, SyncErrorWrite, MessageWrite)
	}
	if status.Syncing {
		t.Error("syncing should be cleared after the push finishes")
	}
	if status.BookingCount != 1 {
		t.Errorf("BookingCount = %d, want 1", status.BookingCount)
	}
}

func TestCreate_NoGroupCodeSkipsPush(t *testing.T) {
	f := newFixture(t, "")

	if _, err := f.state.Create(context.Background(), booking("", "yl", "2026-03-02", "09:00", "10:00")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if f.remote.pushCount() != 0 {
		t.Error("no push expected without a group code")
	}
	if len(f.cache.bookings) != 1 {
		t.Error("booking should still be cached")
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t, "LE",
		booking("b1", "yl", "2026-03-02", "09:00", "10:00"),
		booking("b2", "yl", "2026-03-02", "10:00", "11:00"),
		booking("b3", "mk", "2026-03-02", "09:00", "10:00"),
	)

	if err := f.state.Delete(context.Background(), "b2"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got := f.state.Snapshot()
	if len(got) != 2 || got[0].ID != "b1" || got[1].ID != "b3" {
		t.Errorf("Snapshot() = %v, want b1 and b3 in order", got)
	}
	if f.remote.pushCount() != 1 {
		t.Errorf("pushes = %d, want 1", f.remote.pushCount())
	}
}

func TestDelete_NotFound(t *testing.T) {
	f := newFixture(t, "LE", booking("b1", "yl", "2026-03-02", "09:00", "10:00"))

	err := f.state.Delete(context.Background(), "nope")
	if !errors.Is(err, bookingserrors.ErrNotFound) {
		t.Fatalf("Delete() error = %v, want ErrNotFound", err)
	}
	if f.remote.pushCount() != 0 {
		t.Error("unknown id must not push")
	}
}

func TestClearMonth(t *testing.T) {
	f := newFixture(t, "LE",
		booking("b1", "yl", "2026-03-02", "09:00", "10:00"),
		booking("b2", "mk", "2026-03-31", "09:00", "10:00"),
		booking("b3", "yl", "2026-04-01", "09:00", "10:00"),
		booking("b4", "mk", "2025-03-15", "09:00", "10:00"),
	)

	removed, err := f.state.ClearMonth(context.Background(), "2026-03")
	if err != nil {
		t.Fatalf("ClearMonth() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	got := f.state.Snapshot()
	if len(got) != 2 || got[0].ID != "b3" || got[1].ID != "b4" {
		t.Errorf("Snapshot() = %v, want b3 and b4", got)
	}
	if f.remote.pushCount() != 1 {
		t.Errorf("pushes = %d, want 1", f.remote.pushCount())
	}
}

func TestClearMonth_NothingToRemove(t *testing.T) {
	f := newFixture(t, "LE", booking("b1", "yl", "2026-03-02", "09:00", "10:00"))

	removed, err := f.state.ClearMonth(context.Background(), "2026-05")
	if err != nil {
		t.Fatalf("ClearMonth() error = %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	if f.remote.pushCount() != 0 {
		t.Error("empty clear must not push")
	}
}

func TestApplySnapshot(t *testing.T) {
	local := []model.Booking{
		booking("b1", "yl", "2026-03-02", "09:00", "10:00"),
		booking("b2", "yl", "2026-03-03", "09:00", "10:00"),
	}
	remoteList := []model.Booking{booking("r1", "mk", "2026-03-05", "14:00", "15:00")}

	tests := []struct {
		name    string
		snap    model.GroupSnapshot
		wantIDs []string
	}{
		{
			name:    "replaces list",
			snap:    model.GroupSnapshot{Code: "LE", Exists: true, HasBookings: true, Bookings: remoteList, LastUpdated: "2026-03-01T09:00:00.000Z"},
			wantIDs: []string{"r1"},
		},
		{
			name:    "empty array clears list",
			snap:    model.GroupSnapshot{Code: "LE", Exists: true, HasBookings: true, Bookings: []model.Booking{}},
			wantIDs: []string{},
		},
		{
			name:    "missing document keeps list",
			snap:    model.GroupSnapshot{Code: "LE"},
			wantIDs: []string{"b1", "b2"},
		},
		{
			name:    "document without bookings keeps list",
			snap:    model.GroupSnapshot{Code: "LE", Exists: true},
			wantIDs: []string{"b1", "b2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "LE", local...)
			f.state.ApplySnapshot(context.Background(), tt.snap)

			got := f.state.Snapshot()
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("len(Snapshot()) = %d, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("Snapshot()[%d].ID = %q, want %q", i, got[i].ID, id)
				}
			}
			if len(f.cache.bookings) != len(tt.wantIDs) {
				t.Errorf("cached = %d bookings, want %d", len(f.cache.bookings), len(tt.wantIDs))
			}

			status := f.state.Status()
			if status.LastSynced == nil {
				t.Error("LastSynced should be set by every snapshot")
			}
			if !status.JustSynced {
				t.Error("JustSynced should be set right after a snapshot")
			}
		})
	}
}

func TestApplySnapshot_ClearsErrorAndPulseExpires(t *testing.T) {
	f := newFixture(t, "LE")
	f.state.ApplySubscriptionError(bookingserrors.ErrConnectivity)

	f.state.ApplySnapshot(context.Background(), model.GroupSnapshot{Code: "LE", Exists: true, HasBookings: true})
	status := f.state.Status()
	if status.ErrorCode != "" {
		t.Errorf("ErrorCode = %q, want cleared", status.ErrorCode)
	}

	f.clock.Advance(DefaultSyncPulse - time.Millisecond)
	if !f.state.Status().JustSynced {
		t.Error("JustSynced should hold for the pulse duration")
	}
	f.clock.Advance(time.Millisecond)
	if f.state.Status().JustSynced {
		t.Error("JustSynced should clear once the pulse elapses")
	}
}

func TestSubscriptionErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{"permission", bookingserrors.ErrPermissionDenied, SyncErrorPermission, MessagePermission},
		{"connectivity", bookingserrors.ErrConnectivity, SyncErrorConnectivity, MessageConnectivity},
		{"unclassified", errors.New("boom"), SyncErrorConnectivity, MessageConnectivity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "LE", booking("b1", "yl", "2026-03-02", "09:00", "10:00"))
			f.state.Start(context.Background())

			f.remote.lastSub().onError(tt.err)

			status := f.state.Status()
			if status.ErrorCode != tt.wantCode || status.ErrorMessage != tt.wantMessage {
				t.Errorf("status = %s/%s, want %s/%s", status.ErrorCode, status.ErrorMessage, tt.wantCode, tt.wantMessage)
			}
			if status.Syncing {
				t.Error("syncing should be cleared by an error")
			}
			if status.BookingCount != 1 {
				t.Error("an error must not change the list")
			}
		})
	}
}

func TestSubscribeFailureIsRecorded(t *testing.T) {
	f := newFixture(t, "LE")
	f.remote.subscribeErr = bookingserrors.ErrPermissionDenied

	f.state.Start(context.Background())

	status := f.state.Status()
	if status.ErrorCode != SyncErrorPermission {
		t.Errorf("ErrorCode = %q, want %q", status.ErrorCode, SyncErrorPermission)
	}
	if status.Subscribed {
		t.Error("Subscribed should be false after a failed subscribe")
	}
}

func TestSetGroupCode(t *testing.T) {
	f := newFixture(t, "LE")
	f.state.Start(context.Background())
	oldSub := f.remote.lastSub()

	status, err := f.state.SetGroupCode(context.Background(), " ab-1 ")
	if err != nil {
		t.Fatalf("SetGroupCode() error = %v", err)
	}
	if status.GroupCode != "AB-1" {
		t.Errorf("GroupCode = %q, want AB-1", status.GroupCode)
	}
	if f.cache.groupCode != "AB-1" {
		t.Errorf("cached group code = %q, want AB-1", f.cache.groupCode)
	}
	if !oldSub.closed {
		t.Error("old subscription should be closed")
	}
	newSub := f.remote.lastSub()
	if newSub == oldSub || newSub.code != "AB-1" {
		t.Fatalf("expected a new subscription to AB-1, got %+v", newSub)
	}

	// late delivery from the old feed is ignored
	oldSub.onSnapshot(model.GroupSnapshot{Code: "LE", Exists: true, HasBookings: true, Bookings: []model.Booking{booking("old", "yl", "2026-03-02", "09:00", "10:00")}})
	if n := len(f.state.Snapshot()); n != 0 {
		t.Errorf("stale snapshot applied, len = %d", n)
	}

	newSub.onSnapshot(model.GroupSnapshot{Code: "AB-1", Exists: true, HasBookings: true, Bookings: []model.Booking{booking("new", "yl", "2026-03-02", "09:00", "10:00")}})
	got := f.state.Snapshot()
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("Snapshot() = %v, want the new group's booking", got)
	}
}

func TestSetGroupCode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"empty", "   "},
		{"punctuation only", "  !!  "},
		{"inner space", "LE 2"},
		{"dot", "le.2"},
		{"slash", "LE/2"},
		{"non-latin", "元朗"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "LE")
			f.state.Start(context.Background())
			sub := f.remote.lastSub()

			_, err := f.state.SetGroupCode(context.Background(), tt.code)
			if !errors.Is(err, bookingserrors.ErrInvalidGroupCode) {
				t.Fatalf("SetGroupCode(%q) error = %v, want ErrInvalidGroupCode", tt.code, err)
			}
			if got := f.state.Status().GroupCode; got != "LE" {
				t.Errorf("group code = %q, must not change on invalid input", got)
			}
			if f.cache.groupCode != "LE" {
				t.Errorf("cached group code = %q, must not change", f.cache.groupCode)
			}
			if sub.closed || f.remote.lastSub() != sub {
				t.Error("subscription must be left alone on invalid input")
			}
		})
	}
}

func TestSetGroupCode_DistinctCodesStayDistinct(t *testing.T) {
	f := newFixture(t, "LE")

	status, err := f.state.SetGroupCode(context.Background(), "le2")
	if err != nil {
		t.Fatalf("SetGroupCode() error = %v", err)
	}
	if status.GroupCode != "LE2" {
		t.Errorf("GroupCode = %q, want LE2", status.GroupCode)
	}
	if _, err := f.state.SetGroupCode(context.Background(), "LE 2"); err == nil {
		t.Error(`"LE 2" must be rejected, not merged into LE2`)
	}
}

func TestNew_InvalidCachedGroupCodeIsIgnored(t *testing.T) {
	f := newFixture(t, "le.2")

	if got := f.state.Status().GroupCode; got != "" {
		t.Errorf("GroupCode = %q, want empty for an invalid cached code", got)
	}
	f.state.Start(context.Background())
	if f.remote.lastSub() != nil {
		t.Error("no subscription expected for an invalid cached code")
	}
}

func TestCheckConflict(t *testing.T) {
	f := newFixture(t, "LE", booking("b1", "yl", "2026-03-02", "09:00", "11:00"))

	if got := f.state.CheckConflict(model.Slot{LocationID: "yl", Date: "2026-03-02", StartTime: "11:00", EndTime: "12:00"}); got != nil {
		t.Errorf("touching slot reported conflict with %s", got.ID)
	}
	got := f.state.CheckConflict(model.Slot{LocationID: "yl", Date: "2026-03-02", StartTime: "10:30", EndTime: "12:00"})
	if got == nil || got.ID != "b1" {
		t.Errorf("CheckConflict() = %v, want b1", got)
	}
}

func TestCommit_SlowPushDoesNotBlockReads(t *testing.T) {
	f := newFixture(t, "LE")
	f.remote.gate = make(chan struct{})
	f.remote.entered = make(chan struct{}, 2)

	done := make(chan struct{}, 2)
	create := func(b model.Booking) {
		_, _ = f.state.Create(context.Background(), b)
		done <- struct{}{}
	}

	go create(booking("a", "yl", "2026-03-02", "09:00", "10:00"))
	select {
	case <-f.remote.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first push never started")
	}
	go create(booking("b", "yl", "2026-03-02", "10:00", "11:00"))

	snapshot := func() []model.Booking {
		got := make(chan []model.Booking, 1)
		go func() { got <- f.state.Snapshot() }()
		select {
		case list := <-got:
			return list
		case <-time.After(time.Second):
			t.Fatal("Snapshot() blocked behind an in-flight push")
			return nil
		}
	}

	// the second create commits locally and queues its push
	deadline := time.Now().Add(2 * time.Second)
	for len(snapshot()) != 2 {
		if time.Now().After(deadline) {
			t.Fatal("second create never committed locally")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !f.state.Status().Syncing {
		t.Error("Syncing should be set while pushes are in flight")
	}

	close(f.remote.gate)
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("create did not finish after the push was released")
		}
	}

	if f.remote.pushCount() != 2 {
		t.Fatalf("pushes = %d, want 2", f.remote.pushCount())
	}
	if len(f.remote.pushes[0].bookings) != 1 || len(f.remote.pushes[1].bookings) != 2 {
		t.Errorf("pushes out of mutation order: %d then %d bookings",
			len(f.remote.pushes[0].bookings), len(f.remote.pushes[1].bookings))
	}
	if f.state.Status().Syncing {
		t.Error("Syncing should clear once every push returned")
	}
}
