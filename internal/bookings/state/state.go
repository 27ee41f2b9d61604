// Package state holds the client's in-memory booking list and sync status.
//
// AppState is the single owner of the list. User operations and remote
// snapshots both go through its mutex, so they apply one at a time in
// arrival order. A snapshot replaces the whole list, which makes the echo
// of the client's own write a no-op and silently drops local changes the
// snapshot does not contain.
package state

import (
	"context"
	"sync"
	"time"

	"classflow/internal/bookings/cache"
	"classflow/internal/bookings/conflict"
	bookingserrors "classflow/internal/bookings/errors"
	"classflow/internal/bookings/remote"
	"classflow/pkg/logger"
	"classflow/pkg/model"
	"classflow/pkg/sanitizer"

	"github.com/google/uuid"
)

const DefaultSyncPulse = 2 * time.Second

type Validator interface {
	Validate(booking *model.Booking) error
}

type Options struct {
	Cache     cache.Store
	Remote    remote.Store
	Validator Validator
	Log       *logger.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// SyncPulse is how long JustSynced stays set after a snapshot.
	SyncPulse time.Duration
	// NewID defaults to uuid.NewString.
	NewID func() string
}

type AppState struct {
	mu     sync.Mutex
	pushes *pushQueue

	cache     cache.Store
	remote    remote.Store
	validator Validator
	log       *logger.Logger
	now       func() time.Time
	pulse     time.Duration
	newID     func() string

	bookings  []model.Booking
	groupCode string

	sub         remote.Subscription
	generation  uint64
	subscribing bool
	pushing     int
	lastSynced  *time.Time
	lastUpdated string
	syncErr     *syncError
	pulseUntil  time.Time
}

// New loads the cached list and group code so views have data before the
// first snapshot. A failing cache is logged and treated as empty.
func New(ctx context.Context, opts Options) *AppState {
	s := &AppState{
		cache:     opts.Cache,
		remote:    opts.Remote,
		validator: opts.Validator,
		log:       opts.Log,
		now:       opts.Now,
		pulse:     opts.SyncPulse,
		newID:     opts.NewID,
		pushes:    newPushQueue(),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.pulse <= 0 {
		s.pulse = DefaultSyncPulse
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}

	bookings, err := s.cache.LoadBookings(ctx)
	if err != nil {
		s.log.Warn("Failed to load cached bookings", "error", err)
		bookings = []model.Booking{}
	}
	s.bookings = bookings

	code, err := s.cache.LoadGroupCode(ctx)
	if err != nil {
		s.log.Warn("Failed to load cached group code", "error", err)
	}
	code = sanitizer.NormalizeGroupCode(code)
	if code != "" && !sanitizer.ValidGroupCode(code) {
		s.log.Warn("Ignoring invalid cached group code", "group_code", code)
		code = ""
	}
	s.groupCode = code

	s.log.Info("Application state loaded from cache",
		"group_code", s.groupCode,
		"booking_count", len(s.bookings),
	)
	return s
}

// Start subscribes to the current group code. With no code there is nothing
// to follow and Start is a no-op. Subscription failures are recorded in the
// status, not returned.
func (s *AppState) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribeLocked(ctx)
}

// Stop closes the active subscription.
func (s *AppState) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribeLocked()
}

// SetGroupCode switches to another shared document. The code is trimmed and
// upper-cased; a code with any other character is rejected, never rewritten.
// The old subscription is closed first; writes already in flight to the old
// code are not awaited.
func (s *AppState) SetGroupCode(ctx context.Context, code string) (SyncStatus, error) {
	code = sanitizer.NormalizeGroupCode(code)
	if !sanitizer.ValidGroupCode(code) {
		return SyncStatus{}, bookingserrors.ErrInvalidGroupCode
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cache.SaveGroupCode(ctx, code); err != nil {
		s.log.Warn("Failed to cache group code", "group_code", code, "error", err)
	}

	previous := s.groupCode
	s.groupCode = code
	s.unsubscribeLocked()
	s.subscribeLocked(ctx)

	s.log.Info("Group code changed", "from", previous, "to", code)
	return s.statusLocked(), nil
}

func (s *AppState) subscribeLocked(ctx context.Context) {
	if s.groupCode == "" || s.sub != nil {
		return
	}

	s.generation++
	gen := s.generation
	s.subscribing = true

	sub, err := s.remote.Subscribe(ctx, s.groupCode,
		func(snap model.GroupSnapshot) { s.applySnapshot(gen, snap) },
		func(err error) { s.applySubscriptionError(gen, err) },
	)
	if err != nil {
		s.subscribing = false
		e := subscriptionError(err)
		s.syncErr = &e
		s.log.Warn("Failed to subscribe to group document", "group_code", s.groupCode, "error", err)
		return
	}
	s.sub = sub
}

func (s *AppState) unsubscribeLocked() {
	// bumping the generation turns late callbacks of the old feed into no-ops
	s.generation++
	s.subscribing = false
	if s.sub == nil {
		return
	}
	if err := s.sub.Close(); err != nil {
		s.log.Warn("Failed to close subscription", "error", err)
	}
	s.sub = nil
}

// CheckConflict runs the advisory check against the current list.
func (s *AppState) CheckConflict(candidate model.Slot) *model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return conflict.FindConflict(candidate, s.bookings)
}

// Create appends booking after re-checking it against the current list.
// On conflict nothing changes and nothing is written. A failed push is
// recorded in the status; the booking stays in the local list.
func (s *AppState) Create(ctx context.Context, booking model.Booking) (model.Booking, error) {
	normalize(&booking)
	if err := s.validator.Validate(&booking); err != nil {
		return model.Booking{}, err
	}

	if booking.StartTime >= booking.EndTime {
		s.log.Warn("Accepting booking whose end is not after its start",
			"start_time", booking.StartTime,
			"end_time", booking.EndTime,
		)
	}
	if teacher, ok := model.FindTeacher(booking.TeacherID); ok {
		booking.TeacherName = teacher.Name
	}

	s.mu.Lock()
	if booking.ID == "" {
		booking.ID = s.newID()
	} else if s.indexOfLocked(booking.ID) >= 0 {
		s.log.Warn("Accepting booking with duplicate id", "booking_id", booking.ID)
	}

	if existing := conflict.FindConflict(booking.Slot(), s.bookings); existing != nil {
		s.mu.Unlock()
		return model.Booking{}, &bookingserrors.ConflictError{Existing: *existing}
	}

	updated := make([]model.Booking, 0, len(s.bookings)+1)
	updated = append(updated, s.bookings...)
	updated = append(updated, booking)
	s.commitLocked(ctx, updated, "create")
	return booking, nil
}

// Delete removes exactly the booking with id. An unknown id changes nothing.
func (s *AppState) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexOfLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return bookingserrors.ErrNotFound
	}

	updated := make([]model.Booking, 0, len(s.bookings)-1)
	updated = append(updated, s.bookings[:idx]...)
	updated = append(updated, s.bookings[idx+1:]...)
	s.commitLocked(ctx, updated, "delete")
	return nil
}

// ClearMonth removes every booking dated in month (YYYY-MM) at either
// campus and returns how many were removed.
func (s *AppState) ClearMonth(ctx context.Context, month string) (int, error) {
	s.mu.Lock()
	updated := make([]model.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		if b.Month() != month {
			updated = append(updated, b)
		}
	}

	removed := len(s.bookings) - len(updated)
	if removed == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	s.commitLocked(ctx, updated, "clear_month")
	return removed, nil
}

// commitLocked installs updated, caches it and pushes it. It must be called
// with mu held and releases it before the push so that snapshots can be
// applied meanwhile. The push queue keeps pushes in mutation order.
func (s *AppState) commitLocked(ctx context.Context, updated []model.Booking, op string) {
	s.bookings = updated
	if err := s.cache.SaveBookings(ctx, updated); err != nil {
		s.log.Warn("Failed to cache bookings", "operation", op, "error", err)
	}

	code := s.groupCode
	payload := model.CloneBookings(updated)
	if code == "" {
		s.mu.Unlock()
		return
	}
	s.pushing++
	turn := s.pushes.ticket()
	s.mu.Unlock()

	s.pushes.wait(turn)
	err := s.remote.Push(ctx, code, payload)
	s.pushes.done()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushing--
	if err != nil {
		s.syncErr = &writeError
		s.log.Error("Failed to push bookings", "operation", op, "group_code", code, "error", err)
		return
	}
	s.log.Info("Pushed bookings", "operation", op, "group_code", code, "booking_count", len(payload))
}

func (s *AppState) applySnapshot(gen uint64, snap model.GroupSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.applySnapshotLocked(context.Background(), snap)
}

// applySnapshotLocked replaces the list with the snapshot's bookings when
// the document exists and carries them, then marks the client synced.
func (s *AppState) applySnapshotLocked(ctx context.Context, snap model.GroupSnapshot) {
	if snap.Exists && snap.HasBookings {
		s.bookings = model.CloneBookings(snap.Bookings)
		if s.bookings == nil {
			s.bookings = []model.Booking{}
		}
		if err := s.cache.SaveBookings(ctx, s.bookings); err != nil {
			s.log.Warn("Failed to cache snapshot", "error", err)
		}
	}

	now := s.now()
	s.lastSynced = &now
	s.lastUpdated = snap.LastUpdated
	s.subscribing = false
	s.syncErr = nil
	s.pulseUntil = now.Add(s.pulse)

	s.log.Debug("Applied group snapshot",
		"group_code", snap.Code,
		"exists", snap.Exists,
		"has_bookings", snap.HasBookings,
		"booking_count", len(s.bookings),
	)
}

// ApplySnapshot applies snap as if it came from the active subscription.
func (s *AppState) ApplySnapshot(ctx context.Context, snap model.GroupSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applySnapshotLocked(ctx, snap)
}

func (s *AppState) applySubscriptionError(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.applySubscriptionErrorLocked(err)
}

// ApplySubscriptionError records a subscription failure. The list is kept.
func (s *AppState) ApplySubscriptionError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applySubscriptionErrorLocked(err)
}

func (s *AppState) applySubscriptionErrorLocked(err error) {
	e := subscriptionError(err)
	s.syncErr = &e
	s.subscribing = false
	s.log.Warn("Group subscription error", "group_code", s.groupCode, "error_code", e.code, "error", err)
}

func (s *AppState) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *AppState) statusLocked() SyncStatus {
	status := SyncStatus{
		GroupCode:    s.groupCode,
		Subscribed:   s.sub != nil,
		Syncing:      s.subscribing || s.pushing > 0,
		LastUpdated:  s.lastUpdated,
		JustSynced:   s.now().Before(s.pulseUntil),
		BookingCount: len(s.bookings),
	}
	if s.lastSynced != nil {
		t := *s.lastSynced
		status.LastSynced = &t
	}
	if s.syncErr != nil {
		status.ErrorCode = s.syncErr.code
		status.ErrorMessage = s.syncErr.message
	}
	return status
}

func (s *AppState) indexOfLocked(id string) int {
	for i := range s.bookings {
		if s.bookings[i].ID == id {
			return i
		}
	}
	return -1
}

func normalize(b *model.Booking) {
	b.ID = sanitizer.TrimAndNormalize(b.ID)
	b.Title = sanitizer.TrimAndNormalize(b.Title)
	b.TeacherID = sanitizer.TrimAndNormalize(b.TeacherID)
	b.LocationID = sanitizer.TrimAndNormalize(b.LocationID)
	b.Date = sanitizer.NormalizeDate(b.Date)
	b.StartTime = sanitizer.NormalizeClock(b.StartTime)
	b.EndTime = sanitizer.NormalizeClock(b.EndTime)
	b.Description = sanitizer.TrimAndNormalize(b.Description)
}
