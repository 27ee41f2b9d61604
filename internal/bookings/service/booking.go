package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"classflow/internal/bookings/confirm"
	bookingserrors "classflow/internal/bookings/errors"
	"classflow/internal/bookings/export"
	"classflow/internal/bookings/state"
	"classflow/internal/bookings/validator"
	"classflow/pkg/config"
	apperrors "classflow/pkg/errors"
	"classflow/pkg/model"
	"classflow/pkg/sanitizer"
)

type BookingService interface {
	Reference(ctx context.Context) Reference
	List(ctx context.Context, locationID string) ([]model.Booking, error)
	Create(ctx context.Context, booking *model.Booking) (model.Booking, error)
	CheckConflict(ctx context.Context, slot model.Slot) (*ConflictCheck, error)
	Delete(ctx context.Context, id string) error
	Day(ctx context.Context, locationID, date string) ([]model.Booking, error)
	Dashboard(ctx context.Context, locationID string) (*state.Dashboard, error)
	Months(ctx context.Context) []state.MonthGroup
	RequestClear(ctx context.Context, month string) (*ClearRequest, error)
	ConfirmClear(ctx context.Context, month, token string) (*ClearResult, error)
	MonthReport(ctx context.Context, month string) (*File, error)
	CalendarFeed(ctx context.Context, locationID string) (*File, error)
	Summary(ctx context.Context, locationID string) (*Summary, error)
	SyncStatus(ctx context.Context) state.SyncStatus
	SetGroupCode(ctx context.Context, code string) (state.SyncStatus, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, locationName string, bookings []model.Booking) string
}

type Reference struct {
	Locations    []model.Location    `json:"locations"`
	Teachers     []model.Teacher     `json:"teachers"`
	SessionKinds []model.SessionKind `json:"sessionKinds"`
}

type ConflictCheck struct {
	Conflict bool           `json:"conflict"`
	Existing *model.Booking `json:"existing,omitempty"`
}

type ClearRequest struct {
	Month     string    `json:"month"`
	Count     int       `json:"count"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ClearResult struct {
	Month   string `json:"month"`
	Removed int    `json:"removed"`
}

type Summary struct {
	LocationID string `json:"locationId"`
	Text       string `json:"text"`
}

// File is a rendered export ready to be sent as an attachment.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

type bookingService struct {
	state      *state.AppState
	validator  *validator.BookingValidator
	confirms   *confirm.Store
	summarizer Summarizer
	cfg        *config.Config
	now        func() time.Time
}

func NewBookingService(
	st *state.AppState,
	validator *validator.BookingValidator,
	confirms *confirm.Store,
	summarizer Summarizer,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		state:      st,
		validator:  validator,
		confirms:   confirms,
		summarizer: summarizer,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (s *bookingService) Reference(ctx context.Context) Reference {
	return Reference{
		Locations:    model.Locations,
		Teachers:     model.Teachers,
		SessionKinds: model.SessionKinds,
	}
}

func (s *bookingService) List(ctx context.Context, locationID string) ([]model.Booking, error) {
	if locationID != "" {
		if _, err := s.location(locationID); err != nil {
			return nil, err
		}
	}
	return s.state.Bookings(locationID), nil
}

func (s *bookingService) Create(ctx context.Context, booking *model.Booking) (model.Booking, error) {
	created, err := s.state.Create(ctx, *booking)
	if err != nil {
		var conflictErr *bookingserrors.ConflictError
		if errors.As(err, &conflictErr) {
			s.cfg.Log.Info("Booking rejected by conflict check",
				"location_id", booking.LocationID,
				"date", booking.Date,
				"existing_id", conflictErr.Existing.ID,
			)
			return model.Booking{}, apperrors.Conflict("此時段已有其他預約，請重新選擇。").
				WithDetails(map[string]any{"existing": conflictErr.Existing})
		}
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			s.cfg.Log.Warn("Booking validation failed", "error", err)
			return model.Booking{}, validationError(validationErrs)
		}
		return model.Booking{}, apperrors.Internal("Failed to create booking", err)
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", created.ID,
		"location_id", created.LocationID,
		"date", created.Date,
		"start_time", created.StartTime,
		"end_time", created.EndTime,
	)
	return created, nil
}

func (s *bookingService) CheckConflict(ctx context.Context, slot model.Slot) (*ConflictCheck, error) {
	slot.LocationID = sanitizer.TrimAndNormalize(slot.LocationID)
	slot.Date = sanitizer.NormalizeDate(slot.Date)
	slot.StartTime = sanitizer.NormalizeClock(slot.StartTime)
	slot.EndTime = sanitizer.NormalizeClock(slot.EndTime)

	if err := s.validator.ValidateSlot(slot); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return nil, validationError(validationErrs)
		}
		return nil, apperrors.InvalidInput(err.Error())
	}

	existing := s.state.CheckConflict(slot)
	return &ConflictCheck{Conflict: existing != nil, Existing: existing}, nil
}

func (s *bookingService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}
	if err := s.state.Delete(ctx, id); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", id)
		}
		return apperrors.Internal("Failed to delete booking", err)
	}

	s.cfg.Log.Info("Booking deleted successfully", "id", id)
	return nil
}

func (s *bookingService) Day(ctx context.Context, locationID, date string) ([]model.Booking, error) {
	if _, err := s.location(locationID); err != nil {
		return nil, err
	}
	date = sanitizer.NormalizeDate(date)
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid date: %s", date))
	}
	return s.state.Day(locationID, date), nil
}

func (s *bookingService) Dashboard(ctx context.Context, locationID string) (*state.Dashboard, error) {
	if _, err := s.location(locationID); err != nil {
		return nil, err
	}
	d := s.state.Dashboard(locationID, s.today())
	return &d, nil
}

func (s *bookingService) Months(ctx context.Context) []state.MonthGroup {
	return s.state.Months()
}

func (s *bookingService) RequestClear(ctx context.Context, month string) (*ClearRequest, error) {
	if err := s.validateMonth(month); err != nil {
		return nil, err
	}

	count := len(s.state.MonthBookings(month))
	tok := s.confirms.Issue(month)

	s.cfg.Log.Info("Month clear requested", "month", month, "count", count, "expires_at", tok.ExpiresAt)
	return &ClearRequest{
		Month:     month,
		Count:     count,
		Token:     tok.Token,
		ExpiresAt: tok.ExpiresAt,
	}, nil
}

func (s *bookingService) ConfirmClear(ctx context.Context, month, token string) (*ClearResult, error) {
	if err := s.validateMonth(month); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, apperrors.InvalidInput("Confirmation token is required")
	}
	if !s.confirms.Consume(month, token) {
		return nil, apperrors.Forbidden("Confirmation token is invalid or expired")
	}

	removed, err := s.state.ClearMonth(ctx, month)
	if err != nil {
		return nil, apperrors.Internal("Failed to clear month", err)
	}

	s.cfg.Log.Info("Month cleared", "month", month, "removed", removed)
	return &ClearResult{Month: month, Removed: removed}, nil
}

func (s *bookingService) MonthReport(ctx context.Context, month string) (*File, error) {
	if err := s.validateMonth(month); err != nil {
		return nil, err
	}

	buf, err := export.MonthReport(month, s.state.MonthBookings(month))
	if err != nil {
		s.cfg.Log.Error("Failed to render month report", "month", month, "error", err)
		return nil, apperrors.Internal("Failed to render month report", err)
	}
	return &File{
		Name:        export.ReportFilename(month),
		ContentType: contentTypeXLSX,
		Body:        buf.Bytes(),
	}, nil
}

func (s *bookingService) CalendarFeed(ctx context.Context, locationID string) (*File, error) {
	loc, err := s.location(locationID)
	if err != nil {
		return nil, err
	}

	feed := export.Calendar(loc, s.state.Bookings(locationID), s.cfg.Location(), s.now(), s.cfg.Log.Component("export"))
	return &File{
		Name:        export.CalendarFilename(locationID),
		ContentType: contentTypeICS,
		Body:        []byte(feed),
	}, nil
}

// Summary describes the campus's upcoming bookings.
func (s *bookingService) Summary(ctx context.Context, locationID string) (*Summary, error) {
	loc, err := s.location(locationID)
	if err != nil {
		return nil, err
	}

	upcoming := s.state.Dashboard(locationID, s.today()).Upcoming
	text := s.summarizer.Summarize(ctx, loc.ChineseName, upcoming)
	return &Summary{LocationID: locationID, Text: text}, nil
}

func (s *bookingService) SyncStatus(ctx context.Context) state.SyncStatus {
	return s.state.Status()
}

func (s *bookingService) SetGroupCode(ctx context.Context, code string) (state.SyncStatus, error) {
	status, err := s.state.SetGroupCode(ctx, code)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrInvalidGroupCode) {
			return state.SyncStatus{}, apperrors.InvalidInput("Group code must be 1-32 letters, digits, '-' or '_'")
		}
		return state.SyncStatus{}, apperrors.Internal("Failed to change group code", err)
	}
	return status, nil
}

// --- Helpers ---

func (s *bookingService) location(id string) (model.Location, error) {
	loc, ok := model.FindLocation(id)
	if !ok {
		return model.Location{}, apperrors.InvalidInput(fmt.Sprintf("unknown location: %q", id))
	}
	return loc, nil
}

func (s *bookingService) validateMonth(month string) error {
	if err := s.validator.ValidateMonth(month); err != nil {
		return apperrors.Wrap(bookingserrors.ErrInvalidMonth, apperrors.CodeInvalidInput,
			bookingserrors.ErrInvalidMonth.Error(), http.StatusBadRequest)
	}
	return nil
}

func (s *bookingService) today() string {
	return s.now().In(s.cfg.Location()).Format(time.DateOnly)
}

func validationError(errs validator.ValidationErrors) *apperrors.AppError {
	fields := make(map[string]any, len(errs))
	for _, e := range errs {
		fields[e.Field] = e.Message
	}
	return apperrors.Validation("Booking validation failed", map[string]any{"fields": fields})
}
