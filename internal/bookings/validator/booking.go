package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"classflow/pkg/logger"
	"classflow/pkg/model"

	"github.com/go-playground/validator/v10"
)

var (
	dateRegex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	monthRegex = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	custom := map[string]validator.Func{
		"session_kind":  validateSessionKind,
		"teacher":       validateTeacher,
		"location":      validateLocation,
		"calendar_date": validateCalendarDate,
		"clock_time":    validateClockTime,
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatal("Failed to register validator",
				"tag", tag,
				"error", err,
			)
		}
	}

	log.Debug("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateSessionKind(fl validator.FieldLevel) bool {
	_, ok := model.FindSessionKind(fl.Field().String())
	return ok
}

func validateTeacher(fl validator.FieldLevel) bool {
	_, ok := model.FindTeacher(fl.Field().String())
	return ok
}

func validateLocation(fl validator.FieldLevel) bool {
	_, ok := model.FindLocation(fl.Field().String())
	return ok
}

// validateCalendarDate accepts real dates only, so "2026-02-30" fails.
func validateCalendarDate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if !dateRegex.MatchString(s) {
		return false
	}
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

func validateClockTime(fl validator.FieldLevel) bool {
	return clockRegex.MatchString(fl.Field().String())
}

// Validate checks field formats and reference data. It does not compare
// start and end; an inverted range is accepted.
func (v *BookingValidator) Validate(booking *model.Booking) error {
	if err := v.validate.Struct(booking); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

// ValidateSlot checks only the fields the conflict checker reads.
func (v *BookingValidator) ValidateSlot(slot model.Slot) error {
	var errs ValidationErrors
	if _, ok := model.FindLocation(slot.LocationID); !ok {
		errs = append(errs, ValidationError{Field: "locationId", Message: "locationId must be a known campus"})
	}
	if err := v.validate.Var(slot.Date, "required,calendar_date"); err != nil {
		errs = append(errs, ValidationError{Field: "date", Message: "date must be a valid YYYY-MM-DD date"})
	}
	if err := v.validate.Var(slot.StartTime, "required,clock_time"); err != nil {
		errs = append(errs, ValidationError{Field: "startTime", Message: "startTime must be HH:MM (24h)"})
	}
	if err := v.validate.Var(slot.EndTime, "required,clock_time"); err != nil {
		errs = append(errs, ValidationError{Field: "endTime", Message: "endTime must be HH:MM (24h)"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateMonth checks a YYYY-MM month key.
func (v *BookingValidator) ValidateMonth(month string) error {
	if !monthRegex.MatchString(month) {
		return ValidationErrors{{Field: "month", Message: "month must be YYYY-MM"}}
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		field := jsonName(err.Field())
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", field, err.Param())
		case "session_kind":
			message = fmt.Sprintf("%s must be a known session kind", field)
		case "teacher":
			message = fmt.Sprintf("%s must be a rostered teacher", field)
		case "location":
			message = fmt.Sprintf("%s must be a known campus", field)
		case "calendar_date":
			message = fmt.Sprintf("%s must be a valid YYYY-MM-DD date", field)
		case "clock_time":
			message = fmt.Sprintf("%s must be HH:MM (24h)", field)
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   field,
			Message: message,
		})
	}

	return validationErrors
}

// jsonName maps a struct field to its wire name (TeacherID -> teacherId).
func jsonName(field string) string {
	switch field {
	case "ID":
		return "id"
	case "TeacherID":
		return "teacherId"
	case "LocationID":
		return "locationId"
	}
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
