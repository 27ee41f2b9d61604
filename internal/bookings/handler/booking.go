package handler

import (
	"encoding/json"
	"net/http"

	"classflow/internal/bookings/service"
	apperrors "classflow/pkg/errors"
	httputil "classflow/pkg/http"
	"classflow/pkg/logger"
	"classflow/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

type groupCodeRequest struct {
	Code string `json:"code"`
}

func (h *BookingHandler) Reference(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.writeSuccess(w, "Reference", h.service.Reference(r.Context()))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bookings, err := h.service.List(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteList(w, bookings, len(bookings)); err != nil {
		h.log.Error("failed to write list response", "handler", "List", "operation", "WriteList", "error", err)
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var booking model.Booking
	if err := json.NewDecoder(r.Body).Decode(&booking); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	created, err := h.service.Create(r.Context(), &booking)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) CheckConflict(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var slot model.Slot
	if err := json.NewDecoder(r.Body).Decode(&slot); err != nil {
		h.writeError(w, "CheckConflict", apperrors.InvalidInput("Invalid request body"))
		return
	}

	result, err := h.service.CheckConflict(r.Context(), slot)
	if err != nil {
		h.writeError(w, "CheckConflict", err)
		return
	}
	h.writeSuccess(w, "CheckConflict", result)
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) Day(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookings, err := h.service.Day(r.Context(), r.URL.Query().Get("location"), ps.ByName("date"))
	if err != nil {
		h.writeError(w, "Day", err)
		return
	}

	if err := httputil.WriteList(w, bookings, len(bookings)); err != nil {
		h.log.Error("failed to write list response", "handler", "Day", "operation", "WriteList", "error", err)
	}
}

func (h *BookingHandler) Dashboard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	dashboard, err := h.service.Dashboard(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		h.writeError(w, "Dashboard", err)
		return
	}
	h.writeSuccess(w, "Dashboard", dashboard)
}

func (h *BookingHandler) Months(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	months := h.service.Months(r.Context())
	if err := httputil.WriteList(w, months, len(months)); err != nil {
		h.log.Error("failed to write list response", "handler", "Months", "operation", "WriteList", "error", err)
	}
}

// RequestClear is the first confirmation of a month clear. Nothing is
// removed until the returned token comes back on ConfirmClear.
func (h *BookingHandler) RequestClear(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	req, err := h.service.RequestClear(r.Context(), ps.ByName("month"))
	if err != nil {
		h.writeError(w, "RequestClear", err)
		return
	}
	h.writeSuccess(w, "RequestClear", req)
}

func (h *BookingHandler) ConfirmClear(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	result, err := h.service.ConfirmClear(r.Context(), ps.ByName("month"), r.URL.Query().Get("token"))
	if err != nil {
		h.writeError(w, "ConfirmClear", err)
		return
	}
	h.writeSuccess(w, "ConfirmClear", result)
}

func (h *BookingHandler) MonthReport(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	file, err := h.service.MonthReport(r.Context(), ps.ByName("month"))
	if err != nil {
		h.writeError(w, "MonthReport", err)
		return
	}
	h.writeAttachment(w, "MonthReport", file)
}

func (h *BookingHandler) CalendarFeed(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	file, err := h.service.CalendarFeed(r.Context(), ps.ByName("location"))
	if err != nil {
		h.writeError(w, "CalendarFeed", err)
		return
	}
	h.writeAttachment(w, "CalendarFeed", file)
}

func (h *BookingHandler) Summary(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	summary, err := h.service.Summary(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		h.writeError(w, "Summary", err)
		return
	}
	h.writeSuccess(w, "Summary", summary)
}

func (h *BookingHandler) SyncStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.writeSuccess(w, "SyncStatus", h.service.SyncStatus(r.Context()))
}

func (h *BookingHandler) SetGroupCode(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req groupCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "SetGroupCode", apperrors.InvalidInput("Invalid request body"))
		return
	}

	status, err := h.service.SetGroupCode(r.Context(), req.Code)
	if err != nil {
		h.writeError(w, "SetGroupCode", err)
		return
	}
	h.writeSuccess(w, "SetGroupCode", status)
}

func (h *BookingHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) writeAttachment(w http.ResponseWriter, handler string, file *service.File) {
	if err := httputil.WriteAttachment(w, file.ContentType, file.Name, file.Body); err != nil {
		h.log.Error("failed to write attachment", "handler", handler, "operation", "WriteAttachment", "error", err)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/reference", h.Reference)

	router.GET("/api/v1/bookings", h.List)
	router.POST("/api/v1/bookings", h.Create)
	router.POST("/api/v1/bookings/check", h.CheckConflict)
	router.DELETE("/api/v1/bookings/id/:id", h.Delete)
	router.GET("/api/v1/bookings/day/:date", h.Day)

	router.GET("/api/v1/dashboard", h.Dashboard)

	router.GET("/api/v1/months", h.Months)
	router.POST("/api/v1/months/:month/clear", h.RequestClear)
	router.DELETE("/api/v1/months/:month", h.ConfirmClear)
	router.GET("/api/v1/months/:month/report.xlsx", h.MonthReport)

	router.GET("/api/v1/calendar/:location/feed.ics", h.CalendarFeed)
	router.GET("/api/v1/summary", h.Summary)

	router.GET("/api/v1/sync", h.SyncStatus)
	router.PUT("/api/v1/sync/code", h.SetGroupCode)
}
