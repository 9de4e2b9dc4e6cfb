package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/wolfman30/careslot/internal/availability"
	"github.com/wolfman30/careslot/internal/booking"
	"github.com/wolfman30/careslot/internal/calcom"
	"github.com/wolfman30/careslot/internal/normalize"
	"github.com/wolfman30/careslot/pkg/logging"
)

const maxBodyBytes = 64 << 10

// BookingService is the booking core as seen by the HTTP layer.
type BookingService interface {
	CreateBooking(ctx context.Context, req booking.Request) (*booking.Outcome, error)
	ValidateEmail(email string, phoneticConfirmation bool) normalize.ValidationResult
	ValidatePhone(phone, countryCode string) normalize.ValidationResult
	GetAvailability(ctx context.Context, days int, timeZone string) availability.Result
	CancelBooking(ctx context.Context, uid, reason string) (json.RawMessage, error)
	FindBookings(ctx context.Context, filter calcom.BookingFilter) (json.RawMessage, error)
}

// BookingHandler exposes the booking core over JSON.
type BookingHandler struct {
	service  BookingService
	validate *validator.Validate
	logger   *logging.Logger
}

// NewBookingHandler creates the booking HTTP handler.
func NewBookingHandler(service BookingService, logger *logging.Logger) *BookingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	return &BookingHandler{service: service, validate: v, logger: logger}
}

// Routes returns a chi router with the booking routes.
func (h *BookingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/bookings", h.CreateBooking)
	r.Get("/bookings", h.ListBookings)
	r.Post("/bookings/{uid}/cancel", h.CancelBooking)
	r.Get("/availability", h.GetAvailability)
	r.Post("/validate/email", h.ValidateEmail)
	r.Post("/validate/phone", h.ValidatePhone)
	return r
}

type errorResponse struct {
	Status bool              `json:"status"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// CreateBooking validates and submits a booking.
// POST /api/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req booking.Request
	if !h.decode(w, r, &req) {
		return
	}
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get("Idempotency-Key"))

	outcome, err := h.service.CreateBooking(r.Context(), req)
	if err != nil {
		status := statusForBookingError(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("create booking failed", "error", err)
		}
		writeJSON(w, status, errorResponse{Status: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, outcome)
}

func statusForBookingError(err error) int {
	switch {
	case errors.Is(err, booking.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrUnavailable), errors.Is(err, booking.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, booking.ErrProviderFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type validateEmailRequest struct {
	Email                string `json:"email"`
	PhoneticConfirmation bool   `json:"phoneticConfirmation"`
}

// ValidateEmail returns a soft validation result; it never fails on bad input.
// POST /api/validate/email
func (h *BookingHandler) ValidateEmail(w http.ResponseWriter, r *http.Request) {
	var req validateEmailRequest
	if !h.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.service.ValidateEmail(req.Email, req.PhoneticConfirmation))
}

type validatePhoneRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	CountryCode string `json:"countryCode" validate:"omitempty,alpha,len=2"`
}

// ValidatePhone returns a soft validation result.
// POST /api/validate/phone
func (h *BookingHandler) ValidatePhone(w http.ResponseWriter, r *http.Request) {
	var req validatePhoneRequest
	if !h.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.service.ValidatePhone(req.PhoneNumber, req.CountryCode))
}

// GetAvailability lists open slots.
// GET /api/availability?days=7&timeZone=America/New_York
func (h *BookingHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	days := availability.LookaheadDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "days must be a positive integer"})
			return
		}
		days = parsed
	}
	result := h.service.GetAvailability(r.Context(), days, r.URL.Query().Get("timeZone"))
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, result)
}

type cancelRequest struct {
	Reason string `json:"cancellationReason" validate:"max=500"`
}

// CancelBooking cancels a booking by uid.
// POST /api/bookings/{uid}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if strings.TrimSpace(uid) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "uid required"})
		return
	}
	var req cancelRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	data, err := h.service.CancelBooking(r.Context(), uid, req.Reason)
	if err != nil {
		h.logger.Error("cancel booking failed", "uid", uid, "error", err)
		writeJSON(w, providerStatus(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": true, "booking": data})
}

// ListBookings searches bookings by attendee.
// GET /api/bookings?attendeeEmail=&attendeeName=&status=
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := calcom.BookingFilter{
		AttendeeName:  strings.TrimSpace(q.Get("attendeeName")),
		AttendeeEmail: strings.TrimSpace(q.Get("attendeeEmail")),
		Status:        strings.TrimSpace(q.Get("status")),
	}
	if raw := q.Get("eventTypeId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "eventTypeId must be a positive integer"})
			return
		}
		filter.EventTypeID = id
	}
	data, err := h.service.FindBookings(r.Context(), filter)
	if err != nil {
		h.logger.Error("list bookings failed", "error", err)
		writeJSON(w, providerStatus(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": true, "bookings": data})
}

func providerStatus(err error) int {
	var apiErr *calcom.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return apiErr.StatusCode
	}
	return http.StatusBadGateway
}

// decode reads a JSON body into dst and runs struct validation. It writes the
// error response itself and reports whether the handler should continue.
func (h *BookingHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: translateValidationErrors(verrs)})
			return false
		}
		h.logger.Error("request validation error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return false
	}
	return true
}

func translateValidationErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), strings.Split(fe.Namespace(), ".")[0]+".")
		switch fe.Tag() {
		case "required":
			out[field] = "is required"
		case "timezone":
			out[field] = fmt.Sprintf("%q is not a valid IANA timezone", fe.Value())
		case "len", "alpha":
			out[field] = "must be a two-letter country code"
		default:
			out[field] = fmt.Sprintf("failed %s validation", fe.Tag())
		}
	}
	return out
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
