// Package calcom is a REST client for the Cal.com v2 scheduling API.
package calcom

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusSuccess is the envelope status Cal.com uses for successful calls.
const StatusSuccess = "success"

// SlotsQuery selects open slots for one event type in a time window.
type SlotsQuery struct {
	Start       time.Time
	End         time.Time
	EventTypeID int
	TimeZone    string
}

// Slot is one open start time. Time is kept as the raw provider string.
type Slot struct {
	Time string `json:"time"`
}

// SlotsData groups slots by calendar date (YYYY-MM-DD).
type SlotsData struct {
	Slots map[string][]Slot `json:"slots"`
}

// SlotsResponse is the envelope returned by GET /v2/slots/available.
type SlotsResponse struct {
	Status string     `json:"status"`
	Data   *SlotsData `json:"data"`
}

// Attendee identifies the person the booking is for.
type Attendee struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	TimeZone    string `json:"timeZone"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Language    string `json:"language,omitempty"`
}

// CreateBookingRequest is the body of POST /v2/bookings.
type CreateBookingRequest struct {
	Start       string            `json:"start"`
	EventTypeID int               `json:"eventTypeId"`
	Attendee    Attendee          `json:"attendee"`
	Location    string            `json:"location,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ErrorBody is the provider's error object.
type ErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// BookingResponse is the envelope returned by booking endpoints. Data is kept
// opaque and handed back to callers untouched.
type BookingResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

// BookingFilter narrows GET /v2/bookings.
type BookingFilter struct {
	EventTypeID   int
	AttendeeName  string
	AttendeeEmail string
	Status        string
}

// APIError is a non-success answer from Cal.com.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calcom: status %d: %s", e.StatusCode, e.Message)
}
