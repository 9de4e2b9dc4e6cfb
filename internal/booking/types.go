// Package booking validates a booking request end to end and submits it to
// the scheduling provider.
package booking

import (
	"encoding/json"
	"strings"
)

const (
	// DefaultLocation is used when a request names none.
	DefaultLocation = "Zoom"

	indiaTimeZone = "Asia/Kolkata"
)

// Attendee is the patient the appointment is for.
type Attendee struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email"`
	TimeZone    string `json:"timeZone" validate:"required,timezone"`
	PhoneNumber string `json:"phoneNumber"`
	Language    string `json:"language,omitempty"`
}

// Request is an inbound booking request. Start may be a UTC timestamp
// ("...Z"), carry an explicit offset, or be wall-clock time in the
// attendee's timezone.
type Request struct {
	Start       string            `json:"start" validate:"required"`
	Attendee    Attendee          `json:"attendee" validate:"required"`
	Location    string            `json:"location,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	EventTypeID int               `json:"eventTypeId,omitempty" validate:"gte=0"`

	// IdempotencyKey replays a previous successful outcome when set.
	IdempotencyKey string `json:"-"`
}

// Outcome is the terminal result of a submission. Status true always comes
// with Booking; Status false always comes with Error.
type Outcome struct {
	Status  bool            `json:"status"`
	Booking json.RawMessage `json:"booking,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// CountryForTimeZone picks the phone rule country from the attendee's
// timezone.
func CountryForTimeZone(timeZone string) string {
	if strings.Contains(timeZone, indiaTimeZone) {
		return "IN"
	}
	return "US"
}
