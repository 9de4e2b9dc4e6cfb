package booking

import (
	"errors"
	"strings"

	"github.com/wolfman30/careslot/internal/calcom"
	"github.com/wolfman30/careslot/internal/normalize"
)

var (
	// ErrInvalidInput marks malformed contact details or start time.
	ErrInvalidInput = normalize.ErrInvalidInput
	// ErrUnavailable means the requested time is not an open slot.
	ErrUnavailable = errors.New("slot unavailable")
	// ErrConflict means the provider rejected the slot as already taken.
	ErrConflict = errors.New("booking conflict")
	// ErrProviderFailure means the provider kept failing after retries.
	ErrProviderFailure = errors.New("provider failure")
)

// Error is returned by CreateBooking. Message is safe to show a patient;
// Kind is one of the sentinel errors above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var conflictMarkers = []string{"already has booking", "not available"}

// isConflictMessage reports whether a provider message describes a
// scheduling conflict that no retry can fix.
func isConflictMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range conflictMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// providerMessage extracts the provider's own wording from err.
func providerMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *calcom.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func isRetryable(err error) bool {
	return !isConflictMessage(providerMessage(err))
}
