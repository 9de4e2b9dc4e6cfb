// Package normalize validates and canonicalizes patient contact details
// (email addresses and phone numbers) and renders them as phonetic spellings
// a voice agent can read back for confirmation.
//
// Validation here is soft: callers always get a ValidationResult describing
// the outcome, never an error or panic for malformed input.
package normalize

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks malformed user-supplied contact details.
var ErrInvalidInput = errors.New("invalid input")

// ValidationResult is the outcome of validating one email or phone number.
type ValidationResult struct {
	IsValid    bool   `json:"isValid"`
	Normalized string `json:"normalized"`
	Phonetic   string `json:"phonetic,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ValidationError carries the human-readable reason a value was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Err converts an invalid result into a *ValidationError for field. Valid
// results return nil.
func (r ValidationResult) Err(field string) error {
	if r.IsValid {
		return nil
	}
	return &ValidationError{Field: field, Message: r.Message}
}

func invalid(normalized, message string) ValidationResult {
	return ValidationResult{IsValid: false, Normalized: normalized, Message: message}
}
