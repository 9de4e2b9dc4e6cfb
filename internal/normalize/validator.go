package normalize

import (
	"strings"

	"github.com/wolfman30/careslot/pkg/logging"
)

type outcomeObserver interface {
	ObserveValidation(kind string, valid bool)
}

// Validator runs the pure validation functions and reports on them. It holds
// no mutable state and is safe for concurrent use.
type Validator struct {
	logger  *logging.Logger
	metrics outcomeObserver
}

// NewValidator builds a Validator. metrics may be nil.
func NewValidator(logger *logging.Logger, metrics outcomeObserver) *Validator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Validator{logger: logger, metrics: metrics}
}

// ValidateEmail wraps ValidateEmail with outcome reporting.
func (v *Validator) ValidateEmail(email string, phoneticConfirmation bool) ValidationResult {
	result := ValidateEmail(email, phoneticConfirmation)
	v.observe("email", result.IsValid)
	return result
}

// ValidatePhone wraps ValidatePhone and logs when an unknown country code
// silently falls back to the US rule.
func (v *Validator) ValidatePhone(phone, countryCode string) ValidationResult {
	if _, known := LookupPhoneRule(countryCode); !known {
		v.logger.Warn("phone country code not supported, using default rule",
			"country_code", strings.TrimSpace(countryCode),
			"default", DefaultCountry,
			"supported", SupportedCountries(),
		)
	}
	result := ValidatePhone(phone, countryCode)
	v.observe("phone", result.IsValid)
	return result
}

func (v *Validator) observe(kind string, valid bool) {
	if v == nil || v.metrics == nil {
		return
	}
	v.metrics.ObserveValidation(kind, valid)
}
