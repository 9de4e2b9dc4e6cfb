package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

const maxEmailLength = 254

var emailPattern = regexp.MustCompile(
	`^[a-z0-9_'+\-]+(\.[a-z0-9_'+\-]+)*@[a-z0-9]([a-z0-9\-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9\-]*[a-z0-9])?)*\.[a-z]{2,}$`,
)

// Voice transcription tends to produce single-character domain slips.
var domainCorrections = map[string]string{
	"gamil.com":    "gmail.com",
	"gmial.com":    "gmail.com",
	"gmai.com":     "gmail.com",
	"gmal.com":     "gmail.com",
	"yaho.com":     "yahoo.com",
	"yahooo.com":   "yahoo.com",
	"yhoo.com":     "yahoo.com",
	"hotmal.com":   "hotmail.com",
	"hotmial.com":  "hotmail.com",
	"outllook.com": "outlook.com",
	"outlok.com":   "outlook.com",
}

// ValidateEmail checks the structure of email, lowercases it and fixes common
// domain typos. When phoneticConfirmation is set the corrected address is also
// spelled out phonetically.
func ValidateEmail(email string, phoneticConfirmation bool) ValidationResult {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return invalid("", "Email address is required")
	}
	if len(normalized) > maxEmailLength {
		return invalid(normalized, fmt.Sprintf("Email address is too long (maximum %d characters)", maxEmailLength))
	}
	if !emailPattern.MatchString(normalized) {
		return invalid(normalized, "Invalid email format. Please use a format like name@example.com or first.last@company.org")
	}

	message := "Email is valid"
	at := strings.LastIndex(normalized, "@")
	local, domain := normalized[:at], normalized[at+1:]
	if corrected, ok := domainCorrections[domain]; ok {
		normalized = local + "@" + corrected
		message = fmt.Sprintf("Email domain corrected from %s to %s", domain, corrected)
	}

	result := ValidationResult{
		IsValid:    true,
		Normalized: normalized,
		Message:    message,
	}
	if phoneticConfirmation {
		result.Phonetic = Phonetic(normalized)
	}
	return result
}
