package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultCountry is used when a caller does not name one, or names one we
// have no rule for.
const DefaultCountry = "US"

// CountryPhoneRule describes how numbers for one country are written.
type CountryPhoneRule struct {
	CountryCode         string
	CallingCode         string
	Pattern             *regexp.Regexp
	ExampleFormat       string
	ExpectedLocalDigits int
}

// TotalDigits is the digit count of a full international number, calling
// code included.
func (r CountryPhoneRule) TotalDigits() int {
	return len(r.CallingCode) + r.ExpectedLocalDigits
}

var phoneRules = map[string]CountryPhoneRule{
	"US": {
		CountryCode:         "US",
		CallingCode:         "1",
		Pattern:             regexp.MustCompile(`^\+1\d{10}$`),
		ExampleFormat:       "+1 (555) 123-4567",
		ExpectedLocalDigits: 10,
	},
	"IN": {
		CountryCode:         "IN",
		CallingCode:         "91",
		Pattern:             regexp.MustCompile(`^\+91[6-9]\d{9}$`),
		ExampleFormat:       "+91 98765 43210",
		ExpectedLocalDigits: 10,
	},
	"FR": {
		CountryCode:         "FR",
		CallingCode:         "33",
		Pattern:             regexp.MustCompile(`^\+33[1-9]\d{8}$`),
		ExampleFormat:       "+33 6 12 34 56 78",
		ExpectedLocalDigits: 9,
	},
}

// rules ordered by descending calling-code length so "+91" never resolves to a
// shorter prefix.
var rulesByCallingCode = func() []CountryPhoneRule {
	out := make([]CountryPhoneRule, 0, len(phoneRules))
	for _, r := range phoneRules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].CallingCode) != len(out[j].CallingCode) {
			return len(out[i].CallingCode) > len(out[j].CallingCode)
		}
		return out[i].CountryCode < out[j].CountryCode
	})
	return out
}()

var nonPhoneChars = regexp.MustCompile(`[^\d+]`)

// LookupPhoneRule resolves countryCode case-insensitively. The second return
// is false when the code is unknown and the US rule was substituted.
func LookupPhoneRule(countryCode string) (CountryPhoneRule, bool) {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	if code == "" {
		return phoneRules[DefaultCountry], true
	}
	if rule, ok := phoneRules[code]; ok {
		return rule, true
	}
	return phoneRules[DefaultCountry], false
}

// SupportedCountries lists the country codes with a dedicated rule.
func SupportedCountries() []string {
	out := make([]string, 0, len(phoneRules))
	for code := range phoneRules {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// NormalizePhone canonicalizes phone into +<calling code><digits> form using
// rule when no international prefix is present.
func NormalizePhone(phone string, rule CountryPhoneRule) string {
	cleaned := nonPhoneChars.ReplaceAllString(strings.TrimSpace(phone), "")
	plus := strings.HasPrefix(cleaned, "+")
	cleaned = strings.ReplaceAll(cleaned, "+", "")
	if plus {
		return "+" + cleaned
	}
	cleaned = strings.TrimLeft(cleaned, "0")
	return "+" + rule.CallingCode + cleaned
}

// ValidatePhone normalizes phone and checks it against the rule for
// countryCode. A number that already carries a supported international
// prefix is checked against that country's rule instead.
func ValidatePhone(phone, countryCode string) ValidationResult {
	rule, _ := LookupPhoneRule(countryCode)
	if strings.TrimSpace(phone) == "" {
		return invalid("", fmt.Sprintf("Phone number is required. Please provide it in the format %s", rule.ExampleFormat))
	}

	normalized := NormalizePhone(phone, rule)
	if hasInternationalPrefix(phone) {
		if explicit, ok := ruleForPrefix(normalized); ok {
			rule = explicit
		}
	}

	digitsOnly := nonDigits(normalized)
	if len(digitsOnly) != rule.TotalDigits() || !rule.Pattern.MatchString(normalized) {
		return invalid(normalized, fmt.Sprintf(
			"Invalid phone number for %s. Please use the format %s (%d digits after +%s)",
			rule.CountryCode, rule.ExampleFormat, rule.ExpectedLocalDigits, rule.CallingCode,
		))
	}

	return ValidationResult{
		IsValid:    true,
		Normalized: normalized,
		Phonetic:   Phonetic(normalized),
		Message:    "Phone number is valid",
	}
}

func ruleForPrefix(normalized string) (CountryPhoneRule, bool) {
	for _, r := range rulesByCallingCode {
		prefix := "+" + r.CallingCode
		if strings.HasPrefix(normalized, prefix) && len(nonDigits(normalized)) == r.TotalDigits() {
			return r, true
		}
	}
	return CountryPhoneRule{}, false
}

func hasInternationalPrefix(phone string) bool {
	return strings.HasPrefix(nonPhoneChars.ReplaceAllString(strings.TrimSpace(phone), ""), "+")
}

func nonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
