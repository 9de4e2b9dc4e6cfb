package normalize

import (
	"bytes"
	"fmt"
	"math/rand"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/careslot/pkg/logging"
)

func TestValidatePhone_USFormats(t *testing.T) {
	tests := []string{
		"555-123-4567",
		"(555) 123-4567",
		"555.123.4567",
		"5551234567",
		"+1 555 123 4567",
		"+15551234567",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			result := ValidatePhone(in, "US")
			require.True(t, result.IsValid, result.Message)
			assert.Equal(t, "+15551234567", result.Normalized)
			assert.NotEmpty(t, result.Phonetic)
		})
	}
}

func TestValidatePhone_AnyTenDigitUSNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^\+1\d{10}$`)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		s := fmt.Sprintf("%d%09d", rng.Intn(9)+1, rng.Intn(1_000_000_000))
		result := ValidatePhone(s, "US")
		require.True(t, result.IsValid, "input %s: %s", s, result.Message)
		assert.Regexp(t, pattern, result.Normalized)
	}
}

func TestValidatePhone_InternationalPrefixWithDefaultCountry(t *testing.T) {
	result := ValidatePhone("+91-9876543210", "")
	require.True(t, result.IsValid, result.Message)
	assert.Equal(t, "+919876543210", result.Normalized)
}

func TestValidatePhone_CountryRules(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		country string
		want    string
		valid   bool
	}{
		{"india local", "98765 43210", "IN", "+919876543210", true},
		{"india lowercase code", "09876543210", "in", "+919876543210", true},
		{"india bad leading digit", "5876543210", "IN", "+915876543210", false},
		{"france local with trunk zero", "06 12 34 56 78", "FR", "+33612345678", true},
		{"france too short", "06 12 34 56", "FR", "+336123456", false},
		{"us too short", "555-1234", "US", "+15551234", false},
		{"us too long", "555-123-45678", "US", "+155512345678", false},
		{"unknown country falls back to us", "555-123-4567", "ZZ", "+15551234567", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidatePhone(tt.phone, tt.country)
			assert.Equal(t, tt.valid, result.IsValid, result.Message)
			assert.Equal(t, tt.want, result.Normalized)
			if !tt.valid {
				assert.Empty(t, result.Phonetic)
				assert.Contains(t, result.Message, "digits after")
			}
		})
	}
}

func TestValidatePhone_Empty(t *testing.T) {
	result := ValidatePhone("", "FR")
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Message, "+33 6 12 34 56 78")

	result = ValidatePhone("  ", "nowhere")
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Message, "+1 (555) 123-4567")
}

func TestValidatePhone_Phonetic(t *testing.T) {
	result := ValidatePhone("+15551234567", "US")
	require.True(t, result.IsValid)
	assert.Equal(t, "plus, One, Five, Five, Five, One, Two, Three, Four, Five, Six, Seven", result.Phonetic)
}

func TestValidatePhone_Idempotent(t *testing.T) {
	for _, tc := range []struct{ phone, country string }{
		{"555-123-4567", "US"},
		{"098765 43210", "IN"},
		{"06 12 34 56 78", "FR"},
		{"+91-9876543210", "US"},
	} {
		once := ValidatePhone(tc.phone, tc.country)
		require.True(t, once.IsValid, once.Message)
		twice := ValidatePhone(once.Normalized, tc.country)
		require.True(t, twice.IsValid, twice.Message)
		assert.Equal(t, once.Normalized, twice.Normalized)
	}
}

func TestLookupPhoneRule(t *testing.T) {
	rule, ok := LookupPhoneRule("fr")
	assert.True(t, ok)
	assert.Equal(t, "33", rule.CallingCode)

	rule, ok = LookupPhoneRule("DE")
	assert.False(t, ok)
	assert.Equal(t, "US", rule.CountryCode)

	assert.Equal(t, []string{"FR", "IN", "US"}, SupportedCountries())
}

func TestPhonetic_PassesThroughUnknown(t *testing.T) {
	assert.Equal(t, "Alpha, !, Bravo", Phonetic("A!b"))
	assert.Equal(t, "", Phonetic(""))
	assert.Equal(t, "underscore, dash, plus", Phonetic("_-+"))
}

type recordingObserver struct {
	calls map[string]int
}

func (r *recordingObserver) ObserveValidation(kind string, valid bool) {
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	r.calls[fmt.Sprintf("%s:%t", kind, valid)]++
}

func TestValidator_LogsCountryFallback(t *testing.T) {
	var buf bytes.Buffer
	obs := &recordingObserver{}
	v := NewValidator(logging.NewWithWriter("warn", &buf), obs)

	result := v.ValidatePhone("555-123-4567", "XX")
	assert.True(t, result.IsValid)
	assert.Contains(t, buf.String(), "phone country code not supported")
	assert.Contains(t, buf.String(), `"country_code":"XX"`)

	buf.Reset()
	v.ValidatePhone("555-123-4567", "US")
	assert.Empty(t, buf.String())

	v.ValidateEmail("bad", false)
	assert.Equal(t, 2, obs.calls["phone:true"])
	assert.Equal(t, 1, obs.calls["email:false"])
}
