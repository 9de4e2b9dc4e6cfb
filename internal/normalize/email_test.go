package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail_Valid(t *testing.T) {
	result := ValidateEmail("test@example.com", false)
	assert.True(t, result.IsValid)
	assert.Equal(t, "test@example.com", result.Normalized)
	assert.Equal(t, "Email is valid", result.Message)
	assert.Empty(t, result.Phonetic)
}

func TestValidateEmail_TrimsAndLowercases(t *testing.T) {
	result := ValidateEmail("  Jane.Doe+Spa@Example.ORG ", false)
	require.True(t, result.IsValid, result.Message)
	assert.Equal(t, "jane.doe+spa@example.org", result.Normalized)
}

func TestValidateEmail_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"empty", "", "Email address is required"},
		{"whitespace", "   ", "Email address is required"},
		{"no at", "invalid-email", "Invalid email format"},
		{"leading dot", ".jane@example.com", "Invalid email format"},
		{"consecutive dots", "jane..doe@example.com", "Invalid email format"},
		{"trailing local dot", "jane.@example.com", "Invalid email format"},
		{"no tld", "jane@example", "Invalid email format"},
		{"domain dots", "jane@example..com", "Invalid email format"},
		{"bad domain char", "jane@exa_mple.com", "Invalid email format"},
		{"two ats", "jane@doe@example.com", "Invalid email format"},
		{"too long", strings.Repeat("a", 250) + "@example.com", "too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateEmail(tt.email, true)
			assert.False(t, result.IsValid)
			assert.Contains(t, result.Message, tt.want)
			assert.Empty(t, result.Phonetic)
		})
	}
}

func TestValidateEmail_CorrectsDomainTypos(t *testing.T) {
	tests := map[string]string{
		"user@gamil.com":    "user@gmail.com",
		"user@gmial.com":    "user@gmail.com",
		"user@yaho.com":     "user@yahoo.com",
		"user@yahooo.com":   "user@yahoo.com",
		"user@hotmal.com":   "user@hotmail.com",
		"user@outllook.com": "user@outlook.com",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			result := ValidateEmail(in, false)
			require.True(t, result.IsValid)
			assert.Equal(t, want, result.Normalized)
			assert.Contains(t, result.Message, "corrected")
			assert.Contains(t, result.Message, want[strings.Index(want, "@")+1:])
		})
	}
}

func TestValidateEmail_PhoneticFollowsCharacterOrder(t *testing.T) {
	result := ValidateEmail("ab@cd.com", true)
	require.True(t, result.IsValid)
	assert.Equal(t, "Alpha, Bravo, at, Charlie, Delta, dot, Charlie, Oscar, Mike", result.Phonetic)

	last := -1
	for _, word := range []string{"Alpha", "Bravo", "at", "dot"} {
		idx := strings.Index(result.Phonetic, word)
		require.Greater(t, idx, last, "word %q out of order", word)
		last = idx
	}
}

func TestValidateEmail_PhoneticUsesCorrectedDomain(t *testing.T) {
	result := ValidateEmail("a@gamil.com", true)
	require.True(t, result.IsValid)
	assert.Equal(t, "Alpha, at, Golf, Mike, Alpha, India, Lima, dot, Charlie, Oscar, Mike", result.Phonetic)
}

func TestValidateEmail_Idempotent(t *testing.T) {
	for _, in := range []string{"Test@Example.com", "user@gamil.com", " first.last@company.org "} {
		once := ValidateEmail(in, false)
		require.True(t, once.IsValid)
		twice := ValidateEmail(once.Normalized, false)
		require.True(t, twice.IsValid)
		assert.Equal(t, once.Normalized, twice.Normalized)
		assert.Equal(t, "Email is valid", twice.Message)
	}
}

func TestValidationResult_Err(t *testing.T) {
	assert.NoError(t, ValidateEmail("test@example.com", false).Err("email"))

	err := ValidateEmail("nope", false).Err("email")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "email", vErr.Field)
}
