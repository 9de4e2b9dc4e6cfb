// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMisconfigured marks a fatal startup configuration problem.
var ErrMisconfigured = errors.New("config: misconfigured")

// Config holds application configuration. It is built once at process start
// and handed to constructors; nothing reads the environment after Load.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Cal.com scheduling provider
	CalcomAPIKey         string
	CalcomEventTypeIDRaw string
	CalcomEventTypeID    int
	CalcomBaseURL        string
	CalcomTimeout        time.Duration

	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	IdempotencyTTL time.Duration

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	rawEventType := strings.TrimSpace(getEnv("CALCOM_EVENT_TYPE_ID", ""))
	eventTypeID, _ := strconv.Atoi(rawEventType)

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CalcomAPIKey:         strings.TrimSpace(getEnv("CALCOM_API_KEY", "")),
		CalcomEventTypeIDRaw: rawEventType,
		CalcomEventTypeID:    eventTypeID,
		CalcomBaseURL:        getEnv("CALCOM_BASE_URL", "https://api.cal.com"),
		CalcomTimeout:        getEnvAsDuration("CALCOM_TIMEOUT", 15*time.Second),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		IdempotencyTTL: getEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// Validate reports missing or malformed required settings. The API server
// refuses to start when it returns an error.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrMisconfigured)
	}
	var problems []string
	if c.CalcomAPIKey == "" {
		problems = append(problems, "CALCOM_API_KEY is required")
	}
	switch {
	case c.CalcomEventTypeIDRaw == "":
		problems = append(problems, "CALCOM_EVENT_TYPE_ID is required")
	case c.CalcomEventTypeID <= 0:
		problems = append(problems, fmt.Sprintf("CALCOM_EVENT_TYPE_ID must be a positive integer, got %q", c.CalcomEventTypeIDRaw))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrMisconfigured, strings.Join(problems, "; "))
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
