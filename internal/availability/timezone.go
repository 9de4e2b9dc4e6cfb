package availability

import (
	"fmt"
	"strings"
	"time"
)

const (
	// LocalLayout is how slots are re-expressed in a caller's timezone: wall
	// clock time without an offset.
	LocalLayout = "2006-01-02T15:04:05"
	// UTCLayout is the booking submission format.
	UTCLayout = "2006-01-02T15:04:05Z"
)

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// LoadLocation resolves an IANA timezone name. Empty means UTC.
func LoadLocation(timeZone string) (*time.Location, error) {
	timeZone = strings.TrimSpace(timeZone)
	if timeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q", timeZone)
	}
	return loc, nil
}

// ToUTCInstant converts a requested start time into an absolute UTC instant.
// Handles:
//   - UTC: "2006-01-02T15:04:05Z" (timeZone ignored)
//   - explicit offset: "2006-01-02T15:04:05-05:00" (timeZone ignored)
//   - naive wall time: "2006-01-02T15:04:05", read in timeZone
func ToUTCInstant(start, timeZone string) (time.Time, error) {
	raw := strings.TrimSpace(start)
	if raw == "" {
		return time.Time{}, fmt.Errorf("start time is required")
	}

	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	if strings.HasSuffix(raw, "Z") || strings.HasSuffix(raw, "z") {
		if t, err := time.Parse("2006-01-02T15:04Z", strings.ToUpper(raw)); err == nil {
			return t.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("cannot parse start time %q", start)
	}

	loc, err := LoadLocation(timeZone)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse start time %q", start)
}

// FormatUTC renders t in the booking submission format.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(UTCLayout)
}
