package utils

import (
	"fmt"
	"strings"
	"time"
)

// ParseSince parses a lower time bound given either as an RFC3339 timestamp or as a positive
// duration looking back from now ("90m", "24h").
func ParseSince(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither an RFC3339 time nor a duration", value)
	}
	if d <= 0 {
		return time.Time{}, fmt.Errorf("look-back duration must be positive, got %s", value)
	}
	return now.Add(-d), nil
}
