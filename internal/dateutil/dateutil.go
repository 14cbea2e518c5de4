// Package dateutil parses the legacy text date columns. The store carries
// both YYYY-MM-DD and YYYY/MM/DD values, so every component that needs a real
// date goes through Parse instead of guessing a layout locally.
package dateutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnparseable = errors.New("unparseable date")

// Layouts is the ordered list of accepted layouts.
var Layouts = []string{
	"2006-01-02",
	"2006/01/02",
}

func Parse(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrUnparseable)
	}
	for _, layout := range Layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, raw)
}

// DaysBetween returns the absolute whole-day distance between two dates.
func DaysBetween(a, b time.Time) int {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}

// Month extracts the YYYY-MM prefix of a raw date value, normalizing the
// separator. Returns "" when the value is too short to carry a month.
func Month(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) < 7 {
		return ""
	}
	return strings.ReplaceAll(raw[:7], "/", "-")
}
