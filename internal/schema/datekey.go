package schema

import (
	"fmt"
	"regexp"
	"time"
)

// DateKeyLayout is the calendar-day format used as the logical
// partition key for all entities. Local time, not a timestamp.
const DateKeyLayout = "2006-01-02"

var dateKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// DateKey returns the calendar-day key for t in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// ValidateDateKey checks that s is a well-formed YYYY-MM-DD day key.
func ValidateDateKey(s string) error {
	if !dateKeyPattern.MatchString(s) {
		return fmt.Errorf("date key must be YYYY-MM-DD (got %q)", s)
	}
	if _, err := time.Parse(DateKeyLayout, s); err != nil {
		return fmt.Errorf("invalid date key %q: %w", s, err)
	}
	return nil
}

// DaysAgo returns the day key for n days before today in local time.
// Used to bound pull windows.
func DaysAgo(n int) string {
	return time.Now().AddDate(0, 0, -n).Format(DateKeyLayout)
}
