// Package dates provides canonical date/datetime parsing and the storage
// format shared by every date column.
//
// Dates are stored as UTC text in DBFormat so lexical comparison in SQL
// matches chronological order.
package dates

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DBFormat is the layout of every stored datetime.
const DBFormat = "2006-01-02 15:04:05"

var (
	dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// IsValidDate checks if a string is a valid YYYY-MM-DD date.
func IsValidDate(s string) bool {
	if !dateRegex.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if !IsValidDate(s) {
		return time.Time{}, fmt.Errorf("invalid date: %q", s)
	}
	return time.Parse("2006-01-02", s)
}

// IsValidDatetime checks if a string is a valid datetime.
func IsValidDatetime(s string) bool {
	_, err := ParseDatetime(s)
	return err == nil
}

// ParseDatetime parses a datetime in one of the accepted formats:
// - RFC3339 (e.g. 2025-01-01T10:30:00Z, 2025-06-15T14:00:00+05:00)
// - YYYY-MM-DDTHH:MM
// - YYYY-MM-DDTHH:MM:SS
// - YYYY-MM-DD HH:MM:SS (DBFormat)
// - YYYY-MM-DD (midnight UTC)
func ParseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("invalid datetime: empty")
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04",
		"2006-01-02T15:04:05",
		DBFormat,
		"2006-01-02",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime: %q", s)
}

// FormatDB renders t in DBFormat, converted to UTC.
func FormatDB(t time.Time) string {
	return t.UTC().Format(DBFormat)
}

// ParseDB parses a stored datetime.
func ParseDB(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DBFormat, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored datetime %q: %w", s, err)
	}
	return t, nil
}

// Normalize parses any accepted datetime string and returns it in DBFormat.
func Normalize(s string) (string, error) {
	t, err := ParseDatetime(s)
	if err != nil {
		return "", err
	}
	return FormatDB(t), nil
}

// ParseDateArg parses a CLI date argument which can be:
// - "now" or empty (now)
// - "today", "yesterday", "tomorrow" (relative dates)
// - any format accepted by ParseDatetime
func ParseDateArg(arg string, now time.Time) (time.Time, error) {
	dateArg := strings.ToLower(strings.TrimSpace(arg))
	switch dateArg {
	case "", "now", "today":
		return now, nil
	case "yesterday":
		return now.AddDate(0, 0, -1), nil
	case "tomorrow":
		return now.AddDate(0, 0, 1), nil
	default:
		parsed, err := ParseDatetime(arg)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date format '%s', use YYYY-MM-DD, RFC3339 or now/today/yesterday/tomorrow", arg)
		}
		return parsed, nil
	}
}
