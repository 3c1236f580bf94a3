// Package timezone provides timezone utilities for the timetable service.
//
// This package handles timezone parsing, day boundaries and the dd/mm/yyyy
// date format used in Vietnamese timetables.
package timezone

import (
	"fmt"
	"time"

	// Embedded zoneinfo keeps Asia/Ho_Chi_Minh resolvable on slim images.
	_ "time/tzdata"
)

const (
	// TimezoneUTC is the UTC timezone identifier
	TimezoneUTC = "UTC"

	// TimezoneAsiaHoChiMinh is the Indochina Time timezone used by TVU.
	TimezoneAsiaHoChiMinh = "Asia/Ho_Chi_Minh"

	// DateLayout is the day/month/year layout used in labels and portal headers.
	DateLayout = "02/01/2006"
)

// UTC is the coordinated universal time timezone
var UTC = time.UTC

// ParseTimezone parses an IANA timezone identifier (e.g., "Asia/Ho_Chi_Minh").
// If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == TimezoneUTC {
		return UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	return loc, nil
}

// MustParseTimezone parses a timezone or panics if invalid.
// Use this for constants that are known to be valid at compile time.
func MustParseTimezone(tz string) *time.Location {
	loc, err := ParseTimezone(tz)
	if err != nil {
		panic(err)
	}
	return loc
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	_, err := ParseTimezone(tz)
	return err == nil
}

// StartOfDay returns the start of the day (00:00:00) in the given timezone.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = t.Location()
	}
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
}

// FormatDate formats t as dd/mm/yyyy.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a dd/mm/yyyy (or d/m/yyyy) date at midnight in tz.
func ParseDate(s string, tz *time.Location) (time.Time, error) {
	if tz == nil {
		tz = UTC
	}
	t, err := time.ParseInLocation("2/1/2006", s, tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want dd/mm/yyyy: %w", s, err)
	}
	return t, nil
}

// LocationAsiaHoChiMinh is the pre-loaded Asia/Ho_Chi_Minh location
var LocationAsiaHoChiMinh = MustParseTimezone(TimezoneAsiaHoChiMinh)
