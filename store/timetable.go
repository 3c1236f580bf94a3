package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayOfWeek is the day a class takes place on.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

// WeekDays lists the days in presentation order, Monday first.
var WeekDays = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Index returns the position of the day in WeekDays, or -1 if the day is not valid.
func (d DayOfWeek) Index() int {
	for i, day := range WeekDays {
		if day == d {
			return i
		}
	}
	return -1
}

// Valid reports whether d is one of the seven known days.
func (d DayOfWeek) Valid() bool {
	return d.Index() >= 0
}

// Weekday converts d to a time.Weekday. Invalid days map to time.Monday.
func (d DayOfWeek) Weekday() time.Weekday {
	idx := d.Index()
	if idx < 0 {
		return time.Monday
	}
	return time.Weekday((idx + 1) % 7)
}

// DayOfWeekFromWeekday converts a time.Weekday to a DayOfWeek.
func DayOfWeekFromWeekday(w time.Weekday) DayOfWeek {
	return WeekDays[(int(w)+6)%7]
}

// DayOfWeekFromPortalCode maps the portal's "thu" number to a DayOfWeek.
func DayOfWeekFromPortalCode(code int) (DayOfWeek, error) {
	switch {
	case code >= 2 && code <= 7:
		return WeekDays[code-2], nil
	case code == 8 || code == 1:
		return Sunday, nil
	default:
		return "", fmt.Errorf("day code %d out of range", code)
	}
}

// ClockTime is a local time of day, in minutes since midnight.
type ClockTime int

// MinutesPerDay bounds valid ClockTime values.
const MinutesPerDay = 24 * 60

// NewClockTime returns the ClockTime for hour:minute.
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClockTime parses "HH:MM", "H:MM" and "HH:MM:SS" (seconds are ignored).
func ParseClockTime(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return NewClockTime(hour, minute), nil
}

// Valid reports whether c lies in [00:00, 24:00).
func (c ClockTime) Valid() bool {
	return c >= 0 && c < MinutesPerDay
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On returns the instant at which c falls on the calendar day of date,
// in date's location.
func (c ClockTime) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour(), c.Minute(), 0, 0, date.Location())
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClockTime(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ClassEntry is one scheduled class occurrence within a semester week.
type ClassEntry struct {
	DayOfWeek DayOfWeek `json:"day_of_week" yaml:"day_of_week"`
	StartTime ClockTime `json:"start_time" yaml:"start_time"`
	EndTime   ClockTime `json:"end_time" yaml:"end_time"`
	Subject   string    `json:"subject" yaml:"subject"`
	Room      string    `json:"room" yaml:"room"`
	Teacher   string    `json:"teacher,omitempty" yaml:"teacher,omitempty"`
	// Notes carries the class-period span, e.g. "Tiết 1-3".
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// WeekInfo is the header of one semester week as published by the portal.
type WeekInfo struct {
	Week       int       `json:"week" yaml:"week"`
	Label      string    `json:"label" yaml:"label"`
	Start      time.Time `json:"start" yaml:"start"`
	End        time.Time `json:"end" yaml:"end"`
	ClassCount int       `json:"class_count" yaml:"class_count"`
}

// HasRange reports whether both ends of the week's date range are known.
func (w *WeekInfo) HasRange() bool {
	return !w.Start.IsZero() && !w.End.IsZero()
}

// SemesterInfo identifies one semester offered by the portal.
type SemesterInfo struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}
