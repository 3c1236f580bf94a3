// Package semester maps calendar dates onto TVU semesters and
// week-of-semester numbers.
//
// A semester ID is the opening year of the academic year followed by the
// term digit: "20251" is term 1 of 2025-2026, which starts on 1 September
// 2025, while "20252" and "20253" start on 1 February and 1 June 2026.
// Auto-detection from a date uses the same convention, so an explicit ID and
// a detected one always agree on the start date.
package semester

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hrygo/tvuschedule/internal/errors"
)

// Term numbers.
const (
	TermFall   = 1
	TermSpring = 2
	TermSummer = 3
)

// ID identifies one semester.
type ID struct {
	Year int `json:"year" yaml:"year"`
	Term int `json:"term" yaml:"term"`
}

// String renders the portal form, e.g. "20251".
func (id ID) String() string {
	return fmt.Sprintf("%04d%d", id.Year, id.Term)
}

// MarshalText renders the ID as its portal string.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// Valid reports whether the ID has a four-digit year and a known term.
func (id ID) Valid() bool {
	return id.Year >= 1000 && id.Year <= 9999 && id.Term >= TermFall && id.Term <= TermSummer
}

// ParseID parses "YYYYT" where T is 1, 2 or 3.
func ParseID(s string) (ID, error) {
	if len(s) != 5 {
		return ID{}, errors.InvalidArgument(fmt.Sprintf("semester id %q must be YYYY followed by a term digit", s))
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return ID{}, errors.Wrap(err, errors.ErrCodeInvalidArgument, fmt.Sprintf("semester id %q has a bad year", s))
	}
	term, err := strconv.Atoi(s[4:])
	if err != nil {
		return ID{}, errors.Wrap(err, errors.ErrCodeInvalidArgument, fmt.Sprintf("semester id %q has a bad term", s))
	}
	id := ID{Year: year, Term: term}
	if !id.Valid() {
		return ID{}, errors.InvalidArgument(fmt.Sprintf("semester id %q is out of range", s))
	}
	return id, nil
}

// DetectID infers the semester from the month of date: August to December
// is term 1 of the same year, January to May is term 2 and June to July is
// term 3 of the academic year that opened the previous calendar year.
func DetectID(date time.Time) ID {
	switch m := date.Month(); {
	case m >= time.August:
		return ID{Year: date.Year(), Term: TermFall}
	case m <= time.May:
		return ID{Year: date.Year() - 1, Term: TermSpring}
	default:
		return ID{Year: date.Year() - 1, Term: TermSummer}
	}
}

// boundary is one row of the semester start table.
type boundary struct {
	month    time.Month
	yearDiff int
	baseWeek int
}

var boundaries = map[int]boundary{
	TermFall:   {month: time.September, yearDiff: 0, baseWeek: 5},
	TermSpring: {month: time.February, yearDiff: 1, baseWeek: 1},
	TermSummer: {month: time.June, yearDiff: 1, baseWeek: 1},
}

// Start returns the first day of the semester in loc and the week number
// that day carries.
func (id ID) Start(loc *time.Location) (time.Time, int) {
	if loc == nil {
		loc = time.UTC
	}
	b := boundaries[id.Term]
	return time.Date(id.Year+b.yearDiff, b.month, 1, 0, 0, 0, 0, loc), b.baseWeek
}

// DayInWeek returns the first day named w inside week number week of the
// semester. Weeks are the same 7-day blocks from Start that ComputeWeek
// counts, so ComputeWeek maps the result back to week unless week falls
// below the clamp.
func (id ID) DayInWeek(week int, w time.Weekday, loc *time.Location) time.Time {
	start, baseWeek := id.Start(loc)
	first := start.AddDate(0, 0, 7*(week-baseWeek))
	return first.AddDate(0, 0, (int(w)-int(first.Weekday())+7)%7)
}

// SemesterWeek is the result of a week calculation.
type SemesterWeek struct {
	SemesterID ID        `json:"semester_id" yaml:"semester_id"`
	WeekNumber int       `json:"week_number" yaml:"week_number"`
	Start      time.Time `json:"semester_start" yaml:"semester_start"`
	// Explicit is true when the caller supplied the semester ID.
	Explicit bool `json:"explicit" yaml:"explicit"`
}

// ComputeWeek returns the semester and week-of-semester for date. An empty
// explicitID means the semester is detected from date. The week number is
// baseWeek + floor(days since start / 7), never below 1.
func ComputeWeek(date time.Time, explicitID string) (SemesterWeek, error) {
	id := DetectID(date)
	explicit := explicitID != ""
	if explicit {
		parsed, err := ParseID(explicitID)
		if err != nil {
			return SemesterWeek{}, err
		}
		id = parsed
	}

	start, baseWeek := id.Start(date.Location())
	week := baseWeek + floorDiv(daysBetween(start, date), 7)
	if week < 1 {
		week = 1
	}
	return SemesterWeek{
		SemesterID: id,
		WeekNumber: week,
		Start:      start,
		Explicit:   explicit,
	}, nil
}

// daysBetween counts calendar days from a to b, ignoring clock time and
// DST so that a 23-hour day still counts as one.
func daysBetween(a, b time.Time) int {
	return dayNumber(b) - dayNumber(a)
}

func dayNumber(t time.Time) int {
	return int(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
