// Package dateref resolves free-text Vietnamese and English day references
// ("mai", "thứ 5", "ngày 21 tháng 12", "21/12/2025") into calendar dates or
// day markers. Resolution is a pure function of the text and an injected now.
package dateref

import (
	"regexp"
	"strconv"
	"time"
)

// Kind classifies how a DateReference was obtained.
type Kind int

const (
	// Unspecified means no day reference was found; Date is today.
	Unspecified Kind = iota
	// AbsoluteDate is an explicit calendar date.
	AbsoluteDate
	// RelativeDay is an offset from today ("mai", "hôm qua").
	RelativeDay
	// NamedWeekday is a day marker ("thứ 5") without a concrete date.
	NamedWeekday
)

func (k Kind) String() string {
	switch k {
	case AbsoluteDate:
		return "absolute_date"
	case RelativeDay:
		return "relative_day"
	case NamedWeekday:
		return "named_weekday"
	default:
		return "unspecified"
	}
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// DateReference is the result of resolving a day reference.
type DateReference struct {
	Kind Kind `json:"kind" yaml:"kind"`
	// Date is midnight of the resolved day in now's location.
	// It is zero for NamedWeekday.
	Date time.Time `json:"date,omitempty" yaml:"date,omitempty"`
	// Weekday is the day of the week of Date, or the named day.
	Weekday time.Weekday `json:"weekday" yaml:"weekday"`
	// Offset is the day offset from today for RelativeDay.
	Offset int    `json:"offset,omitempty" yaml:"offset,omitempty"`
	Label  string `json:"label" yaml:"label"`
}

// HasDate reports whether r carries a concrete calendar date.
func (r DateReference) HasDate() bool {
	return r.Kind != NamedWeekday
}

// DateFor composes r with a week shift relative to now. A named weekday maps
// to that day inside the Monday-based week of now moved by weekShift weeks;
// dated references move by 7*weekShift days.
func (r DateReference) DateFor(now time.Time, weekShift int) time.Time {
	if !r.HasDate() {
		today := startOfDay(now)
		monday := today.AddDate(0, 0, -mondayIndex(today.Weekday()))
		return monday.AddDate(0, 0, 7*weekShift+mondayIndex(r.Weekday))
	}
	date := r.Date
	if date.IsZero() {
		date = startOfDay(now)
	}
	return date.AddDate(0, 0, 7*weekShift)
}

var (
	// "ngày 21 tháng 12 [năm 2025]", matched on folded text.
	longDatePattern = regexp.MustCompile(`ngay\s+(\d{1,2})\s+thang\s+(\d{1,2})(?:\s+nam\s+(\d{4}))?`)
	// "21/12/2025", "21-12-2025"; neighbours are checked by hand.
	fullDatePattern = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{4})`)
	// "21/12"; neighbours are checked by hand since RE2 has no lookaround.
	shortDatePattern = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})`)

	// Weekday names on folded text.
	vnWeekdayPattern = regexp.MustCompile(`(?:^|[^\pL\pN])(?:thu\s*([2-7]|hai|ba|tu|nam|sau|bay)|t([2-7])|chu\s*nhat|cn)(?:[^\pL\pN]|$)`)
	enWeekdayPattern = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
)

// relativeKeywords is checked in order; the first keyword present wins.
var relativeKeywords = []struct {
	keyword string
	offset  int
}{
	{"hôm qua", -1},
	{"hom qua", -1},
	{"yesterday", -1},
	{"hôm kia", -2},
	{"hom kia", -2},
	{"mai", 1},
	{"tomorrow", 1},
	{"mốt", 2},
	{"mot", 2},
	{"kia", 3},
	{"hôm nay", 0},
	{"hom nay", 0},
	{"today", 0},
}

var relativePatterns = compileKeywords()

func compileKeywords() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(relativeKeywords))
	for i, kw := range relativeKeywords {
		patterns[i] = regexp.MustCompile(`(?:^|[^\pL\pN])` + regexp.QuoteMeta(kw.keyword) + `(?:[^\pL\pN]|$)`)
	}
	return patterns
}

var vnWeekdayWords = map[string]time.Weekday{
	"2": time.Monday, "hai": time.Monday,
	"3": time.Tuesday, "ba": time.Tuesday,
	"4": time.Wednesday, "tu": time.Wednesday,
	"5": time.Thursday, "nam": time.Thursday,
	"6": time.Friday, "sau": time.Friday,
	"7": time.Saturday, "bay": time.Saturday,
}

var enWeekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// Resolve parses text into a DateReference. Rules are tried in a fixed
// order and a rule whose match is not a real calendar date falls through to
// the next one. Resolve never fails; with no match it returns Unspecified
// with today's date.
func Resolve(text string, now time.Time) DateReference {
	lower := normalize(text)
	folded := Fold(lower)
	today := startOfDay(now)

	if date, ok := matchLongDate(folded, today); ok {
		return absolute(date)
	}
	if date, ok := matchFullDate(lower, today); ok {
		return absolute(date)
	}
	if date, ok := matchShortDate(lower, today); ok {
		return absolute(date)
	}
	if offset, ok := matchRelative(lower); ok {
		date := today.AddDate(0, 0, offset)
		return DateReference{
			Kind:    RelativeDay,
			Date:    date,
			Weekday: date.Weekday(),
			Offset:  offset,
			Label:   relativeLabel(offset, date),
		}
	}
	if w, ok := matchWeekday(folded); ok {
		return DateReference{
			Kind:    NamedWeekday,
			Weekday: w,
			Label:   weekdayLabel(w),
		}
	}
	return DateReference{
		Kind:    Unspecified,
		Date:    today,
		Weekday: today.Weekday(),
		Label:   relativeLabel(0, today),
	}
}

func absolute(date time.Time) DateReference {
	return DateReference{
		Kind:    AbsoluteDate,
		Date:    date,
		Weekday: date.Weekday(),
		Label:   absoluteLabel(date),
	}
}

func matchLongDate(folded string, today time.Time) (time.Time, bool) {
	for _, m := range longDatePattern.FindAllStringSubmatch(folded, -1) {
		year := today.Year()
		if m[3] != "" {
			year = atoi(m[3])
		}
		if date, ok := makeDate(year, atoi(m[2]), atoi(m[1]), today.Location()); ok {
			return date, true
		}
	}
	return time.Time{}, false
}

func matchFullDate(lower string, today time.Time) (time.Time, bool) {
	for _, loc := range fullDatePattern.FindAllStringSubmatchIndex(lower, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && isDigit(lower[start-1]) {
			continue
		}
		if end < len(lower) && isDigit(lower[end]) {
			continue
		}
		day := atoi(lower[loc[2]:loc[3]])
		month := atoi(lower[loc[4]:loc[5]])
		year := atoi(lower[loc[6]:loc[7]])
		if date, ok := makeDate(year, month, day, today.Location()); ok {
			return date, true
		}
	}
	return time.Time{}, false
}

func matchShortDate(lower string, today time.Time) (time.Time, bool) {
	for _, loc := range shortDatePattern.FindAllStringSubmatchIndex(lower, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && isDateChar(lower[start-1]) {
			continue
		}
		if end < len(lower) && isDigit(lower[end]) {
			continue
		}
		if end+1 < len(lower) && isSeparator(lower[end]) && isDigit(lower[end+1]) {
			continue
		}
		day := atoi(lower[loc[2]:loc[3]])
		month := atoi(lower[loc[4]:loc[5]])
		if date, ok := makeDate(today.Year(), month, day, today.Location()); ok {
			return date, true
		}
	}
	return time.Time{}, false
}

func matchRelative(lower string) (int, bool) {
	for i, p := range relativePatterns {
		if p.MatchString(lower) {
			return relativeKeywords[i].offset, true
		}
	}
	return 0, false
}

func matchWeekday(folded string) (time.Weekday, bool) {
	if m := vnWeekdayPattern.FindStringSubmatch(folded); m != nil {
		word := m[1]
		if word == "" {
			word = m[2]
		}
		if word == "" {
			return time.Sunday, true
		}
		return vnWeekdayWords[word], true
	}
	if m := enWeekdayPattern.FindStringSubmatch(folded); m != nil {
		return enWeekdays[m[1]], true
	}
	return 0, false
}

// makeDate builds the date and rejects values time.Date would normalise,
// such as 31/02.
func makeDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1 {
		return time.Time{}, false
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return time.Time{}, false
	}
	return date, true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// mondayIndex returns 0 for Monday through 6 for Sunday.
func mondayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

func isDigit(c byte) bool     { return c >= '0' && c <= '9' }
func isSeparator(c byte) bool { return c == '/' || c == '-' }
func isDateChar(c byte) bool  { return isDigit(c) || isSeparator(c) }
