package dateref

import (
	"fmt"
	"time"
)

const dateLayout = "02/01/2006"

// relativeLabels maps a day offset to its Vietnamese display word.
var relativeLabels = map[int]string{
	-2: "hôm kia",
	-1: "hôm qua",
	0:  "hôm nay",
	1:  "mai",
	2:  "ngày mốt",
	3:  "ngày kia",
}

// weekdayLabels is indexed by time.Weekday.
var weekdayLabels = [7]string{
	"Chủ nhật",
	"Thứ 2",
	"Thứ 3",
	"Thứ 4",
	"Thứ 5",
	"Thứ 6",
	"Thứ 7",
}

// DayLabel returns the capitalised Vietnamese name of w, e.g. "Thứ 5".
func DayLabel(w time.Weekday) string {
	return weekdayLabels[w%7]
}

// weekdayLabel returns the inline form used in sentences, e.g. "thứ 5".
func weekdayLabel(w time.Weekday) string {
	if w == time.Sunday {
		return "chủ nhật"
	}
	return fmt.Sprintf("thứ %d", int(w)+1)
}

func relativeLabel(offset int, date time.Time) string {
	word, ok := relativeLabels[offset]
	if !ok {
		return absoluteLabel(date)
	}
	return fmt.Sprintf("%s (%s)", word, date.Format(dateLayout))
}

func absoluteLabel(date time.Time) string {
	return "ngày " + date.Format(dateLayout)
}

// WithDate appends a concrete date to a day-marker label: "thứ 5 (01/01/2026)".
func WithDate(label string, date time.Time) string {
	return fmt.Sprintf("%s (%s)", label, date.Format(dateLayout))
}
