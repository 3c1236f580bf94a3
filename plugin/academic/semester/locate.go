package semester

import (
	"time"

	"github.com/hrygo/tvuschedule/store"
)

// WeekStatus describes where a date falls relative to the published weeks.
type WeekStatus string

const (
	StatusInSemester      WeekStatus = "in_semester"
	StatusNotStarted      WeekStatus = "not_started"
	StatusEnded           WeekStatus = "ended"
	StatusNoClassThisWeek WeekStatus = "no_class_this_week"
	StatusUnknown         WeekStatus = "unknown"
)

// WeekLocation is the week chosen for a date from the portal's week list.
type WeekLocation struct {
	Week   int             `json:"week" yaml:"week"`
	Status WeekStatus      `json:"status" yaml:"status"`
	Info   *store.WeekInfo `json:"info,omitempty" yaml:"info,omitempty"`
}

// LocateWeek finds the published week containing date. Before the first
// week it answers the first week as not started, after the last week it
// answers week 0 as ended, and in a gap between weeks it answers the first
// week with StatusNoClassThisWeek. Weeks without a date range are ignored.
func LocateWeek(weeks []*store.WeekInfo, date time.Time) WeekLocation {
	var dated []*store.WeekInfo
	for _, w := range weeks {
		if w != nil && w.HasRange() {
			dated = append(dated, w)
		}
	}
	if len(dated) == 0 {
		return WeekLocation{Status: StatusUnknown}
	}

	day := dayNumber(date)
	first, last := dated[0], dated[0]
	for _, w := range dated {
		if day >= dayNumber(w.Start) && day <= dayNumber(w.End) {
			return WeekLocation{Week: w.Week, Status: StatusInSemester, Info: w}
		}
		if dayNumber(w.Start) < dayNumber(first.Start) {
			first = w
		}
		if dayNumber(w.End) > dayNumber(last.End) {
			last = w
		}
	}

	switch {
	case day < dayNumber(first.Start):
		return WeekLocation{Week: first.Week, Status: StatusNotStarted, Info: first}
	case day > dayNumber(last.End):
		return WeekLocation{Week: 0, Status: StatusEnded}
	default:
		return WeekLocation{Week: dated[0].Week, Status: StatusNoClassThisWeek, Info: dated[0]}
	}
}
