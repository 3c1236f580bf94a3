package tvu

import (
	"fmt"

	"github.com/hrygo/tvuschedule/store"
)

// PeriodMinutes is the length of one class period (tiết).
const PeriodMinutes = 50

// periodStarts maps a period number to its start time. Periods 1-5 run in
// the morning from 07:00, periods 6-13 from 13:00 after the lunch break.
var periodStarts = map[int]store.ClockTime{
	1:  store.NewClockTime(7, 0),
	2:  store.NewClockTime(8, 0),
	3:  store.NewClockTime(9, 0),
	4:  store.NewClockTime(10, 0),
	5:  store.NewClockTime(11, 0),
	6:  store.NewClockTime(13, 0),
	7:  store.NewClockTime(14, 0),
	8:  store.NewClockTime(15, 0),
	9:  store.NewClockTime(16, 0),
	10: store.NewClockTime(17, 0),
	11: store.NewClockTime(18, 0),
	12: store.NewClockTime(19, 0),
	13: store.NewClockTime(20, 0),
}

// PeriodSpan converts a starting period and a period count into clock times.
// The class ends 50 minutes after the start of its last period.
func PeriodSpan(first, count int) (store.ClockTime, store.ClockTime, error) {
	if count < 1 {
		return 0, 0, fmt.Errorf("period count %d must be positive", count)
	}
	start, ok := periodStarts[first]
	if !ok {
		return 0, 0, fmt.Errorf("start period %d out of range", first)
	}
	last := first + count - 1
	lastStart, ok := periodStarts[last]
	if !ok {
		return 0, 0, fmt.Errorf("end period %d out of range", last)
	}
	return start, lastStart + PeriodMinutes, nil
}
