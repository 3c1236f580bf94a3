package timetable

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hrygo/tvuschedule/plugin/academic/dateref"
	"github.com/hrygo/tvuschedule/store"
)

// FormattedResult is the classes of one day, ready for display.
// An empty Entries slice with Success set is the normal "no classes" state.
type FormattedResult struct {
	Success bool                `json:"success" yaml:"success"`
	Label   string              `json:"label" yaml:"label"`
	Day     store.DayOfWeek     `json:"day" yaml:"day"`
	Entries []*store.ClassEntry `json:"entries" yaml:"entries"`
	Message string              `json:"message" yaml:"message"`
}

// DaySchedule is one non-empty day of a WeekResult.
type DaySchedule struct {
	Day     store.DayOfWeek     `json:"day" yaml:"day"`
	Label   string              `json:"label" yaml:"label"`
	Entries []*store.ClassEntry `json:"entries" yaml:"entries"`
}

// WeekResult is a week of classes grouped Monday to Sunday.
type WeekResult struct {
	Success bool           `json:"success" yaml:"success"`
	Label   string         `json:"label" yaml:"label"`
	Days    []*DaySchedule `json:"days" yaml:"days"`
	Total   int            `json:"total" yaml:"total"`
	Message string         `json:"message" yaml:"message"`
}

// FilterAndFormat keeps the entries that fall on targetDay, ordered by start
// time. Output depends only on the set of entries, not on their order.
func FilterAndFormat(entries []*store.ClassEntry, targetDay store.DayOfWeek, label string) *FormattedResult {
	day := make([]*store.ClassEntry, 0)
	for _, e := range normalizeEntries(entries) {
		if e.DayOfWeek == targetDay {
			day = append(day, e)
		}
	}
	return &FormattedResult{
		Success: true,
		Label:   label,
		Day:     targetDay,
		Entries: day,
		Message: formatDayMessage(label, day),
	}
}

// FormatWeek groups entries by day in Monday to Sunday order, skipping days
// without classes.
func FormatWeek(entries []*store.ClassEntry, label string) *WeekResult {
	byDay := make(map[store.DayOfWeek][]*store.ClassEntry)
	normalized := normalizeEntries(entries)
	for _, e := range normalized {
		byDay[e.DayOfWeek] = append(byDay[e.DayOfWeek], e)
	}

	result := &WeekResult{
		Success: true,
		Label:   label,
		Days:    make([]*DaySchedule, 0, len(byDay)),
		Total:   len(normalized),
	}
	for _, day := range store.WeekDays {
		if len(byDay[day]) == 0 {
			continue
		}
		result.Days = append(result.Days, &DaySchedule{
			Day:     day,
			Label:   dateref.DayLabel(day.Weekday()),
			Entries: byDay[day],
		})
	}
	result.Message = formatWeekMessage(label, result.Days)
	return result
}

// normalizeEntries drops unusable entries, sorts the rest into a total
// order and collapses duplicates by (day, start, subject, room).
func normalizeEntries(entries []*store.ClassEntry) []*store.ClassEntry {
	valid := make([]*store.ClassEntry, 0, len(entries))
	for _, e := range entries {
		if e == nil || !e.DayOfWeek.Valid() || !e.StartTime.Valid() || !e.EndTime.Valid() || e.EndTime <= e.StartTime {
			continue
		}
		valid = append(valid, e)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return lessEntry(valid[i], valid[j])
	})

	type key struct {
		day     store.DayOfWeek
		start   store.ClockTime
		subject string
		room    string
	}
	seen := make(map[key]bool, len(valid))
	out := valid[:0]
	for _, e := range valid {
		k := key{e.DayOfWeek, e.StartTime, e.Subject, e.Room}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

func lessEntry(a, b *store.ClassEntry) bool {
	if a.DayOfWeek != b.DayOfWeek {
		return a.DayOfWeek.Index() < b.DayOfWeek.Index()
	}
	if a.StartTime != b.StartTime {
		return a.StartTime < b.StartTime
	}
	if a.EndTime != b.EndTime {
		return a.EndTime < b.EndTime
	}
	if a.Subject != b.Subject {
		return a.Subject < b.Subject
	}
	if a.Room != b.Room {
		return a.Room < b.Room
	}
	if a.Teacher != b.Teacher {
		return a.Teacher < b.Teacher
	}
	return a.Notes < b.Notes
}

func formatDayMessage(label string, entries []*store.ClassEntry) string {
	if len(entries) == 0 {
		return emptyMessage(label)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Lịch học %s:\n", label)
	for i, e := range entries {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, formatEntry(e))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatWeekMessage(label string, days []*DaySchedule) string {
	if len(days) == 0 {
		return emptyMessage(label)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Lịch học %s:\n", label)
	for _, d := range days {
		fmt.Fprintf(&b, "\n%s:\n", d.Label)
		for _, e := range d.Entries {
			fmt.Fprintf(&b, "- %s\n", formatEntry(e))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatEntry(e *store.ClassEntry) string {
	parts := []string{fmt.Sprintf("%s - %s", e.StartTime, e.EndTime), e.Subject}
	if e.Room != "" {
		parts = append(parts, "Phòng "+e.Room)
	}
	if e.Teacher != "" {
		parts = append(parts, "GV: "+e.Teacher)
	}
	return strings.Join(parts, " | ")
}

func emptyMessage(label string) string {
	return capitalize(label) + " bạn không có lớp nào."
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
