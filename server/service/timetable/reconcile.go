package timetable

import (
	"log/slog"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/hrygo/tvuschedule/server/timezone"
	"github.com/hrygo/tvuschedule/store"
)

// EventKey identifies a class occurrence in an external calendar.
type EventKey struct {
	Subject string    `json:"subject" yaml:"subject"`
	Start   time.Time `json:"start" yaml:"start"`
}

// PlannedEvent is a class entry placed on its next calendar occurrence.
type PlannedEvent struct {
	Entry *store.ClassEntry `json:"entry" yaml:"entry"`
	Start time.Time         `json:"start" yaml:"start"`
	End   time.Time         `json:"end" yaml:"end"`
	Key   EventKey          `json:"key" yaml:"key"`
}

// CalendarEvent builds the create request for the external calendar.
func (p *PlannedEvent) CalendarEvent() *store.CalendarEvent {
	event := &store.CalendarEvent{
		Summary:  p.Entry.Subject,
		Location: p.Entry.Room,
		Start:    p.Start,
		End:      p.End,
	}
	if p.Entry.Teacher != "" {
		event.Description = "Giảng viên: " + p.Entry.Teacher
	}
	return event
}

// SyncPlan splits class entries into events to create and events that
// already exist.
type SyncPlan struct {
	Create []*PlannedEvent `json:"create" yaml:"create"`
	Skip   []*PlannedEvent `json:"skip" yaml:"skip"`
}

// DefaultSyncWindow returns [start of today, start of today + 7 days).
func DefaultSyncWindow(now time.Time) (time.Time, time.Time) {
	start := timezone.StartOfDay(now, now.Location())
	return start, start.AddDate(0, 0, DefaultSyncDays)
}

var rruleWeekdays = map[store.DayOfWeek]rrule.Weekday{
	store.Monday:    rrule.MO,
	store.Tuesday:   rrule.TU,
	store.Wednesday: rrule.WE,
	store.Thursday:  rrule.TH,
	store.Friday:    rrule.FR,
	store.Saturday:  rrule.SA,
	store.Sunday:    rrule.SU,
}

// NextOccurrence returns midnight of the first date on or after now's date
// that falls on day, evaluated as FREQ=WEEKLY;BYDAY=<day>.
func NextOccurrence(day store.DayOfWeek, now time.Time) time.Time {
	today := timezone.StartOfDay(now, now.Location())
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   today,
		Byweekday: []rrule.Weekday{rruleWeekdays[day]},
		Count:     1,
	})
	if err == nil {
		if next := r.After(today, true); !next.IsZero() {
			return timezone.StartOfDay(next, today.Location())
		}
	}
	diff := (int(day.Weekday()) - int(today.Weekday()) + 7) % 7
	return today.AddDate(0, 0, diff)
}

// PlanSync decides which entries need a calendar event. An entry is skipped
// when an existing event inside [windowStart, windowEnd) has a title
// containing the subject and starts in the same minute as the entry's next
// occurrence, or when an earlier entry produced the same key. Entries without
// a subject are dropped: an empty subject would match every title.
func PlanSync(toCreate []*store.ClassEntry, existing []*store.ExternalEvent, windowStart, windowEnd, now time.Time) *SyncPlan {
	inWindow := make([]*store.ExternalEvent, 0, len(existing))
	for _, ev := range existing {
		if ev == nil || ev.Start.Before(windowStart) || !ev.Start.Before(windowEnd) {
			continue
		}
		inWindow = append(inWindow, ev)
	}

	plan := &SyncPlan{
		Create: make([]*PlannedEvent, 0, len(toCreate)),
		Skip:   make([]*PlannedEvent, 0),
	}
	planned := make(map[string]bool, len(toCreate))
	for _, entry := range toCreate {
		if entry == nil || !entry.DayOfWeek.Valid() || !entry.StartTime.Valid() {
			slog.Warn("skipping unusable class entry in sync plan", "entry", entry)
			continue
		}
		if strings.TrimSpace(entry.Subject) == "" {
			slog.Warn("skipping class entry without a subject in sync plan", "day", entry.DayOfWeek, "start", entry.StartTime)
			continue
		}
		event := planEvent(entry, now)

		dedupKey := strings.ToLower(event.Key.Subject) + "|" + event.Key.Start.Format(time.RFC3339)
		if planned[dedupKey] || matchesExisting(event, inWindow) {
			plan.Skip = append(plan.Skip, event)
			continue
		}
		planned[dedupKey] = true
		plan.Create = append(plan.Create, event)
	}

	slog.Info("sync plan computed",
		"create", len(plan.Create),
		"skip", len(plan.Skip),
		"existing_in_window", len(inWindow),
	)
	return plan
}

func planEvent(entry *store.ClassEntry, now time.Time) *PlannedEvent {
	day := NextOccurrence(entry.DayOfWeek, now)
	start := entry.StartTime.On(day)
	end := start
	if entry.EndTime.Valid() && entry.EndTime > entry.StartTime {
		end = entry.EndTime.On(day)
	}
	return &PlannedEvent{
		Entry: entry,
		Start: start,
		End:   end,
		Key: EventKey{
			Subject: entry.Subject,
			Start:   start.Truncate(time.Minute),
		},
	}
}

func matchesExisting(event *PlannedEvent, existing []*store.ExternalEvent) bool {
	subject := strings.ToLower(event.Key.Subject)
	for _, ev := range existing {
		if !strings.Contains(strings.ToLower(ev.Title), subject) {
			continue
		}
		if ev.Start.Truncate(time.Minute).Equal(event.Key.Start) {
			return true
		}
	}
	return false
}
