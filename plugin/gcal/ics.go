package gcal

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/hrygo/tvuschedule/store"
)

const productID = "-//hrygo//tvuschedule//VI"

// uidNamespace scopes event UIDs so re-exporting the same class gives the
// same UID and calendar apps update instead of duplicating.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://ttsv.tvu.edu.vn/tvuschedule"))

// EventUID returns the stable UID of an event, derived from its summary and start.
func EventUID(e *store.CalendarEvent) string {
	key := strings.ToLower(strings.TrimSpace(e.Summary)) + "|" + e.Start.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@tvuschedule"
}

// ExportICS renders events as an iCalendar document. stamp is written as
// DTSTAMP on every event.
func ExportICS(events []*store.CalendarEvent, name string, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, e := range events {
		if e == nil {
			continue
		}
		ev := cal.AddEvent(EventUID(e))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(e.Start)
		ev.SetEndAt(e.End)
		ev.SetSummary(e.Summary)
		if e.Location != "" {
			ev.SetLocation(e.Location)
		}
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
	}
	return cal.Serialize()
}
