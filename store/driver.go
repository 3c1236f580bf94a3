package store

import (
	"context"
	"time"
)

// TimetableDriver is an interface for the remote timetable source.
// It contains all methods that a portal adapter should implement.
//
// An empty week is returned as an empty slice and a nil error. Authentication
// or transport failures are returned as errors and never as an empty slice.
type TimetableDriver interface {
	// ListSemesters returns the semesters the portal has timetables for,
	// most recent first.
	ListSemesters(ctx context.Context) ([]*SemesterInfo, error)

	// FetchWeekSchedule returns the class entries of one semester week.
	FetchWeekSchedule(ctx context.Context, semesterID string, week int) ([]*ClassEntry, error)

	// ListWeeks returns the week headers (number and date range) of the weeks
	// that have at least one class.
	ListWeeks(ctx context.Context, semesterID string) ([]*WeekInfo, error)
}

// CalendarDriver is an interface for the external calendar the timetable is
// pushed to.
type CalendarDriver interface {
	// ListEvents returns the events whose start lies in [start, end).
	ListEvents(ctx context.Context, start, end time.Time) ([]*ExternalEvent, error)

	// CreateEvent creates a single event and returns the stored copy.
	CreateEvent(ctx context.Context, create *CalendarEvent) (*ExternalEvent, error)
}
