// Package store holds the timetable and calendar shapes exchanged with the
// remote collaborators, and the Store that fronts those collaborators.
//
// Nothing here is persisted: class entries live only for the duration of one
// resolve-fetch-filter cycle.
package store

import (
	"context"
	"time"

	"github.com/hrygo/tvuschedule/internal/errors"
)

// Store provides access to the remote timetable and calendar collaborators.
type Store struct {
	timetable TimetableDriver
	calendar  CalendarDriver
}

// New creates a new instance of Store. The calendar driver is optional.
func New(timetable TimetableDriver, calendar CalendarDriver) *Store {
	return &Store{
		timetable: timetable,
		calendar:  calendar,
	}
}

// cacheInvalidator is implemented by timetable drivers that cache portal
// responses.
type cacheInvalidator interface {
	InvalidateSemester(semesterID string) int
}

// RefreshSemester drops the cached portal responses of one semester and
// returns how many were dropped. ok is false when the timetable driver keeps
// no cache.
func (s *Store) RefreshSemester(semesterID string) (dropped int, ok bool) {
	c, ok := s.timetable.(cacheInvalidator)
	if !ok {
		return 0, false
	}
	return c.InvalidateSemester(semesterID), true
}

// HasCalendar reports whether a calendar driver is configured.
func (s *Store) HasCalendar() bool {
	return s.calendar != nil
}

func (s *Store) ListSemesters(ctx context.Context) ([]*SemesterInfo, error) {
	if s.timetable == nil {
		return nil, errors.ServiceUnavailable("timetable source is not configured")
	}
	return s.timetable.ListSemesters(ctx)
}

func (s *Store) FetchWeekSchedule(ctx context.Context, semesterID string, week int) ([]*ClassEntry, error) {
	if s.timetable == nil {
		return nil, errors.ServiceUnavailable("timetable source is not configured")
	}
	if week < 1 {
		return nil, errors.InvalidArgument("week number must be >= 1").WithContext("week", week)
	}
	list, err := s.timetable.FetchWeekSchedule(ctx, semesterID, week)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*ClassEntry{}
	}
	return list, nil
}

func (s *Store) ListWeeks(ctx context.Context, semesterID string) ([]*WeekInfo, error) {
	if s.timetable == nil {
		return nil, errors.ServiceUnavailable("timetable source is not configured")
	}
	return s.timetable.ListWeeks(ctx, semesterID)
}

func (s *Store) ListCalendarEvents(ctx context.Context, start, end time.Time) ([]*ExternalEvent, error) {
	if s.calendar == nil {
		return nil, errors.ServiceUnavailable("calendar is not configured")
	}
	return s.calendar.ListEvents(ctx, start, end)
}

func (s *Store) CreateCalendarEvent(ctx context.Context, create *CalendarEvent) (*ExternalEvent, error) {
	if s.calendar == nil {
		return nil, errors.ServiceUnavailable("calendar is not configured")
	}
	return s.calendar.CreateEvent(ctx, create)
}
