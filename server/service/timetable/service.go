// Package timetable answers timetable questions: it resolves the day a
// message refers to, maps it onto a semester week, fetches that week from the
// portal and filters it for display. It also plans calendar syncs.
//
// The service never reads the wall clock; callers pass the current time.
package timetable

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/tvuschedule/internal/errors"
	"github.com/hrygo/tvuschedule/plugin/academic/dateref"
	"github.com/hrygo/tvuschedule/plugin/academic/intent"
	"github.com/hrygo/tvuschedule/plugin/academic/semester"
	"github.com/hrygo/tvuschedule/server/internal/observability"
	"github.com/hrygo/tvuschedule/server/timezone"
	"github.com/hrygo/tvuschedule/store"
)

type service struct {
	store      *store.Store
	classifier *intent.Classifier
	location   *time.Location
}

// NewService creates a timetable service. Times passed to it are converted
// to loc before any calendar arithmetic; a nil loc keeps the caller's zone.
func NewService(st *store.Store, loc *time.Location) Service {
	return &service{
		store:      st,
		classifier: intent.NewClassifier(),
		location:   loc,
	}
}

func (s *service) in(t time.Time) time.Time {
	if s.location == nil {
		return t
	}
	return t.In(s.location)
}

func (s *service) Query(ctx context.Context, req *QueryRequest) (*QueryResult, error) {
	if req == nil {
		return nil, errors.InvalidArgument("query request is required")
	}
	if req.Now.IsZero() {
		return nil, errors.InvalidArgument("query time is required")
	}

	cls := s.classifier.Classify(req.Text)
	if !cls.Intent.IsSchedule() {
		switch cls.Intent {
		case intent.Email:
			observability.LoggerFrom(ctx).Info("timetable query refused", "intent", cls.Intent.String())
			return nil, errors.EmailIntent()
		case intent.Grade:
			return nil, errors.InvalidArgument("grade lookups are not handled by the timetable service")
		default:
			observability.LoggerFrom(ctx).Debug("treating unclassified message as a day question", "intent", cls.Intent.String())
		}
	}

	now := s.in(req.Now)
	ref := dateref.Resolve(req.Text, now)
	shift := dateref.ParseWeekShift(req.Text)
	date := ref.DateFor(now, shift)
	explicitWeek, hasExplicitWeek := dateref.ParseExplicitWeek(req.Text)

	sw, err := semester.ComputeWeek(date, req.SemesterID)
	if err != nil {
		return nil, err
	}
	if hasExplicitWeek {
		sw.WeekNumber = explicitWeek
		// "thứ 5 tuần 3" names one day of that week.
		if !ref.HasDate() {
			date = sw.SemesterID.DayInWeek(explicitWeek, ref.Weekday, date.Location())
		}
	}

	entries, err := s.store.FetchWeekSchedule(ctx, sw.SemesterID.String(), sw.WeekNumber)
	if err != nil {
		return nil, fmt.Errorf("fetch week %d of semester %s: %w", sw.WeekNumber, sw.SemesterID, err)
	}

	result := &QueryResult{
		Intent:    cls.Intent,
		Reference: &ref,
		Date:      date,
		Semester:  sw,
	}
	weekView := (hasExplicitWeek && ref.HasDate()) || (cls.Intent == intent.WeekSchedule && ref.Kind == dateref.Unspecified)
	if weekView {
		result.Week = FormatWeek(entries, weekLabel(sw.WeekNumber, shift, hasExplicitWeek))
	} else {
		result.Day = FilterAndFormat(entries, store.DayOfWeekFromWeekday(date.Weekday()), dayLabel(ref, date, shift))
	}

	observability.LoggerFrom(ctx).Info("timetable query resolved",
		"intent", cls.Intent.String(),
		"kind", ref.Kind.String(),
		"date", timezone.FormatDate(date),
		"semester", sw.SemesterID.String(),
		"week", sw.WeekNumber,
		"entries", len(entries),
	)
	return result, nil
}

func (s *service) Week(ctx context.Context, date time.Time, semesterID string) (*QueryResult, error) {
	if date.IsZero() {
		return nil, errors.InvalidArgument("date is required")
	}
	date = timezone.StartOfDay(s.in(date), nil)

	sw, err := semester.ComputeWeek(date, semesterID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.FetchWeekSchedule(ctx, sw.SemesterID.String(), sw.WeekNumber)
	if err != nil {
		return nil, fmt.Errorf("fetch week %d of semester %s: %w", sw.WeekNumber, sw.SemesterID, err)
	}
	return &QueryResult{
		Intent:   intent.WeekSchedule,
		Date:     date,
		Semester: sw,
		Week:     FormatWeek(entries, fmt.Sprintf("tuần %d (%s)", sw.WeekNumber, timezone.FormatDate(date))),
	}, nil
}

func (s *service) PlanWeekSync(ctx context.Context, now time.Time, semesterID string) (*SyncPlan, error) {
	if !s.store.HasCalendar() {
		return nil, errors.ServiceUnavailable("calendar is not configured")
	}
	if now.IsZero() {
		return nil, errors.InvalidArgument("sync time is required")
	}
	now = s.in(now)

	sw, err := semester.ComputeWeek(now, semesterID)
	if err != nil {
		return nil, err
	}
	windowStart, windowEnd := DefaultSyncWindow(now)

	var (
		entries  []*store.ClassEntry
		existing []*store.ExternalEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.store.FetchWeekSchedule(gctx, sw.SemesterID.String(), sw.WeekNumber)
		if err != nil {
			return fmt.Errorf("fetch week %d of semester %s: %w", sw.WeekNumber, sw.SemesterID, err)
		}
		entries = list
		return nil
	})
	g.Go(func() error {
		list, err := s.store.ListCalendarEvents(gctx, windowStart, windowEnd)
		if err != nil {
			return fmt.Errorf("list calendar events: %w", err)
		}
		existing = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	observability.LoggerFrom(ctx).Info("planning calendar sync",
		"semester", sw.SemesterID.String(),
		"week", sw.WeekNumber,
		"window_start", windowStart,
		"window_end", windowEnd,
	)
	return PlanSync(normalizeEntries(entries), existing, windowStart, windowEnd, now), nil
}

func dayLabel(ref dateref.DateReference, date time.Time, shift int) string {
	switch {
	case !ref.HasDate():
		return dateref.WithDate(ref.Label, date)
	case shift != 0:
		return "ngày " + timezone.FormatDate(date)
	default:
		return ref.Label
	}
}

func weekLabel(week, shift int, explicit bool) string {
	if explicit {
		return fmt.Sprintf("tuần %d", week)
	}
	switch {
	case shift > 0:
		return fmt.Sprintf("tuần sau (tuần %d)", week)
	case shift < 0:
		return fmt.Sprintf("tuần trước (tuần %d)", week)
	default:
		return fmt.Sprintf("tuần này (tuần %d)", week)
	}
}
