// Package calsync pushes the current week's classes to the external calendar
// on a cron schedule.
package calsync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/hrygo/tvuschedule/server/service/timetable"
	"github.com/hrygo/tvuschedule/store"
)

// DefaultSpec runs the sync every morning at 06:00.
const DefaultSpec = "0 6 * * *"

// Report summarises one sync run.
type Report struct {
	Created int       `json:"created" yaml:"created"`
	Skipped int       `json:"skipped" yaml:"skipped"`
	Failed  int       `json:"failed" yaml:"failed"`
	RanAt   time.Time `json:"ran_at" yaml:"ran_at"`
}

type Runner struct {
	service    timetable.Service
	store      *store.Store
	semesterID string
	location   *time.Location
	now        func() time.Time

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
	last   *Report
}

// NewRunner creates a calendar sync runner. semesterID may be empty to
// detect the semester from the run date.
func NewRunner(service timetable.Service, st *store.Store, semesterID string, loc *time.Location) *Runner {
	if loc == nil {
		loc = time.UTC
	}
	return &Runner{
		service:    service,
		store:      st,
		semesterID: semesterID,
		location:   loc,
		now:        time.Now,
	}
}

// RunOnce plans the sync for the week containing now and creates every
// missing event. A failed create is counted and logged; the run continues.
func (r *Runner) RunOnce(ctx context.Context, now time.Time) (*Report, error) {
	plan, err := r.service.PlanWeekSync(ctx, now, r.semesterID)
	if err != nil {
		return nil, err
	}

	report := &Report{Skipped: len(plan.Skip), RanAt: now}
	for _, planned := range plan.Create {
		if err := ctx.Err(); err != nil {
			slog.Info("calendar sync cancelled", "created", report.Created, "remaining", len(plan.Create)-report.Created-report.Failed)
			return report, err
		}
		if _, err := r.store.CreateCalendarEvent(ctx, planned.CalendarEvent()); err != nil {
			report.Failed++
			slog.Error("failed to create calendar event", "subject", planned.Entry.Subject, "start", planned.Start, "error", err)
			continue
		}
		report.Created++
	}

	slog.Info("calendar sync finished", "created", report.Created, "skipped", report.Skipped, "failed", report.Failed)
	r.mu.Lock()
	r.last = report
	r.mu.Unlock()
	return report, nil
}

// LastReport returns the report of the most recent successful run, or nil.
func (r *Runner) LastReport() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Start schedules RunOnce with a standard five-field cron spec, evaluated in
// the runner's location. Overlapping runs are skipped.
func (r *Runner) Start(spec string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return errors.New("calendar sync runner already started")
	}
	if spec == "" {
		spec = DefaultSpec
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(
		cron.WithLocation(r.location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(spec, func() {
		if _, err := r.RunOnce(ctx, r.now().In(r.location)); err != nil {
			slog.Error("scheduled calendar sync failed", "error", err)
		}
	}); err != nil {
		cancel()
		return errors.Wrapf(err, "invalid cron spec %q", spec)
	}

	c.Start()
	r.cron = c
	r.cancel = cancel
	slog.Info("calendar sync runner started", "spec", spec, "location", r.location.String())
	return nil
}

// Stop stops scheduling and waits for a running sync to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	c, cancel := r.cron, r.cancel
	r.cron, r.cancel = nil, nil
	r.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	cancel()
	slog.Info("calendar sync runner stopped")
}
