package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hrygo/tvuschedule/internal/errors"
	"github.com/hrygo/tvuschedule/store"
)

// Config holds the configuration of the caching timetable driver.
type Config struct {
	MaxItems int
	TTL      time.Duration
	// FetchTimeout bounds a shared upstream call, which outlives the
	// cancellation of any single caller.
	FetchTimeout time.Duration
}

// DefaultConfig returns the default configuration: one semester's worth of
// weeks, kept for five minutes.
func DefaultConfig() Config {
	return Config{MaxItems: 64, TTL: 5 * time.Minute, FetchTimeout: 30 * time.Second}
}

// TimetableDriver caches the responses of another store.TimetableDriver.
// Failures are never cached, and concurrent requests for the same key share
// one upstream call; a caller that gives up does not cancel it for the
// others. Callers get their own copies of cached entries.
type TimetableDriver struct {
	next         store.TimetableDriver
	cache        *LRUCache
	group        singleflight.Group
	fetchTimeout time.Duration
}

var _ store.TimetableDriver = (*TimetableDriver)(nil)

func NewTimetableDriver(next store.TimetableDriver, cfg Config) *TimetableDriver {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultConfig().FetchTimeout
	}
	return &TimetableDriver{
		next:         next,
		cache:        NewLRUCache(cfg.MaxItems, cfg.TTL),
		fetchTimeout: cfg.FetchTimeout,
	}
}

func (d *TimetableDriver) ListSemesters(ctx context.Context) ([]*store.SemesterInfo, error) {
	v, err := d.load(ctx, "semesters", func(ctx context.Context) (any, error) {
		return d.next.ListSemesters(ctx)
	})
	if err != nil {
		return nil, err
	}
	src := v.([]*store.SemesterInfo)
	list := make([]*store.SemesterInfo, 0, len(src))
	for _, s := range src {
		c := *s
		list = append(list, &c)
	}
	return list, nil
}

func (d *TimetableDriver) FetchWeekSchedule(ctx context.Context, semesterID string, week int) ([]*store.ClassEntry, error) {
	key := fmt.Sprintf("schedule:%s:%d", semesterID, week)
	v, err := d.load(ctx, key, func(ctx context.Context) (any, error) {
		return d.next.FetchWeekSchedule(ctx, semesterID, week)
	})
	if err != nil {
		return nil, err
	}
	src := v.([]*store.ClassEntry)
	list := make([]*store.ClassEntry, 0, len(src))
	for _, e := range src {
		c := *e
		list = append(list, &c)
	}
	return list, nil
}

func (d *TimetableDriver) ListWeeks(ctx context.Context, semesterID string) ([]*store.WeekInfo, error) {
	v, err := d.load(ctx, "weeks:"+semesterID, func(ctx context.Context) (any, error) {
		return d.next.ListWeeks(ctx, semesterID)
	})
	if err != nil {
		return nil, err
	}
	src := v.([]*store.WeekInfo)
	list := make([]*store.WeekInfo, 0, len(src))
	for _, w := range src {
		c := *w
		list = append(list, &c)
	}
	return list, nil
}

// InvalidateSemester drops every cached response of one semester.
func (d *TimetableDriver) InvalidateSemester(semesterID string) int {
	return d.cache.Invalidate("schedule:"+semesterID+":*") + d.cache.Invalidate("weeks:"+semesterID)
}

func (d *TimetableDriver) load(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := d.cache.Get(key); ok {
		slog.Debug("portal cache hit", "key", key)
		return v, nil
	}
	ch := d.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.fetchTimeout)
		defer cancel()
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		d.cache.Set(key, v, 0)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Timeout("portal request timed out")
		}
		return nil, errors.ContextCanceled(ctx.Err())
	}
}
