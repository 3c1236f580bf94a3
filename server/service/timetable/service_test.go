package timetable

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/tvuschedule/internal/errors"
	"github.com/hrygo/tvuschedule/plugin/academic/dateref"
	"github.com/hrygo/tvuschedule/store"
)

// fakePortal is an in-memory store.TimetableDriver.
type fakePortal struct {
	mu    sync.Mutex
	weeks map[string][]*store.ClassEntry
	err   error
	calls []string
}

func (f *fakePortal) ListSemesters(ctx context.Context) ([]*store.SemesterInfo, error) {
	return []*store.SemesterInfo{{ID: "20251", Name: "Học kỳ 1 - Năm học 2025-2026"}}, nil
}

func (f *fakePortal) FetchWeekSchedule(ctx context.Context, semesterID string, week int) ([]*store.ClassEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s/%d", semesterID, week)
	f.calls = append(f.calls, key)
	if f.err != nil {
		return nil, f.err
	}
	return f.weeks[key], nil
}

func (f *fakePortal) ListWeeks(ctx context.Context, semesterID string) ([]*store.WeekInfo, error) {
	return nil, nil
}

// fakeCalendar is an in-memory store.CalendarDriver.
type fakeCalendar struct {
	mu      sync.Mutex
	events  []*store.ExternalEvent
	created []*store.CalendarEvent
	err     error
}

func (f *fakeCalendar) ListEvents(ctx context.Context, start, end time.Time) ([]*store.ExternalEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, create *store.CalendarEvent) (*store.ExternalEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, create)
	return &store.ExternalEvent{ID: fmt.Sprint(len(f.created)), Title: create.Summary, Start: create.Start, End: create.End}, nil
}

func newTestService(portal *fakePortal, calendar store.CalendarDriver) Service {
	return NewService(store.New(portal, calendar), ict)
}

func TestQuery_NamedWeekdayNextWeek(t *testing.T) {
	portal := &fakePortal{weeks: map[string][]*store.ClassEntry{
		"20252/1": {
			entry(store.Thursday, "07:00", "09:30", "Lập trình Go", "B21.101", ""),
			entry(store.Friday, "07:00", "09:30", "Anh văn", "A3.001", ""),
		},
	}}
	svc := newTestService(portal, nil)

	// Monday
	now := time.Date(2025, 12, 22, 9, 0, 0, 0, ict)
	result, err := svc.Query(context.Background(), &QueryRequest{Text: "thứ 5 tuần sau có lớp gì", Now: now})
	require.NoError(t, err)

	assert.True(t, result.Intent.IsSchedule())
	assert.Equal(t, dateref.NamedWeekday, result.Reference.Kind)
	assert.True(t, time.Date(2026, 1, 1, 0, 0, 0, 0, ict).Equal(result.Date))
	assert.Equal(t, "20252", result.Semester.SemesterID.String())
	assert.Equal(t, 1, result.Semester.WeekNumber)
	assert.Equal(t, []string{"20252/1"}, portal.calls)

	require.NotNil(t, result.Day)
	assert.Nil(t, result.Week)
	assert.Equal(t, "thứ 5 (01/01/2026)", result.Day.Label)
	assert.Equal(t, []string{"Lập trình Go"}, subjects(result.Day.Entries))
}

func TestQuery_RelativeDay(t *testing.T) {
	portal := &fakePortal{weeks: map[string][]*store.ClassEntry{
		"20251/20": {
			entry(store.Sunday, "13:00", "15:30", "Thực hành mạng", "Lab 2", "Lê Văn C"),
		},
	}}
	svc := newTestService(portal, nil)

	// Saturday; "mai" is Sunday 21/12/2025, week 20 of 20251.
	now := time.Date(2025, 12, 20, 21, 0, 0, 0, ict)
	result, err := svc.Query(context.Background(), &QueryRequest{Text: "mai có lớp không", Now: now})
	require.NoError(t, err)

	assert.Equal(t, 20, result.Semester.WeekNumber)
	require.NotNil(t, result.Day)
	assert.Equal(t, store.Sunday, result.Day.Day)
	assert.Equal(t, "mai (21/12/2025)", result.Day.Label)
	assert.Len(t, result.Day.Entries, 1)
	assert.Contains(t, result.Message(), "Thực hành mạng")
}

func TestQuery_EmptyDayIsNotAnError(t *testing.T) {
	svc := newTestService(&fakePortal{}, nil)

	now := time.Date(2025, 12, 20, 21, 0, 0, 0, ict)
	result, err := svc.Query(context.Background(), &QueryRequest{Text: "hôm nay học gì", Now: now})
	require.NoError(t, err)
	require.NotNil(t, result.Day)
	assert.True(t, result.Day.Success)
	assert.Empty(t, result.Day.Entries)
	assert.Equal(t, "Hôm nay (20/12/2025) bạn không có lớp nào.", result.Message())
}

func TestQuery_EmailIntentSkipsParsing(t *testing.T) {
	portal := &fakePortal{}
	svc := newTestService(portal, nil)

	_, err := svc.Query(context.Background(), &QueryRequest{
		Text: "gửi email cho thầy nam@tvu.edu.vn về lịch học mai",
		Now:  time.Date(2025, 12, 20, 21, 0, 0, 0, ict),
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmailIntent))
	assert.Empty(t, portal.calls)
}

func TestQuery_GradeIntentRefused(t *testing.T) {
	svc := newTestService(&fakePortal{}, nil)
	_, err := svc.Query(context.Background(), &QueryRequest{Text: "xem điểm học kỳ này", Now: time.Date(2025, 12, 20, 21, 0, 0, 0, ict)})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidArgument))
}

func TestQuery_UpstreamFailureSurfaces(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code errors.ErrorCode
	}{
		{"unauthorized", errors.Unauthorized("token expired"), errors.ErrCodeUnauthorized},
		{"unavailable", errors.UpstreamUnavailable("portal returned 503", nil), errors.ErrCodeUpstreamUnavailable},
		{"malformed", errors.UpstreamMalformed("bad json", nil), errors.ErrCodeUpstreamMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&fakePortal{err: tt.err}, nil)
			result, err := svc.Query(context.Background(), &QueryRequest{Text: "mai", Now: time.Date(2025, 12, 20, 21, 0, 0, 0, ict)})
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.IsCode(err, tt.code))
		})
	}
}

func TestQuery_WeekViews(t *testing.T) {
	portal := &fakePortal{weeks: map[string][]*store.ClassEntry{
		"20251/21": {entry(store.Monday, "07:00", "09:30", "Cơ sở dữ liệu", "B21.101", "")},
		"20251/12": {entry(store.Tuesday, "07:00", "09:30", "Anh văn", "A3.001", "")},
	}}
	svc := newTestService(portal, nil)
	// Sunday
	now := time.Date(2025, 12, 21, 9, 0, 0, 0, ict)

	result, err := svc.Query(context.Background(), &QueryRequest{Text: "lịch học tuần sau", Now: now})
	require.NoError(t, err)
	require.NotNil(t, result.Week)
	assert.Nil(t, result.Day)
	assert.Equal(t, 21, result.Semester.WeekNumber)
	assert.Equal(t, "tuần sau (tuần 21)", result.Week.Label)
	assert.Equal(t, 1, result.Week.Total)

	result, err = svc.Query(context.Background(), &QueryRequest{Text: "tkb tuần 12", Now: now})
	require.NoError(t, err)
	require.NotNil(t, result.Week)
	assert.Equal(t, 12, result.Semester.WeekNumber)
	assert.Equal(t, "tuần 12", result.Week.Label)
	assert.Equal(t, store.Tuesday, result.Week.Days[0].Day)
}

func TestQuery_NamedWeekdayInExplicitWeek(t *testing.T) {
	portal := &fakePortal{weeks: map[string][]*store.ClassEntry{
		"20251/12": {
			entry(store.Monday, "07:00", "09:30", "Cơ sở dữ liệu", "B21.101", ""),
			entry(store.Thursday, "13:00", "15:30", "Lập trình Go", "B21.204", ""),
		},
	}}
	svc := newTestService(portal, nil)
	// Sunday of week 20; week 12 runs 20/10 - 26/10/2025.
	now := time.Date(2025, 12, 21, 9, 0, 0, 0, ict)

	result, err := svc.Query(context.Background(), &QueryRequest{Text: "thứ 5 tuần 12 học gì", Now: now})
	require.NoError(t, err)

	assert.Equal(t, []string{"20251/12"}, portal.calls)
	assert.Equal(t, 12, result.Semester.WeekNumber)
	assert.True(t, time.Date(2025, 10, 23, 0, 0, 0, 0, ict).Equal(result.Date), "got %s", result.Date)
	require.NotNil(t, result.Day)
	assert.Nil(t, result.Week)
	assert.Equal(t, store.Thursday, result.Day.Day)
	assert.Equal(t, "thứ 5 (23/10/2025)", result.Day.Label)
	assert.Equal(t, []string{"Lập trình Go"}, subjects(result.Day.Entries))
}

func TestQuery_UnknownIntentAnswersForTheDay(t *testing.T) {
	portal := &fakePortal{}
	svc := newTestService(portal, nil)

	result, err := svc.Query(context.Background(), &QueryRequest{Text: "mai", Now: time.Date(2025, 12, 20, 21, 0, 0, 0, ict)})
	require.NoError(t, err)
	assert.False(t, result.Intent.IsSchedule())
	require.NotNil(t, result.Day)
	assert.Equal(t, []string{"20251/20"}, portal.calls)
}

func TestQuery_ExplicitSemester(t *testing.T) {
	portal := &fakePortal{}
	svc := newTestService(portal, nil)
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, ict)

	result, err := svc.Query(context.Background(), &QueryRequest{Text: "hôm nay", SemesterID: "20251", Now: now})
	require.NoError(t, err)
	assert.Equal(t, 23, result.Semester.WeekNumber)
	assert.Equal(t, []string{"20251/23"}, portal.calls)

	_, err = svc.Query(context.Background(), &QueryRequest{Text: "hôm nay", SemesterID: "2025", Now: now})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidArgument))
}

func TestWeek(t *testing.T) {
	portal := &fakePortal{weeks: map[string][]*store.ClassEntry{
		"20251/20": sampleWeek(),
	}}
	svc := newTestService(portal, nil)

	result, err := svc.Week(context.Background(), time.Date(2025, 12, 21, 18, 0, 0, 0, ict), "")
	require.NoError(t, err)
	assert.Equal(t, 20, result.Semester.WeekNumber)
	require.NotNil(t, result.Week)
	assert.Equal(t, "tuần 20 (21/12/2025)", result.Week.Label)
	assert.Len(t, result.Week.Days, 3)
}

func TestPlanWeekSync(t *testing.T) {
	portal := &fakePortal{weeks: map[string][]*store.ClassEntry{
		"20251/21": {
			entry(store.Friday, "07:00", "09:30", "Lập trình Go", "B21.101", ""),
			entry(store.Monday, "13:00", "14:40", "Toán rời rạc", "C1.204", ""),
		},
	}}
	calendar := &fakeCalendar{events: []*store.ExternalEvent{
		{Title: "Lập trình Go", Start: time.Date(2025, 12, 26, 7, 0, 0, 0, ict)},
	}}
	svc := newTestService(portal, calendar)

	// Thursday of week 21
	plan, err := svc.PlanWeekSync(context.Background(), time.Date(2025, 12, 25, 15, 0, 0, 0, ict), "")
	require.NoError(t, err)
	require.Len(t, plan.Create, 1)
	require.Len(t, plan.Skip, 1)
	assert.Equal(t, "Toán rời rạc", plan.Create[0].Entry.Subject)
}

func TestPlanWeekSync_Errors(t *testing.T) {
	now := time.Date(2025, 12, 25, 15, 0, 0, 0, ict)

	_, err := newTestService(&fakePortal{}, nil).PlanWeekSync(context.Background(), now, "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))

	_, err = newTestService(&fakePortal{}, &fakeCalendar{err: errors.Unauthorized("calendar token revoked")}).
		PlanWeekSync(context.Background(), now, "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnauthorized))
}
