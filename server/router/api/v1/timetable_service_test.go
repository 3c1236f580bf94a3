package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/tvuschedule/internal/errors"
	"github.com/hrygo/tvuschedule/internal/profile"
	"github.com/hrygo/tvuschedule/server/runner/calsync"
	"github.com/hrygo/tvuschedule/store"
	"github.com/hrygo/tvuschedule/store/cache"
)

type stubPortal struct {
	weeks map[string][]*store.ClassEntry
	err   error
}

func (p *stubPortal) ListSemesters(ctx context.Context) ([]*store.SemesterInfo, error) {
	return nil, nil
}

func (p *stubPortal) FetchWeekSchedule(ctx context.Context, semesterID string, week int) ([]*store.ClassEntry, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.weeks[fmt.Sprintf("%s/%d", semesterID, week)], nil
}

func (p *stubPortal) ListWeeks(ctx context.Context, semesterID string) ([]*store.WeekInfo, error) {
	return nil, nil
}

type stubCalendar struct {
	created []*store.CalendarEvent
}

func (c *stubCalendar) ListEvents(ctx context.Context, start, end time.Time) ([]*store.ExternalEvent, error) {
	return []*store.ExternalEvent{}, nil
}

func (c *stubCalendar) CreateEvent(ctx context.Context, create *store.CalendarEvent) (*store.ExternalEvent, error) {
	c.created = append(c.created, create)
	return &store.ExternalEvent{Title: create.Summary, Start: create.Start, End: create.End}, nil
}

func class(day store.DayOfWeek, start, end, subject string) *store.ClassEntry {
	s, _ := store.ParseClockTime(start)
	e, _ := store.ParseClockTime(end)
	return &store.ClassEntry{DayOfWeek: day, StartTime: s, EndTime: e, Subject: subject, Room: "B21.101"}
}

// Thursday 25/12/2025 09:00 in Ho Chi Minh City: week 21 of 20251.
var fixedNow = time.Date(2025, 12, 25, 2, 0, 0, 0, time.UTC)

func newTestAPI(t *testing.T, portal store.TimetableDriver, calendar store.CalendarDriver, withRunner bool) *echo.Echo {
	t.Helper()
	p := &profile.Profile{Version: "test", Timezone: "Asia/Ho_Chi_Minh"}
	p.FromEnv()
	p.APIRatePerSec = 1000

	st := store.New(portal, calendar)
	svc := NewAPIV1Service(p, st, nil)
	if withRunner {
		svc.SyncRunner = calsync.NewRunner(svc.TimetableService, st, "", svc.location)
	}
	svc.now = func() time.Time { return fixedNow }
	return NewEcho(svc)
}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	e := newTestAPI(t, &stubPortal{}, nil, false)
	rec := doRequest(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["calendar"])
}

func TestQueryTimetable(t *testing.T) {
	portal := &stubPortal{weeks: map[string][]*store.ClassEntry{
		"20251/21": {class(store.Friday, "07:00", "09:30", "Lập trình Go")},
	}}
	e := newTestAPI(t, portal, nil, false)

	rec := doRequest(e, http.MethodGet, "/api/v1/timetable/query?q="+url.QueryEscape("mai có lớp gì"), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	body := decode(t, rec)
	assert.Contains(t, body["message"], "Lập trình Go")
	day := body["day"].(map[string]any)
	assert.Equal(t, "mai (26/12/2025)", day["label"])
	assert.Equal(t, "FRIDAY", day["day"])
	assert.Len(t, day["entries"], 1)
}

func TestQueryTimetable_EmptyDayIs200(t *testing.T) {
	e := newTestAPI(t, &stubPortal{}, nil, false)
	rec := doRequest(e, http.MethodGet, "/api/v1/timetable/query?q="+url.QueryEscape("hôm nay"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hôm nay (25/12/2025) bạn không có lớp nào.", decode(t, rec)["message"])
}

func TestQueryTimetable_Errors(t *testing.T) {
	tests := []struct {
		name   string
		portal *stubPortal
		query  string
		status int
		code   string
	}{
		{"missing q", &stubPortal{}, "", http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"email intent", &stubPortal{}, "gửi email cho thầy", http.StatusBadRequest, "EMAIL_INTENT"},
		{"bad semester", &stubPortal{}, "mai", http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"unauthorized", &stubPortal{err: errors.Unauthorized("token expired")}, "mai", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unavailable", &stubPortal{err: errors.UpstreamUnavailable("portal down", nil)}, "mai", http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
		{"malformed", &stubPortal{err: errors.UpstreamMalformed("bad json", nil)}, "mai", http.StatusBadGateway, "UPSTREAM_MALFORMED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestAPI(t, tt.portal, nil, false)
			target := "/api/v1/timetable/query?q=" + url.QueryEscape(tt.query)
			if tt.name == "bad semester" {
				target += "&semester=2025"
			}
			rec := doRequest(e, http.MethodGet, target, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode(t, rec)["code"])
		})
	}
}

func TestGetWeek(t *testing.T) {
	portal := &stubPortal{weeks: map[string][]*store.ClassEntry{
		"20251/20": {
			class(store.Monday, "07:00", "09:30", "Cơ sở dữ liệu"),
			class(store.Sunday, "13:00", "15:30", "Thực hành mạng"),
		},
	}}
	e := newTestAPI(t, portal, nil, false)

	rec := doRequest(e, http.MethodGet, "/api/v1/timetable/week?date=21/12/2025", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	week := decode(t, rec)["week"].(map[string]any)
	assert.Equal(t, "tuần 20 (21/12/2025)", week["label"])
	assert.EqualValues(t, 2, week["total"])

	rec = doRequest(e, http.MethodGet, "/api/v1/timetable/week?date=2025-12-21", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlanSync(t *testing.T) {
	portal := &stubPortal{weeks: map[string][]*store.ClassEntry{
		"20251/21": {class(store.Friday, "07:00", "09:30", "Lập trình Go")},
	}}

	rec := doRequest(newTestAPI(t, portal, nil, false), http.MethodPost, "/api/v1/timetable/sync/plan", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decode(t, rec)["code"])

	e := newTestAPI(t, portal, &stubCalendar{}, false)
	rec = doRequest(e, http.MethodPost, "/api/v1/timetable/sync/plan", `{"semester": "20251"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Len(t, body["create"], 1)
	assert.Empty(t, body["skip"])
}

func TestRunSync(t *testing.T) {
	portal := &stubPortal{weeks: map[string][]*store.ClassEntry{
		"20251/21": {class(store.Friday, "07:00", "09:30", "Lập trình Go")},
	}}

	rec := doRequest(newTestAPI(t, portal, &stubCalendar{}, false), http.MethodPost, "/api/v1/timetable/sync/run", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	calendar := &stubCalendar{}
	e := newTestAPI(t, portal, calendar, true)
	rec = doRequest(e, http.MethodPost, "/api/v1/timetable/sync/run", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode(t, rec)["created"])
	require.Len(t, calendar.created, 1)

	rec = doRequest(e, http.MethodGet, "/api/v1/system/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body, "operations")
	assert.Contains(t, body, "last_sync")
}

func TestRequestValidation(t *testing.T) {
	e := newTestAPI(t, &stubPortal{}, &stubCalendar{}, false)

	tests := []struct {
		name    string
		method  string
		target  string
		body    string
		message string
	}{
		{"blank q", http.MethodGet, "/api/v1/timetable/query?q=%20%20", "", "parameter q is required"},
		{"long q", http.MethodGet, "/api/v1/timetable/query?q=" + strings.Repeat("a", 501), "", "parameter q must be at most 500 characters"},
		{"week semester", http.MethodGet, "/api/v1/timetable/week?semester=20254", "", "parameter semester must be a semester code"},
		{"plan semester", http.MethodPost, "/api/v1/timetable/sync/plan", `{"semester": "abc"}`, "parameter semester must be a semester code"},
		{"plan body", http.MethodPost, "/api/v1/timetable/sync/plan", `{"semester":`, "invalid request parameters"},
		{"refresh without semester", http.MethodPost, "/api/v1/timetable/cache/refresh", `{}`, "parameter semester is required"},
		{"refresh semester", http.MethodPost, "/api/v1/timetable/cache/refresh", `{"semester": "2025"}`, "parameter semester must be a semester code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(e, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, "INVALID_ARGUMENT", body["code"])
			assert.Contains(t, body["message"], tt.message)
		})
	}
}

func TestRefreshCache(t *testing.T) {
	portal := &stubPortal{weeks: map[string][]*store.ClassEntry{
		"20251/21": {class(store.Thursday, "07:00", "09:30", "Lập trình Go")},
	}}
	e := newTestAPI(t, cache.NewTimetableDriver(portal, cache.DefaultConfig()), nil, false)

	rec := doRequest(e, http.MethodGet, "/api/v1/timetable/query?q="+url.QueryEscape("hôm nay học gì"), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(e, http.MethodPost, "/api/v1/timetable/cache/refresh", `{"semester": "20251"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "20251", body["semester"])
	assert.Equal(t, float64(1), body["dropped"])
	assert.Equal(t, true, body["cached"])

	rec = doRequest(e, http.MethodPost, "/api/v1/timetable/cache/refresh", `{"semester": "20251"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["dropped"])
}

func TestRefreshCache_WithoutCache(t *testing.T) {
	e := newTestAPI(t, &stubPortal{}, nil, false)

	rec := doRequest(e, http.MethodPost, "/api/v1/timetable/cache/refresh", `{"semester": "20251"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["cached"])
	assert.Equal(t, float64(0), body["dropped"])
}

func TestNewRequestValidator(t *testing.T) {
	var v *requestValidator
	require.NotPanics(t, func() { v = newRequestValidator() })

	assert.NoError(t, v.Validate(&CacheRefreshRequest{Semester: "20251"}))
	err := v.Validate(&CacheRefreshRequest{Semester: "20259"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidArgument))
	assert.Contains(t, err.Error(), "parameter semester must be a semester code")
}
