package v1

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/tvuschedule/internal/errors"
	"github.com/hrygo/tvuschedule/server/internal/observability"
	"github.com/hrygo/tvuschedule/server/service/timetable"
	"github.com/hrygo/tvuschedule/server/timezone"
)

// QueryResponse is a resolved query together with its display text.
type QueryResponse struct {
	*timetable.QueryResult
	Message string `json:"message"`
}

// QueryParams are the parameters of a timetable query.
type QueryParams struct {
	Q        string `query:"q" validate:"required,max=500"`
	Semester string `query:"semester" validate:"omitempty,semester"`
}

// WeekParams are the parameters of a week request.
type WeekParams struct {
	Date     string `query:"date" validate:"omitempty,max=10"`
	Semester string `query:"semester" validate:"omitempty,semester"`
}

// SyncPlanRequest optionally pins the semester of a sync plan.
type SyncPlanRequest struct {
	Semester string `json:"semester" validate:"omitempty,semester"`
}

// CacheRefreshRequest names the semester whose cached portal responses are
// dropped.
type CacheRefreshRequest struct {
	Semester string `json:"semester" validate:"required,semester"`
}

// CacheRefreshResponse reports a cache refresh.
type CacheRefreshResponse struct {
	Semester string `json:"semester"`
	Dropped  int    `json:"dropped"`
	// Cached is false when the server runs without a portal cache.
	Cached bool `json:"cached"`
}

// bindAndValidate binds query parameters or the JSON body into req, trims
// its string fields and validates it.
func bindAndValidate(c echo.Context, req any, trim ...*string) error {
	if err := c.Bind(req); err != nil {
		return errors.InvalidArgument("invalid request parameters")
	}
	for _, field := range trim {
		*field = strings.TrimSpace(*field)
	}
	return c.Validate(req)
}

// QueryTimetable answers a free-text timetable question.
// GET /api/v1/timetable/query?q=thứ+5+tuần+sau&semester=20251
func (s *APIV1Service) QueryTimetable(c echo.Context) error {
	var params QueryParams
	if err := bindAndValidate(c, &params, &params.Q, &params.Semester); err != nil {
		return writeError(c, err)
	}

	result, err := s.TimetableService.Query(c.Request().Context(), &timetable.QueryRequest{
		Text:       params.Q,
		SemesterID: s.semesterParam(params.Semester),
		Now:        s.currentTime(),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, &QueryResponse{QueryResult: result, Message: result.Message()})
}

// GetWeek returns the week containing date (dd/mm/yyyy, default today).
// GET /api/v1/timetable/week?date=21/12/2025&semester=20251
func (s *APIV1Service) GetWeek(c echo.Context) error {
	var params WeekParams
	if err := bindAndValidate(c, &params, &params.Date, &params.Semester); err != nil {
		return writeError(c, err)
	}
	date := s.currentTime()
	if params.Date != "" {
		parsed, err := timezone.ParseDate(params.Date, s.location)
		if err != nil {
			slog.Warn("invalid date parameter in week request", "date", params.Date, "error", err)
			return writeError(c, errors.InvalidArgument("date must be dd/mm/yyyy"))
		}
		date = parsed
	}

	result, err := s.TimetableService.Week(c.Request().Context(), date, s.semesterParam(params.Semester))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, &QueryResponse{QueryResult: result, Message: result.Message()})
}

// PlanSync returns the events a calendar sync would create and skip.
// POST /api/v1/timetable/sync/plan
func (s *APIV1Service) PlanSync(c echo.Context) error {
	var req SyncPlanRequest
	if err := bindAndValidate(c, &req, &req.Semester); err != nil {
		return writeError(c, err)
	}

	plan, err := s.TimetableService.PlanWeekSync(c.Request().Context(), s.currentTime(), s.semesterParam(req.Semester))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, plan)
}

// RunSync creates the missing calendar events now.
// POST /api/v1/timetable/sync/run
func (s *APIV1Service) RunSync(c echo.Context) error {
	if s.SyncRunner == nil {
		return writeError(c, errors.ServiceUnavailable("calendar sync is not configured"))
	}
	report, err := s.SyncRunner.RunOnce(c.Request().Context(), s.currentTime())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// RefreshCache drops the cached portal responses of one semester, e.g. after
// the faculty republishes its timetable.
// POST /api/v1/timetable/cache/refresh
func (s *APIV1Service) RefreshCache(c echo.Context) error {
	var req CacheRefreshRequest
	if err := bindAndValidate(c, &req, &req.Semester); err != nil {
		return writeError(c, err)
	}
	dropped, cached := s.Store.RefreshSemester(req.Semester)
	slog.Info("portal cache refreshed", "semester", req.Semester, "dropped", dropped, "cached", cached)
	return c.JSON(http.StatusOK, &CacheRefreshResponse{Semester: req.Semester, Dropped: dropped, Cached: cached})
}

func (s *APIV1Service) semesterParam(v string) string {
	if v != "" {
		return v
	}
	return s.Profile.SemesterID
}

// statusFor maps an error code to an HTTP status. An empty schedule is never
// an error, so upstream failures are the only source of 401 and 502.
func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidArgument, errors.ErrCodeEmailIntent:
		return http.StatusBadRequest
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeUpstreamUnavailable, errors.ErrCodeUpstreamMalformed:
		return http.StatusBadGateway
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeServiceUnavailable, errors.ErrCodeContextCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	code := errors.GetCodeFromError(err, errors.ErrCodeInternal)
	status := statusFor(code)

	if reqCtx, ok := observability.FromContext(c.Request().Context()); ok {
		reqCtx.Error("timetable request failed", err, slog.Int("status", status))
	} else {
		slog.Warn("timetable request failed", "error", err, "status", status)
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	return c.JSON(status, map[string]string{
		"code":    string(code),
		"message": message,
	})
}
