package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/tvuschedule/server/internal/observability"
)

// MetricsOverviewResponse is the request metrics of this process.
type MetricsOverviewResponse struct {
	*observability.MetricsSnapshot
	LastSync any `json:"last_sync,omitempty"`
}

// GetMetricsOverview returns the system metrics overview
// GET /api/v1/system/metrics
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	resp := &MetricsOverviewResponse{MetricsSnapshot: observability.GlobalMetrics().Snapshot()}
	if s.SyncRunner != nil {
		if last := s.SyncRunner.LastReport(); last != nil {
			resp.LastSync = last
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// requestContextMiddleware attaches a RequestContext to every API request,
// reusing the caller's X-Request-ID when present, and records its outcome.
func requestContextMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			reqCtx := observability.NewRequestContextWithID(slog.Default(), req.Header.Get(echo.HeaderXRequestID), operationFor(c.Path()))
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), reqCtx)))
			c.Response().Header().Set(echo.HeaderXRequestID, reqCtx.RequestID)

			err := next(c)
			status := c.Response().Status
			if err != nil || status >= http.StatusBadRequest {
				observability.GlobalMetrics().RecordFailure(reqCtx.Operation)
			}
			observability.GlobalMetrics().RecordRequest(reqCtx.Operation)
			observability.GlobalMetrics().RecordDuration(reqCtx.Operation, reqCtx.Duration())
			reqCtx.Debug("api request served", slog.Int("status", status), slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
			return err
		}
	}
}

func operationFor(path string) string {
	switch path {
	case "/api/v1/timetable/query":
		return "query"
	case "/api/v1/timetable/week":
		return "week"
	case "/api/v1/timetable/sync/plan":
		return "sync_plan"
	case "/api/v1/timetable/sync/run":
		return "sync_run"
	case "/api/v1/timetable/cache/refresh":
		return "cache_refresh"
	default:
		return "other"
	}
}
