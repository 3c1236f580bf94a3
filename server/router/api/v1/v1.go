package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/tvuschedule/internal/profile"
	"github.com/hrygo/tvuschedule/server/middleware"
	"github.com/hrygo/tvuschedule/server/runner/calsync"
	"github.com/hrygo/tvuschedule/server/service/timetable"
	"github.com/hrygo/tvuschedule/store"
)

// APIV1Service serves the timetable JSON API.
type APIV1Service struct {
	Profile          *profile.Profile
	Store            *store.Store
	TimetableService timetable.Service
	// SyncRunner is optional; without it the sync run endpoint answers 503.
	SyncRunner *calsync.Runner

	location *time.Location
	now      func() time.Time
}

func NewAPIV1Service(profile *profile.Profile, st *store.Store, runner *calsync.Runner) *APIV1Service {
	loc := profile.Location()
	return &APIV1Service{
		Profile:          profile,
		Store:            st,
		TimetableService: timetable.NewService(st, loc),
		SyncRunner:       runner,
		location:         loc,
		now:              time.Now,
	}
}

// NewEcho creates an echo instance with the API mounted, the way the server
// and the tests build it.
func NewEcho(s *APIV1Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.Pre(echomiddleware.RemoveTrailingSlash())
	e.Use(echomiddleware.Recover())
	s.Register(e)
	return e
}

// Register mounts the API routes and middleware on e.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.GET("/healthz", s.Healthz)

	api := e.Group("/api/v1", requestContextMiddleware(), middleware.NewRateLimiter(s.Profile.APIRatePerSec, burstFor(s.Profile.APIRatePerSec)).Middleware())
	api.GET("/timetable/query", s.QueryTimetable)
	api.GET("/timetable/week", s.GetWeek)
	api.POST("/timetable/sync/plan", s.PlanSync)
	api.POST("/timetable/sync/run", s.RunSync)
	api.POST("/timetable/cache/refresh", s.RefreshCache)
	api.GET("/system/metrics", s.GetMetricsOverview)
}

// Healthz reports liveness.
// GET /healthz
func (s *APIV1Service) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.Profile.Version,
		"calendar": s.Store.HasCalendar(),
	})
}

func (s *APIV1Service) currentTime() time.Time {
	return s.now().In(s.location)
}

func burstFor(perSecond float64) int {
	if perSecond < 1 {
		return 1
	}
	return int(perSecond) * 2
}
