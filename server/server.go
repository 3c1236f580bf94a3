// Package server assembles the portal and calendar adapters, the timetable
// API and the calendar sync runner into one process.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/tvuschedule/internal/profile"
	"github.com/hrygo/tvuschedule/plugin/gcal"
	"github.com/hrygo/tvuschedule/plugin/tvu"
	apiv1 "github.com/hrygo/tvuschedule/server/router/api/v1"
	"github.com/hrygo/tvuschedule/server/runner/calsync"
	"github.com/hrygo/tvuschedule/server/service/timetable"
	"github.com/hrygo/tvuschedule/store"
	"github.com/hrygo/tvuschedule/store/cache"
)

// NewStore builds the store from the profile. Portal responses are cached
// unless PortalCacheSecs is negative; the calendar driver is only attached
// when a calendar token is configured.
func NewStore(p *profile.Profile) *store.Store {
	var portal store.TimetableDriver = tvu.NewClient(tvu.Config{
		BaseURL:           p.PortalURL,
		AccessToken:       p.PortalToken,
		RequestsPerSecond: p.PortalRatePerSec,
		Timeout:           time.Duration(p.PortalTimeoutSecs) * time.Second,
		Location:          p.Location(),
	})
	if p.PortalCacheSecs >= 0 {
		cfg := cache.DefaultConfig()
		if p.PortalTimeoutSecs > 0 {
			cfg.FetchTimeout = time.Duration(p.PortalTimeoutSecs) * time.Second
		}
		if p.PortalCacheSecs > 0 {
			cfg.TTL = time.Duration(p.PortalCacheSecs) * time.Second
		}
		portal = cache.NewTimetableDriver(portal, cfg)
	}
	var calendar store.CalendarDriver
	if p.HasCalendar() {
		calendar = gcal.NewClient(gcal.Config{
			BaseURL:     p.CalendarURL,
			CalendarID:  p.CalendarID,
			AccessToken: p.CalendarToken,
			TimeZone:    p.Location().String(),
		})
	}
	return store.New(portal, calendar)
}

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	runner     *calsync.Runner
}

// NewServer wires the API and, when a calendar is configured, the sync runner.
func NewServer(p *profile.Profile, st *store.Store) *Server {
	s := &Server{Profile: p, Store: st}
	if st.HasCalendar() {
		svc := timetable.NewService(st, p.Location())
		s.runner = calsync.NewRunner(svc, st, p.SemesterID, p.Location())
	}
	s.echoServer = apiv1.NewEcho(apiv1.NewAPIV1Service(p, st, s.runner))
	return s
}

// ServeHTTP lets tests drive the server without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echoServer.ServeHTTP(w, r)
}

// Start starts the sync runner and blocks serving HTTP until the server is
// shut down.
func (s *Server) Start() error {
	if s.runner != nil {
		if err := s.runner.Start(s.Profile.SyncCron); err != nil {
			return err
		}
	}

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("tvuschedule server listening", "address", address, "mode", s.Profile.Mode, "calendar_sync", s.runner != nil)
	if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
		return errors.Wrapf(err, "failed to serve on %s", address)
	}
	return nil
}

// Shutdown stops the HTTP server and waits for a running sync.
func (s *Server) Shutdown(ctx context.Context) {
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if s.runner != nil {
		s.runner.Stop()
	}
	slog.Info("tvuschedule server stopped")
}
