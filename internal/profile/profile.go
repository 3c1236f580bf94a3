package profile

import (
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/hrygo/tvuschedule/plugin/academic/semester"
	"github.com/hrygo/tvuschedule/server/timezone"
)

// Profile is the configuration shared by the CLI and the server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Version is the current version of the binary
	Version string

	// Timezone is the IANA zone in which "today" is evaluated.
	Timezone string // TVUSCHEDULE_TIMEZONE (default: Asia/Ho_Chi_Minh)
	// SemesterID pins the semester, e.g. "20251". Empty means detect from the date.
	SemesterID string // TVUSCHEDULE_SEMESTER

	// Portal configuration
	PortalURL         string  // TVUSCHEDULE_PORTAL_URL (default: https://ttsv.tvu.edu.vn)
	PortalToken       string  // TVUSCHEDULE_PORTAL_TOKEN
	PortalRatePerSec  float64 // TVUSCHEDULE_PORTAL_RATE (default: 5)
	PortalTimeoutSecs int     // TVUSCHEDULE_PORTAL_TIMEOUT (default: 15)
	// PortalCacheSecs is how long portal responses are reused. Negative disables the cache.
	PortalCacheSecs int // TVUSCHEDULE_PORTAL_CACHE (default: 300)

	// Calendar configuration
	CalendarURL   string // TVUSCHEDULE_CALENDAR_URL (default: Google Calendar v3)
	CalendarID    string // TVUSCHEDULE_CALENDAR_ID (default: primary)
	CalendarToken string // TVUSCHEDULE_CALENDAR_TOKEN

	// SyncCron is the five-field schedule of the calendar sync runner.
	SyncCron string // TVUSCHEDULE_SYNC_CRON (default: 0 6 * * *)
	// APIRatePerSec limits HTTP API requests per client IP.
	APIRatePerSec float64 // TVUSCHEDULE_API_RATE (default: 10)
}

const (
	defaultTimezone   = timezone.TimezoneAsiaHoChiMinh
	defaultPortalURL  = "https://ttsv.tvu.edu.vn"
	defaultCalendarID = "primary"
	defaultSyncCron   = "0 6 * * *"
	defaultPortalRate = 5
	defaultAPIRate    = 10
	defaultTimeout    = 15
	defaultCacheSecs  = 300
	defaultPort       = 8081
)

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// HasCalendar reports whether calendar credentials are configured.
func (p *Profile) HasCalendar() bool {
	return p.CalendarToken != ""
}

// Location returns the configured zone, falling back to Asia/Ho_Chi_Minh.
func (p *Profile) Location() *time.Location {
	loc, err := timezone.ParseTimezone(p.Timezone)
	if err != nil {
		return timezone.LocationAsiaHoChiMinh
	}
	return loc
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Warn("ignoring invalid numeric environment variable", "key", key, "value", value)
		return defaultValue
	}
	return f
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	return int(getFloatEnvOrDefault(key, float64(defaultValue)))
}

// FromEnv fills unset fields from TVUSCHEDULE_* environment variables and
// applies defaults. Fields already set (for example from flags) win.
func (p *Profile) FromEnv() {
	setString := func(field *string, key, def string) {
		if *field == "" {
			*field = getEnvOrDefault(key, def)
		}
	}
	setFloat := func(field *float64, key string, def float64) {
		if *field == 0 {
			*field = getFloatEnvOrDefault(key, def)
		}
	}

	setString(&p.Mode, "TVUSCHEDULE_MODE", "dev")
	setString(&p.Addr, "TVUSCHEDULE_ADDR", "")
	if p.Port == 0 {
		p.Port = getIntEnvOrDefault("TVUSCHEDULE_PORT", defaultPort)
	}
	setString(&p.Timezone, "TVUSCHEDULE_TIMEZONE", defaultTimezone)
	setString(&p.SemesterID, "TVUSCHEDULE_SEMESTER", "")

	setString(&p.PortalURL, "TVUSCHEDULE_PORTAL_URL", defaultPortalURL)
	setString(&p.PortalToken, "TVUSCHEDULE_PORTAL_TOKEN", "")
	setFloat(&p.PortalRatePerSec, "TVUSCHEDULE_PORTAL_RATE", defaultPortalRate)
	if p.PortalTimeoutSecs == 0 {
		p.PortalTimeoutSecs = getIntEnvOrDefault("TVUSCHEDULE_PORTAL_TIMEOUT", defaultTimeout)
	}
	if p.PortalCacheSecs == 0 {
		p.PortalCacheSecs = getIntEnvOrDefault("TVUSCHEDULE_PORTAL_CACHE", defaultCacheSecs)
	}

	setString(&p.CalendarURL, "TVUSCHEDULE_CALENDAR_URL", "")
	setString(&p.CalendarID, "TVUSCHEDULE_CALENDAR_ID", defaultCalendarID)
	setString(&p.CalendarToken, "TVUSCHEDULE_CALENDAR_TOKEN", "")

	setString(&p.SyncCron, "TVUSCHEDULE_SYNC_CRON", defaultSyncCron)
	setFloat(&p.APIRatePerSec, "TVUSCHEDULE_API_RATE", defaultAPIRate)
}

// Validate normalises the profile and rejects values the services cannot use.
// A missing portal token is not an error here: offline commands do not need it.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if !timezone.IsValidTimezone(p.Timezone) {
		return errors.Errorf("invalid timezone %q", p.Timezone)
	}

	p.PortalURL = strings.TrimRight(p.PortalURL, "/")
	if u, err := url.Parse(p.PortalURL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Errorf("invalid portal URL %q", p.PortalURL)
	}

	if p.SemesterID != "" {
		if _, err := semester.ParseID(p.SemesterID); err != nil {
			return errors.Wrap(err, "invalid semester")
		}
	}

	if _, err := cron.ParseStandard(p.SyncCron); err != nil {
		return errors.Wrapf(err, "invalid sync cron %q", p.SyncCron)
	}

	if p.Port < 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	if p.PortalRatePerSec < 0 || p.APIRatePerSec < 0 {
		return errors.New("rate limits must not be negative")
	}
	return nil
}
