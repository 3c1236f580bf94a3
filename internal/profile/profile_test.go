package profile

import (
	"fmt"
	"testing"
)

var profileEnvVars = []string{
	"TVUSCHEDULE_MODE",
	"TVUSCHEDULE_ADDR",
	"TVUSCHEDULE_PORT",
	"TVUSCHEDULE_TIMEZONE",
	"TVUSCHEDULE_SEMESTER",
	"TVUSCHEDULE_PORTAL_URL",
	"TVUSCHEDULE_PORTAL_TOKEN",
	"TVUSCHEDULE_PORTAL_RATE",
	"TVUSCHEDULE_PORTAL_TIMEOUT",
	"TVUSCHEDULE_PORTAL_CACHE",
	"TVUSCHEDULE_CALENDAR_URL",
	"TVUSCHEDULE_CALENDAR_ID",
	"TVUSCHEDULE_CALENDAR_TOKEN",
	"TVUSCHEDULE_SYNC_CRON",
	"TVUSCHEDULE_API_RATE",
}

// clearEnv blanks every profile variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range profileEnvVars {
		t.Setenv(key, "")
	}
}

func TestProfileDefaults(t *testing.T) {
	clearEnv(t)

	profile := &Profile{}
	profile.FromEnv()

	tests := []struct {
		name     string
		expected string
		actual   string
	}{
		{"Mode default", "dev", profile.Mode},
		{"Port default", "8081", fmt.Sprint(profile.Port)},
		{"Timezone default", "Asia/Ho_Chi_Minh", profile.Timezone},
		{"PortalURL default", "https://ttsv.tvu.edu.vn", profile.PortalURL},
		{"PortalRatePerSec default", "5", fmt.Sprint(profile.PortalRatePerSec)},
		{"PortalTimeoutSecs default", "15", fmt.Sprint(profile.PortalTimeoutSecs)},
		{"PortalCacheSecs default", "300", fmt.Sprint(profile.PortalCacheSecs)},
		{"CalendarID default", "primary", profile.CalendarID},
		{"SyncCron default", "0 6 * * *", profile.SyncCron},
		{"APIRatePerSec default", "10", fmt.Sprint(profile.APIRatePerSec)},
		{"HasCalendar default", "false", fmt.Sprint(profile.HasCalendar())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, tt.actual)
			}
		})
	}

	if err := profile.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestProfileFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		field    func(*Profile) string
		expected string
	}{
		{
			name:     "TVUSCHEDULE_PORTAL_TOKEN",
			envVar:   "TVUSCHEDULE_PORTAL_TOKEN",
			envValue: "portal-token",
			field:    func(p *Profile) string { return p.PortalToken },
			expected: "portal-token",
		},
		{
			name:     "TVUSCHEDULE_SEMESTER",
			envVar:   "TVUSCHEDULE_SEMESTER",
			envValue: "20252",
			field:    func(p *Profile) string { return p.SemesterID },
			expected: "20252",
		},
		{
			name:     "TVUSCHEDULE_CALENDAR_TOKEN",
			envVar:   "TVUSCHEDULE_CALENDAR_TOKEN",
			envValue: "ya29.token",
			field:    func(p *Profile) string { return fmt.Sprint(p.HasCalendar()) },
			expected: "true",
		},
		{
			name:     "TVUSCHEDULE_PORTAL_RATE",
			envVar:   "TVUSCHEDULE_PORTAL_RATE",
			envValue: "2.5",
			field:    func(p *Profile) string { return fmt.Sprint(p.PortalRatePerSec) },
			expected: "2.5",
		},
		{
			name:     "invalid TVUSCHEDULE_PORT falls back",
			envVar:   "TVUSCHEDULE_PORT",
			envValue: "eighty",
			field:    func(p *Profile) string { return fmt.Sprint(p.Port) },
			expected: "8081",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.envVar, tt.envValue)

			profile := &Profile{}
			profile.FromEnv()
			if got := tt.field(profile); got != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, got)
			}
		})
	}
}

func TestProfileFlagsWinOverEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TVUSCHEDULE_TIMEZONE", "UTC")

	profile := &Profile{Timezone: "Asia/Bangkok"}
	profile.FromEnv()
	if profile.Timezone != "Asia/Bangkok" {
		t.Errorf("expected flag value to win, got %q", profile.Timezone)
	}
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr bool
	}{
		{"defaults", func(p *Profile) {}, false},
		{"unknown mode is reset", func(p *Profile) { p.Mode = "demo" }, false},
		{"bad timezone", func(p *Profile) { p.Timezone = "Mars/Olympus" }, true},
		{"bad portal url", func(p *Profile) { p.PortalURL = "ttsv.tvu.edu.vn" }, true},
		{"bad semester", func(p *Profile) { p.SemesterID = "2025" }, true},
		{"bad term", func(p *Profile) { p.SemesterID = "20254" }, true},
		{"good semester", func(p *Profile) { p.SemesterID = "20251" }, false},
		{"bad cron", func(p *Profile) { p.SyncCron = "every morning" }, true},
		{"bad port", func(p *Profile) { p.Port = 70000 }, true},
		{"negative rate", func(p *Profile) { p.APIRatePerSec = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			profile := &Profile{}
			profile.FromEnv()
			tt.mutate(profile)

			err := profile.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProfileLocation(t *testing.T) {
	profile := &Profile{Timezone: "Asia/Ho_Chi_Minh"}
	if got := profile.Location().String(); got != "Asia/Ho_Chi_Minh" {
		t.Errorf("expected Asia/Ho_Chi_Minh, got %s", got)
	}
	profile.Timezone = "nowhere"
	if got := profile.Location().String(); got != "Asia/Ho_Chi_Minh" {
		t.Errorf("expected fallback zone, got %s", got)
	}
}
