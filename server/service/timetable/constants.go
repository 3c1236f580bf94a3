package timetable

// Package-level constants for timetable resolution.

const (
	// DefaultSyncDays is the length of the calendar sync window.
	DefaultSyncDays = 7
)
