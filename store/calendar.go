package store

import "time"

// ExternalEvent is an event that already exists in the external calendar.
type ExternalEvent struct {
	ID    string    `json:"id,omitempty" yaml:"id,omitempty"`
	Title string    `json:"title" yaml:"title"`
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end,omitempty" yaml:"end,omitempty"`
}

// CalendarEvent is the create request for an external calendar event.
type CalendarEvent struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}
