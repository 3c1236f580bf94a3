package timetable

import (
	"context"
	"time"

	"github.com/hrygo/tvuschedule/plugin/academic/dateref"
	"github.com/hrygo/tvuschedule/plugin/academic/intent"
	"github.com/hrygo/tvuschedule/plugin/academic/semester"
)

// Service resolves timetable questions against the portal. Every method
// takes the current time from its caller.
type Service interface {
	// Query answers a free-text question such as "thứ 5 tuần sau có lớp gì".
	// Email requests are refused before any date parsing.
	Query(ctx context.Context, req *QueryRequest) (*QueryResult, error)

	// Week returns the whole week that contains date.
	Week(ctx context.Context, date time.Time, semesterID string) (*QueryResult, error)

	// PlanWeekSync plans calendar events for the current week's classes
	// against the events already present in the default sync window.
	PlanWeekSync(ctx context.Context, now time.Time, semesterID string) (*SyncPlan, error)
}

// QueryRequest is a free-text timetable question.
type QueryRequest struct {
	Text string
	// SemesterID overrides semester detection when set, e.g. "20251".
	SemesterID string
	Now        time.Time
}

// QueryResult carries the resolved references and the formatted classes.
// Exactly one of Day and Week is set.
type QueryResult struct {
	Intent    intent.Intent          `json:"intent" yaml:"intent"`
	Reference *dateref.DateReference `json:"reference,omitempty" yaml:"reference,omitempty"`
	Date      time.Time              `json:"date" yaml:"date"`
	Semester  semester.SemesterWeek  `json:"semester" yaml:"semester"`
	Day       *FormattedResult       `json:"day,omitempty" yaml:"day,omitempty"`
	Week      *WeekResult            `json:"week,omitempty" yaml:"week,omitempty"`
}

// Message returns the display text of whichever view is set.
func (r *QueryResult) Message() string {
	switch {
	case r.Day != nil:
		return r.Day.Message
	case r.Week != nil:
		return r.Week.Message
	default:
		return ""
	}
}
