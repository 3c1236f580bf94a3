// Package intent decides what a student's message asks for before any date
// parsing happens. Email requests are recognised first so that text such as
// "gửi email cho thầy mai" is never read as a timetable question.
package intent

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Intent is the kind of request a message makes.
type Intent int

const (
	// Unknown is for unrecognised messages.
	Unknown Intent = iota
	// Schedule asks for the classes of one day.
	Schedule
	// WeekSchedule asks for the classes of a whole week.
	WeekSchedule
	// Grade asks for marks or a transcript.
	Grade
	// Email asks to compose or send an email.
	Email
)

// String returns the string representation of Intent.
func (i Intent) String() string {
	switch i {
	case Schedule:
		return "schedule"
	case WeekSchedule:
		return "week_schedule"
	case Grade:
		return "grade"
	case Email:
		return "email"
	default:
		return "unknown"
	}
}

// MarshalText renders the intent by name.
func (i Intent) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// IsSchedule reports whether the intent may run timetable date parsing.
func (i Intent) IsSchedule() bool {
	return i == Schedule || i == WeekSchedule
}

// Pre-compiled regex patterns for intent classification.
var (
	emailPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(gửi|soạn|viết)\s+(e-?mail|mail|thư)`),
		regexp.MustCompile(`send\s+(an?\s+)?e-?mail`),
		regexp.MustCompile(`(e-?mail|mail)\s+(cho|tới|đến|to)\s`),
		regexp.MustCompile(`[\w.+-]+@[\w-]+(\.[\w-]+)+`),
	}

	gradePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(xem|tra|kiểm tra)\s+điểm`),
		regexp.MustCompile(`điểm\s+(thi|số|trung bình|tổng kết|học kỳ|môn)`),
		regexp.MustCompile(`kết quả học tập`),
		regexp.MustCompile(`\b(gpa|grades?|transcript)\b`),
	}

	scheduleKeywords = []string{
		"thời khóa biểu", "thời khoá biểu", "tkb", "lịch học", "có lớp", "lớp học",
		"học gì", "học môn", "có tiết", "lịch",
		"schedule", "timetable", "class",
	}

	weekKeywords = []string{
		"cả tuần", "tuần này", "tuần sau", "tuần tới", "tuần trước", "lịch tuần",
		"this week", "next week", "last week", "whole week",
	}

	explicitWeekPattern = regexp.MustCompile(`(tuần|week)\s*(thứ\s+)?\d{1,2}`)
)

// Result holds the classification result.
type Result struct {
	Intent     Intent  `json:"intent" yaml:"intent"`
	Confidence float32 `json:"confidence" yaml:"confidence"`
}

// Classifier is a rule-based message classifier.
type Classifier struct{}

// NewClassifier creates a new Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify determines the intent of text. Email wins over everything else,
// then grades, then timetable requests.
func (c *Classifier) Classify(text string) Result {
	input := strings.ToLower(norm.NFC.String(strings.TrimSpace(text)))
	if input == "" {
		return Result{Intent: Unknown}
	}

	if matchAny(input, emailPatterns) {
		return Result{Intent: Email, Confidence: 0.95}
	}
	if matchAny(input, gradePatterns) {
		return Result{Intent: Grade, Confidence: 0.9}
	}

	week := containsAny(input, weekKeywords) || explicitWeekPattern.MatchString(input)
	if containsAny(input, scheduleKeywords) {
		if week {
			return Result{Intent: WeekSchedule, Confidence: 0.9}
		}
		return Result{Intent: Schedule, Confidence: 0.9}
	}
	if week {
		return Result{Intent: WeekSchedule, Confidence: 0.6}
	}
	return Result{Intent: Unknown}
}

func matchAny(input string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(input) {
			return true
		}
	}
	return false
}

func containsAny(input string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(input, kw) {
			return true
		}
	}
	return false
}
