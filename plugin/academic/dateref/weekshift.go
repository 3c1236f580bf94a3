package dateref

import "regexp"

var (
	nextWeekPattern     = regexp.MustCompile(`(?:^|[^\pL\pN])(?:tuan\s+(?:sau|toi)|next\s+week)(?:[^\pL\pN]|$)`)
	previousWeekPattern = regexp.MustCompile(`(?:^|[^\pL\pN])(?:tuan\s+truoc|last\s+week|previous\s+week)(?:[^\pL\pN]|$)`)
	explicitWeekPattern = regexp.MustCompile(`(?:^|[^\pL\pN])(?:tuan|week)\s*(?:thu\s+)?(\d{1,2})(?:[^\pL\pN]|$)`)
)

// MaxWeek bounds explicit week numbers.
const MaxWeek = 52

// ParseWeekShift extracts a relative week from text: +1 for "tuần sau",
// "tuần tới" or "next week", -1 for "tuần trước" or "last week", 0 otherwise.
func ParseWeekShift(text string) int {
	folded := Fold(normalize(text))
	switch {
	case nextWeekPattern.MatchString(folded):
		return 1
	case previousWeekPattern.MatchString(folded):
		return -1
	default:
		return 0
	}
}

// ParseExplicitWeek extracts "tuần 12" or "week 12". Numbers outside
// 1..MaxWeek are ignored.
func ParseExplicitWeek(text string) (int, bool) {
	m := explicitWeekPattern.FindStringSubmatch(Fold(normalize(text)))
	if m == nil {
		return 0, false
	}
	week := atoi(m[1])
	if week < 1 || week > MaxWeek {
		return 0, false
	}
	return week, true
}
