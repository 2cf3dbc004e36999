package timeutil

import (
	"strings"
	"time"
)

// weekdays lists the canonical day names in calendar order (Monday first).
var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// dayAliases maps lower-cased abbreviations to canonical names. Ambiguous
// single letters (T, S) are deliberately absent.
var dayAliases = map[string]string{
	"m": "Monday", "mo": "Monday", "mon": "Monday",
	"tu": "Tuesday", "tue": "Tuesday", "tues": "Tuesday",
	"w": "Wednesday", "we": "Wednesday", "wed": "Wednesday", "weds": "Wednesday",
	"th": "Thursday", "thu": "Thursday", "thur": "Thursday", "thurs": "Thursday",
	"f": "Friday", "fr": "Friday", "fri": "Friday",
	"sa": "Saturday", "sat": "Saturday",
	"su": "Sunday", "sun": "Sunday",
}

// Weekdays returns the seven canonical day names, Monday first.
func Weekdays() []string {
	out := make([]string, len(weekdays))
	copy(out, weekdays)
	return out
}

// IsWeekday reports whether s is exactly one of the canonical day names.
func IsWeekday(s string) bool {
	for _, d := range weekdays {
		if s == d {
			return true
		}
	}
	return false
}

// NormalizeDay maps a day token to its canonical name. It accepts full names
// in any case, one/two/three-letter abbreviations, trailing punctuation, and
// strings that merely contain a full day name ("Tuesday (week A)"). The
// second return value is false when nothing resolves.
func NormalizeDay(token string) (string, bool) {
	s := strings.TrimSpace(token)
	s = strings.TrimRight(s, ".,;:!?")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	lower := strings.ToLower(s)

	for _, d := range weekdays {
		if lower == strings.ToLower(d) {
			return d, true
		}
	}
	if d, ok := dayAliases[lower]; ok {
		return d, true
	}

	// Earliest full day name contained in the token wins.
	best, bestAt := "", -1
	for _, d := range weekdays {
		if i := strings.Index(lower, strings.ToLower(d)); i >= 0 && (bestAt < 0 || i < bestAt) {
			best, bestAt = d, i
		}
	}
	if bestAt >= 0 {
		return best, true
	}
	return "", false
}

// DayIndex returns the position of a canonical day name (Monday = 0), or -1.
func DayIndex(day string) int {
	for i, d := range weekdays {
		if d == day {
			return i
		}
	}
	return -1
}

// TimeWeekday converts a canonical day name into a time.Weekday.
func TimeWeekday(day string) (time.Weekday, bool) {
	i := DayIndex(day)
	if i < 0 {
		return 0, false
	}
	return time.Weekday((i + 1) % 7), true
}
