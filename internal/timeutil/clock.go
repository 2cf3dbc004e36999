// Package timeutil provides wall-clock arithmetic over "HH:MM" strings and
// weekday normalization for timetable entries.
//
// Times are minutes since midnight; there are no dates or time zones here.
package timeutil

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MinutesPerDay is the length of the clock used for rollover.
const MinutesPerDay = 24 * 60

// clockPattern accepts 24-hour times with an optional leading zero on the hour.
var clockPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

// Valid reports whether s is a 24-hour "HH:MM" time (hour 0-23, minute 00-59).
func Valid(s string) bool {
	return clockPattern.MatchString(s)
}

// Parse converts an "HH:MM" string into minutes since midnight.
func Parse(s string) (int, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid time %q: want HH:MM (24-hour)", s)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	return h*60 + min, nil
}

// Format renders minutes since midnight as zero-padded "HH:MM".
// Values outside a single day wrap around.
func Format(minutes int) string {
	minutes = wrap(minutes)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Canonical re-renders a valid time zero-padded, e.g. "9:05" -> "09:05".
func Canonical(s string) (string, error) {
	m, err := Parse(s)
	if err != nil {
		return "", err
	}
	return Format(m), nil
}

// AddMinutes adds delta minutes to an "HH:MM" time, rolling over within the day.
func AddMinutes(s string, delta int) (string, error) {
	m, err := Parse(s)
	if err != nil {
		return "", err
	}
	return Format(m + delta), nil
}

// Duration returns the number of minutes from start to end.
// The result is negative when end is earlier than start.
func Duration(start, end string) (int, error) {
	s, err := Parse(start)
	if err != nil {
		return 0, err
	}
	e, err := Parse(end)
	if err != nil {
		return 0, err
	}
	return e - s, nil
}

// Before reports whether a is strictly earlier than b.
func Before(a, b string) (bool, error) {
	d, err := Duration(a, b)
	if err != nil {
		return false, err
	}
	return d > 0, nil
}

// Interval is a start/end pair of "HH:MM" times.
type Interval struct {
	Start string
	End   string
}

// Split divides [start, end) into n consecutive sub-intervals of equal length,
// each boundary rounded to the nearest minute. The first interval starts at
// start and the last ends exactly at end, so the pieces cover the span with no
// gap or overlap.
func Split(start, end string, n int) ([]Interval, error) {
	if n < 1 {
		return nil, fmt.Errorf("split count must be positive, got %d", n)
	}
	s, err := Parse(start)
	if err != nil {
		return nil, err
	}
	e, err := Parse(end)
	if err != nil {
		return nil, err
	}
	span := e - s
	if span <= 0 {
		return nil, fmt.Errorf("cannot split %s-%s: end must be after start", start, end)
	}
	if n > span {
		return nil, fmt.Errorf("cannot split %d minutes into %d parts", span, n)
	}

	step := float64(span) / float64(n)
	out := make([]Interval, 0, n)
	prev := s
	for i := 1; i <= n; i++ {
		next := e
		if i < n {
			next = s + int(math.Round(step*float64(i)))
		}
		out = append(out, Interval{Start: Format(prev), End: Format(next)})
		prev = next
	}
	return out, nil
}

func wrap(minutes int) int {
	minutes %= MinutesPerDay
	if minutes < 0 {
		minutes += MinutesPerDay
	}
	return minutes
}
