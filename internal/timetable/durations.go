package timetable

import "strings"

// DurationRule infers a missing end time from keywords in the event name.
type DurationRule struct {
	Label    string   // shown in the prompt
	Keywords []string // case-insensitive substrings of the event name
	Minutes  int
}

// DefaultDurationMinutes applies when no rule matches.
const DefaultDurationMinutes = 30

// DurationRules is checked in order; the first rule with a matching keyword
// wins. The prompt renders the same table so the backend and the normalizer
// agree on inferred end times.
var DurationRules = []DurationRule{
	{Label: "dismissal / pack-up", Keywords: []string{"dismissal", "pack up", "pack-up", "packup"}, Minutes: 5},
	{Label: "reading / jobs / fitness", Keywords: []string{"read", "job", "fitness"}, Minutes: 30},
	{Label: "lunch / recess", Keywords: []string{"lunch", "recess"}, Minutes: 30},
}

// InferDuration returns the duration in minutes to assume for an event with
// no explicit end time.
func InferDuration(eventName string) int {
	name := strings.ToLower(eventName)
	for _, r := range DurationRules {
		for _, kw := range r.Keywords {
			if strings.Contains(name, kw) {
				return r.Minutes
			}
		}
	}
	return DefaultDurationMinutes
}
