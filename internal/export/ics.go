// Package export renders extraction results as iCalendar feeds with one
// weekly recurring event per timeblock.
package export

import (
	"fmt"
	"strconv"
	"time"
	_ "time/tzdata"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/rohit-sws/timetable/internal/timetable"
	"github.com/rohit-sws/timetable/internal/timeutil"
)

const (
	productID  = "-//rohit-sws//timetable//EN"
	localStamp = "20060102T150405"
)

// uidSpace namespaces event UIDs so re-exporting the same timetable yields
// the same UIDs and calendar clients update instead of duplicating.
var uidSpace = uuid.MustParse("6f1c2a43-8f0e-4d8b-9a51-3c7f1e0b2d94")

// Options controls calendar generation.
type Options struct {
	// Timezone is an IANA zone name. Empty means UTC.
	Timezone string
	// WeekOf is any date in the first week; events start on the matching
	// weekday of that Monday-based week. Zero means the current week.
	WeekOf time.Time
	// Weeks bounds the recurrence (COUNT). Zero repeats indefinitely.
	Weeks int
	// Name is the calendar display name.
	Name string
}

// Event is one timeblock placed on the calendar.
type Event struct {
	UID      string
	Block    timetable.Timeblock
	Start    time.Time
	End      time.Time
	Rule     *rrule.RRule
	RuleText string
}

// Events places each timeblock on its first date and builds its weekly rule.
func Events(result *timetable.ExtractionResult, opts Options) ([]Event, error) {
	loc, err := location(opts.Timezone)
	if err != nil {
		return nil, err
	}
	monday := weekStart(opts.WeekOf, loc)

	events := make([]Event, 0, len(result.Timeblocks))
	seen := make(map[string]int, len(result.Timeblocks))
	for i, tb := range result.Timeblocks {
		key := uidKey(tb)
		ev, err := place(tb, monday, opts.Weeks, key, seen[key])
		seen[key]++
		if err != nil {
			return nil, fmt.Errorf("timeblock %d (%s %s): %w", i, tb.Day, tb.EventName, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// ICS serializes a result as an iCalendar document.
func ICS(result *timetable.ExtractionResult, opts Options) (string, error) {
	events, err := Events(result, opts)
	if err != nil {
		return "", err
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetName(opts.Name)
	}
	tz := opts.Timezone
	if tz == "" {
		tz = "UTC"
	}
	cal.SetXWRTimezone(tz)

	stamp := time.Now().UTC()
	for _, ev := range events {
		vev := cal.AddEvent(ev.UID)
		vev.SetDtStampTime(stamp)
		if tz == "UTC" {
			vev.SetStartAt(ev.Start)
			vev.SetEndAt(ev.End)
		} else {
			tzid := &ical.KeyValues{Key: string(ical.ParameterTzid), Value: []string{tz}}
			vev.SetProperty(ical.ComponentPropertyDtStart, ev.Start.Format(localStamp), tzid)
			vev.SetProperty(ical.ComponentPropertyDtEnd, ev.End.Format(localStamp), tzid)
		}
		vev.SetSummary(ev.Block.EventName)
		if ev.Block.Notes != "" {
			vev.SetDescription(ev.Block.Notes)
		}
		vev.AddRrule(ev.RuleText)
		vev.SetProperty(ical.ComponentProperty("X-TIMETABLE-CONFIDENCE"), strconv.FormatFloat(ev.Block.Confidence, 'f', 2, 64))
	}
	return cal.Serialize(), nil
}

// uidKey identifies a block by what it is, not where it sits in the list.
func uidKey(tb timetable.Timeblock) string {
	return fmt.Sprintf("%s|%s|%s|%s", tb.Day, tb.EventName, tb.StartTime, tb.EndTime)
}

// place builds the event for tb. repeat counts earlier identical blocks, so
// duplicates still get distinct UIDs while the first keeps the plain key.
func place(tb timetable.Timeblock, monday time.Time, weeks int, key string, repeat int) (Event, error) {
	wd, ok := timeutil.TimeWeekday(tb.Day)
	if !ok {
		return Event{}, fmt.Errorf("unknown day %q", tb.Day)
	}
	startMin, err := timeutil.Parse(tb.StartTime)
	if err != nil {
		return Event{}, err
	}
	dur, err := timeutil.Duration(tb.StartTime, tb.EndTime)
	if err != nil {
		return Event{}, err
	}
	if dur <= 0 {
		// Inverted blocks run past midnight.
		dur += timeutil.MinutesPerDay
	}

	offset := (int(wd) + 6) % 7 // Monday = 0
	day := monday.AddDate(0, 0, offset)
	start := time.Date(day.Year(), day.Month(), day.Day(), startMin/60, startMin%60, 0, 0, day.Location())
	end := start.Add(time.Duration(dur) * time.Minute)

	ropt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Count:     weeks,
		Byweekday: []rrule.Weekday{ruleWeekday(wd)},
	}
	ruleText := ropt.String()

	ropt.Dtstart = start
	rule, err := rrule.NewRRule(ropt)
	if err != nil {
		return Event{}, fmt.Errorf("failed to build recurrence: %w", err)
	}

	if repeat > 0 {
		key = fmt.Sprintf("%s|%d", key, repeat)
	}
	return Event{
		UID:      uuid.NewSHA1(uidSpace, []byte(key)).String() + "@timetable",
		Block:    tb,
		Start:    start,
		End:      end,
		Rule:     rule,
		RuleText: ruleText,
	}, nil
}

func location(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// weekStart returns midnight of the Monday on or before t, in loc.
func weekStart(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	t = t.In(loc)
	back := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -back)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

func ruleWeekday(wd time.Weekday) rrule.Weekday {
	return [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}[wd]
}
