// Package normalize turns loosely shaped backend output into canonical
// timeblocks, or fails with a typed error.
//
// Each raw candidate goes through one pass: key reconciliation, multi-day
// expansion, day normalization, end-time inference, time validation and field
// finalization. A candidate that fails any step is dropped and reported; it
// never fails the batch.
package normalize

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/rohit-sws/timetable/internal/response"
	"github.com/rohit-sws/timetable/internal/timetable"
	"github.com/rohit-sws/timetable/internal/timeutil"
)

// Options configures a Normalizer.
type Options struct {
	// AllowInvertedTimes keeps candidates whose end time is not after their
	// start time. By default they are dropped.
	AllowInvertedTimes bool

	// Logger receives per-candidate diagnostics (default: slog.Default()).
	Logger *slog.Logger
}

// Normalizer validates extraction candidates. It holds no per-call state and
// is safe for concurrent use.
type Normalizer struct {
	allowInverted bool
	logger        *slog.Logger
}

// New creates a Normalizer.
func New(opts Options) *Normalizer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{allowInverted: opts.AllowInvertedTimes, logger: logger}
}

// Normalize validates a decoded backend response. It returns
// timetable.ErrMissingTimeblocks when doc is not an object with a timeblocks
// array and timetable.ErrEmptyExtraction when that array is empty. When every
// candidate is rejected the report carries an empty timeblock list and no
// error; the caller decides whether that is a failure.
func (n *Normalizer) Normalize(doc any) (*Report, error) {
	env, err := response.CheckEnvelope(doc)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Result: timetable.ExtractionResult{
			Timeblocks: []timetable.Timeblock{},
			Metadata:   timetable.Metadata{},
		},
		Candidates: len(env.Candidates),
	}
	if env.Metadata != nil {
		report.Result.Metadata = env.Metadata
	}

	for i, el := range env.Candidates {
		raw, ok := el.(map[string]any)
		if !ok {
			n.reject(report, Rejection{Index: i, Reason: ReasonNotAnObject})
			continue
		}
		n.candidate(report, i, raw)
	}

	if len(report.Result.Timeblocks) == 0 {
		n.logger.Warn("all extraction candidates rejected",
			"candidates", report.Candidates,
			"rejections", len(report.Rejections),
			"reasons", report.ReasonCounts())
	} else {
		n.logger.Debug("normalized extraction",
			"candidates", report.Candidates,
			"timeblocks", len(report.Result.Timeblocks),
			"rejections", len(report.Rejections))
	}
	return report, nil
}

// candidate runs the per-candidate pipeline, appending accepted timeblocks
// and rejections to the report in input order.
func (n *Normalizer) candidate(report *Report, index int, raw map[string]any) {
	keys := sortedKeys(raw)
	c := reconcile(raw)

	var dayTokens []string
	switch {
	case populated(c[fieldDay]):
		// "Monday, Wednesday" in the singular field names two days.
		dayTokens = list(c[fieldDay])
	case populated(c[fieldDays]):
		dayTokens = list(c[fieldDays])
	}
	if len(dayTokens) == 0 {
		n.reject(report, Rejection{Index: index, Reason: ReasonMissingDay, Keys: keys})
		return
	}

	for _, token := range dayTokens {
		day, ok := timeutil.NormalizeDay(token)
		if !ok {
			n.reject(report, Rejection{Index: index, Day: token, Reason: ReasonInvalidDay, Keys: keys})
			continue
		}
		blocks, reason := n.build(c, day)
		if reason != "" {
			n.reject(report, Rejection{Index: index, Day: day, Reason: reason, Keys: keys})
			continue
		}
		report.Result.Timeblocks = append(report.Result.Timeblocks, blocks...)
	}
}

// build produces the timeblocks for one candidate on one day.
func (n *Normalizer) build(c candidate, day string) ([]timetable.Timeblock, Reason) {
	name := str(c[fieldEventName])
	names := list(c[fieldEventNames])
	if name == "" && len(names) == 1 {
		name = names[0]
	}

	start := str(c[fieldStartTime])
	if start == "" {
		return nil, ReasonMissingStartTime
	}
	if !timeutil.Valid(start) {
		return nil, ReasonInvalidStartTime
	}
	start, _ = timeutil.Canonical(start)

	end := str(c[fieldEndTime])
	if end == "" {
		inferFrom := name
		if inferFrom == "" && len(names) > 0 {
			inferFrom = names[len(names)-1]
		}
		end, _ = timeutil.AddMinutes(start, timetable.InferDuration(inferFrom))
	}
	if !timeutil.Valid(end) {
		return nil, ReasonInvalidEndTime
	}
	end, _ = timeutil.Canonical(end)

	if !n.allowInverted {
		if after, _ := timeutil.Before(start, end); !after {
			return nil, ReasonEndNotAfterStart
		}
	}

	base := timetable.Timeblock{
		Day:        day,
		EventName:  name,
		StartTime:  start,
		EndTime:    end,
		Notes:      str(c[fieldNotes]),
		Confidence: confidence(c[fieldConfidence]),
	}

	// A multi-subject cell the backend left unsplit.
	if name == "" && len(names) > 1 {
		parts, err := timeutil.Split(start, end, len(names))
		if err != nil {
			return nil, ReasonInvalidSplit
		}
		out := make([]timetable.Timeblock, len(names))
		for i, part := range parts {
			tb := base
			tb.EventName = names[i]
			tb.StartTime, tb.EndTime = part.Start, part.End
			out[i] = tb
		}
		return out, ""
	}

	if base.EventName == "" {
		base.EventName = timetable.UnknownEventName
	}
	return []timetable.Timeblock{base}, ""
}

func (n *Normalizer) reject(report *Report, r Rejection) {
	report.Rejections = append(report.Rejections, r)
	n.logger.Warn("dropped extraction candidate",
		"index", r.Index,
		"reason", string(r.Reason),
		"day", r.Day,
		"keys", strings.Join(r.Keys, ","))
}

// confidence reads a confidence score, accepting numbers, numeric strings and
// percentages. Absent, zero, negative or unparseable values get the default.
func confidence(v any) float64 {
	var f float64
	percent := false
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		s := strings.TrimSpace(t)
		if strings.HasSuffix(s, "%") {
			percent = true
			s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return timetable.DefaultConfidence
		}
		f = parsed
	default:
		return timetable.DefaultConfidence
	}

	if f <= 0 || math.IsNaN(f) {
		return timetable.DefaultConfidence
	}
	// Bare values in [2, 100] are percentages; anything else above 1 is
	// clamped, so 1.5 means "very sure" rather than 1.5%.
	if percent || (f >= 2 && f <= 100) {
		f /= 100
	}
	return math.Min(f, 1)
}
