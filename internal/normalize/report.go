package normalize

import "github.com/rohit-sws/timetable/internal/timetable"

// Reason explains why a candidate was dropped.
type Reason string

const (
	ReasonNotAnObject      Reason = "not_an_object"
	ReasonMissingDay       Reason = "missing_day"
	ReasonInvalidDay       Reason = "invalid_day"
	ReasonMissingStartTime Reason = "missing_start_time"
	ReasonInvalidStartTime Reason = "invalid_start_time"
	ReasonInvalidEndTime   Reason = "invalid_end_time"
	ReasonEndNotAfterStart Reason = "end_not_after_start"
	ReasonInvalidSplit     Reason = "invalid_split"
)

// Rejection records one dropped candidate (or one day of a multi-day
// candidate).
type Rejection struct {
	Index  int      `json:"index" yaml:"index"`                   // position in the timeblocks array
	Day    string   `json:"day,omitempty" yaml:"day,omitempty"`   // day being built when it failed
	Reason Reason   `json:"reason" yaml:"reason"`
	Keys   []string `json:"keys,omitempty" yaml:"keys,omitempty"` // original keys, to spot prompt drift
}

// Report is the result of one normalization pass.
type Report struct {
	Result     timetable.ExtractionResult `json:"result" yaml:"result"`
	Rejections []Rejection                `json:"rejections,omitempty" yaml:"rejections,omitempty"`
	Candidates int                        `json:"candidates" yaml:"candidates"` // raw array length before expansion or drops
}

// AllRejected reports whether a non-empty batch produced no timeblocks.
func (r *Report) AllRejected() bool {
	return r.Candidates > 0 && len(r.Result.Timeblocks) == 0
}

// ReasonCounts tallies rejections by reason.
func (r *Report) ReasonCounts() map[Reason]int {
	counts := make(map[Reason]int)
	for _, rej := range r.Rejections {
		counts[rej.Reason]++
	}
	return counts
}
