// Package timetable defines the canonical schedule representation produced by
// the extraction pipeline and the failures it can report.
package timetable

// UnknownEventName is the only placeholder the normalizer may substitute, and
// only when a candidate carries no event name at all.
const UnknownEventName = "Unknown Event"

// DefaultConfidence is applied when a candidate has no usable confidence.
const DefaultConfidence = 0.8

// Timeblock is one scheduled event on a weekday.
type Timeblock struct {
	Day        string  `json:"day" yaml:"day"`
	EventName  string  `json:"event_name" yaml:"event_name"`
	StartTime  string  `json:"start_time" yaml:"start_time"`
	EndTime    string  `json:"end_time" yaml:"end_time"`
	Notes      string  `json:"notes,omitempty" yaml:"notes,omitempty"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Metadata is the usual object form of the informational block returned
// alongside timeblocks.
type Metadata = map[string]any

// ExtractionResult is the successful output of one extraction.
type ExtractionResult struct {
	Timeblocks []Timeblock `json:"timeblocks" yaml:"timeblocks"`

	// Metadata is passed through verbatim and never validated. Backends
	// normally send an object, but any JSON value is kept as sent.
	Metadata any `json:"metadata" yaml:"metadata"`
}

// MetadataObject returns the metadata when it is a JSON object, else nil.
func (r *ExtractionResult) MetadataObject() Metadata {
	md, _ := r.Metadata.(Metadata)
	return md
}

// Days returns the distinct days covered by the result, in first-seen order.
func (r *ExtractionResult) Days() []string {
	seen := make(map[string]bool)
	var days []string
	for _, tb := range r.Timeblocks {
		if !seen[tb.Day] {
			seen[tb.Day] = true
			days = append(days, tb.Day)
		}
	}
	return days
}
