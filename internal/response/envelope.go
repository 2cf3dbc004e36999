package response

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/rohit-sws/timetable/internal/timetable"
)

// envelopeSchema only pins down the outer shape. Candidates inside the array
// are loose; the normalizer reconciles their keys. Metadata is not checked.
const envelopeSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["timeblocks"],
	"properties": {
		"timeblocks": {"type": "array"}
	}
}`

var envelope = jsonschema.MustCompileString("timetable-envelope.json", envelopeSchema)

// Envelope is the outer shape of a backend response.
type Envelope struct {
	Candidates []any
	Metadata   any // as sent; nil when absent or null
}

// CheckEnvelope verifies that doc is an object holding a timeblocks array and
// splits it into candidates and metadata. It returns
// timetable.ErrMissingTimeblocks for any other shape and
// timetable.ErrEmptyExtraction when the array is empty.
func CheckEnvelope(doc any) (*Envelope, error) {
	if err := envelope.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", timetable.ErrMissingTimeblocks, err)
	}

	obj := doc.(map[string]any)
	candidates := obj["timeblocks"].([]any)
	if len(candidates) == 0 {
		return nil, timetable.ErrEmptyExtraction
	}

	return &Envelope{Candidates: candidates, Metadata: obj["metadata"]}, nil
}
