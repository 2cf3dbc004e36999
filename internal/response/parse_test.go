package response

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rohit-sws/timetable/internal/timetable"
)

const plain = `{"timeblocks":[{"day":"Monday","event_name":"Registration","start_time":"08:40","end_time":"09:00"}],"metadata":{"total_events":1}}`

func TestParse_FencedMatchesPlain(t *testing.T) {
	want, err := Parse(plain)
	if err != nil {
		t.Fatalf("Parse(plain) error = %v", err)
	}

	variants := map[string]string{
		"json fence":        "```json\n" + plain + "\n```",
		"bare fence":        "```\n" + plain + "\n```",
		"upper tag":         "```JSON\n" + plain + "\n```",
		"single line fence": "```json" + plain + "```",
		"padded":            "\n\n  " + plain + "  \n",
		"prose around":      "Here is the timetable:\n" + plain + "\nLet me know if you need more.",
		"prose and fence":   "Sure!\n```json\n" + plain + "\n```\nDone.",
		"bracket in prose":  "Here are [1] blocks: " + plain,
		"brackets around":   "Found [1] block:\n" + plain + "\n[end]",
	}
	for name, in := range variants {
		t.Run(name, func(t *testing.T) {
			got, err := Parse(in)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Parse() = %#v, want %#v", got, want)
			}
		})
	}
}

func TestParse_BareArrayInProse(t *testing.T) {
	got, err := Parse(`Blocks: [{"day":"Monday","event_name":"Art","start_time":"13:00"}] hope that helps`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	arr, ok := got.([]any)
	if !ok || len(arr) != 1 {
		t.Errorf("Parse() = %#v, want a one-element array", got)
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"I could not read this document.",
		"```json\n{\"timeblocks\": [\n```",
		"{not json}",
	} {
		_, err := Parse(in)
		if !errors.Is(err, timetable.ErrMalformedResponse) {
			t.Errorf("Parse(%q) error = %v, want ErrMalformedResponse", in, err)
		}
	}
}

func TestCheckEnvelope(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		doc, err := Parse(plain)
		if err != nil {
			t.Fatal(err)
		}
		env, err := CheckEnvelope(doc)
		if err != nil {
			t.Fatalf("CheckEnvelope() error = %v", err)
		}
		if len(env.Candidates) != 1 {
			t.Errorf("len(Candidates) = %d, want 1", len(env.Candidates))
		}
		if md, _ := env.Metadata.(map[string]any); md["total_events"] != float64(1) {
			t.Errorf("metadata not passed through: %v", env.Metadata)
		}
	})

	t.Run("missing metadata is nil", func(t *testing.T) {
		doc, _ := Parse(`{"timeblocks":[{}]}`)
		env, err := CheckEnvelope(doc)
		if err != nil {
			t.Fatalf("CheckEnvelope() error = %v", err)
		}
		if env.Metadata != nil {
			t.Errorf("Metadata = %v, want nil", env.Metadata)
		}
	})

	t.Run("metadata of any type passes through", func(t *testing.T) {
		for in, want := range map[string]any{
			`"two columns merged"`: "two columns merged",
			`[1,2]`:                []any{float64(1), float64(2)},
			`3`:                    float64(3),
		} {
			doc, _ := Parse(`{"timeblocks":[{}],"metadata":` + in + `}`)
			env, err := CheckEnvelope(doc)
			if err != nil {
				t.Fatalf("metadata %s: CheckEnvelope() error = %v", in, err)
			}
			if !reflect.DeepEqual(env.Metadata, want) {
				t.Errorf("metadata %s: got %#v, want %#v", in, env.Metadata, want)
			}
		}
	})

	t.Run("empty array", func(t *testing.T) {
		doc, _ := Parse(`{"timeblocks":[],"metadata":{}}`)
		if _, err := CheckEnvelope(doc); !errors.Is(err, timetable.ErrEmptyExtraction) {
			t.Errorf("error = %v, want ErrEmptyExtraction", err)
		}
	})

	for name, in := range map[string]string{
		"no timeblocks":  `{"events":[]}`,
		"not an array":   `{"timeblocks":{"day":"Monday"}}`,
		"null":           `{"timeblocks":null}`,
		"top-level list": `[{"day":"Monday"}]`,
		"scalar":         `42`,
	} {
		t.Run(name, func(t *testing.T) {
			doc, err := Parse(in)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := CheckEnvelope(doc); !errors.Is(err, timetable.ErrMissingTimeblocks) {
				t.Errorf("error = %v, want ErrMissingTimeblocks", err)
			}
		})
	}
}
