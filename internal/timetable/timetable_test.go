package timetable

import (
	"errors"
	"fmt"
	"testing"
)

func TestInferDuration(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"Pack Up", 5},
		{"Dismissal", 5},
		{"pack-up and home", 5},
		{"Jobs & Read Aloud", 30},
		{"Fitness", 30},
		{"Lunch", 30},
		{"Morning Recess", 30},
		{"Maths", DefaultDurationMinutes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferDuration(tt.name); got != tt.want {
				t.Errorf("InferDuration(%q) = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestBackendError(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := NewBackendError("openrouter", 429, cause)

	if !errors.Is(err, ErrBackend) {
		t.Error("expected errors.Is(err, ErrBackend)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}

	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatal("expected *BackendError")
	}
	if be.StatusCode != 429 || be.Provider != "openrouter" {
		t.Errorf("unexpected fields: %+v", be)
	}

	wrapped := fmt.Errorf("extract: %w", err)
	if again := NewBackendError("other", 0, wrapped); again != wrapped {
		t.Error("existing BackendError should not be wrapped twice")
	}
	if NewBackendError("x", 0, nil) != nil {
		t.Error("nil error should stay nil")
	}
}

func TestExtractionResult_Days(t *testing.T) {
	r := &ExtractionResult{Timeblocks: []Timeblock{
		{Day: "Tuesday"}, {Day: "Monday"}, {Day: "Tuesday"},
	}}
	got := r.Days()
	if len(got) != 2 || got[0] != "Tuesday" || got[1] != "Monday" {
		t.Errorf("Days() = %v", got)
	}
}
