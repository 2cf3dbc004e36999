package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rohit-sws/timetable/internal/timetable"
)

// Step is one scripted backend reply: either Text or Err.
type Step struct {
	Text string
	Err  error
}

// ScriptedBackend replays a fixed script of responses. It is used in tests
// and by the `scripted` backend type for offline runs.
type ScriptedBackend struct {
	Latency time.Duration
	MIMEs   []string // payload types accepted (default: image/*, application/pdf)

	mu       sync.Mutex
	steps    []Step
	next     int
	requests []InvokeRequest
}

// NewScriptedBackend creates a backend that answers with the given texts in
// order. The last text repeats once the script runs out.
func NewScriptedBackend(texts ...string) *ScriptedBackend {
	steps := make([]Step, len(texts))
	for i, t := range texts {
		steps[i] = Step{Text: t}
	}
	return NewScriptedBackendSteps(steps...)
}

// NewScriptedBackendSteps creates a backend from explicit steps, so failures
// can be interleaved.
func NewScriptedBackendSteps(steps ...Step) *ScriptedBackend {
	return &ScriptedBackend{
		MIMEs: []string{"image/*", "application/pdf"},
		steps: steps,
	}
}

// Name returns the backend identifier.
func (b *ScriptedBackend) Name() string { return TypeScripted }

// Accepts reports whether the MIME type is in the accepted list.
func (b *ScriptedBackend) Accepts(mimeType string) bool {
	return matchMIME(b.MIMEs, mimeType)
}

// Invoke returns the next scripted step.
func (b *ScriptedBackend) Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResult, error) {
	start := time.Now()
	if b.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, timetable.NewBackendError(TypeScripted, 0, ctx.Err())
		case <-time.After(b.Latency):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, timetable.NewBackendError(TypeScripted, 0, err)
	}

	b.mu.Lock()
	b.requests = append(b.requests, *req)
	n := len(b.requests)
	if len(b.steps) == 0 {
		b.mu.Unlock()
		return nil, timetable.NewBackendError(TypeScripted, 0, fmt.Errorf("no scripted responses"))
	}
	step := b.steps[b.next]
	if b.next < len(b.steps)-1 {
		b.next++
	}
	b.mu.Unlock()

	if step.Err != nil {
		return nil, timetable.NewBackendError(TypeScripted, 0, step.Err)
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = fmt.Sprintf("scripted-%d", n)
	}
	return &InvokeResult{
		Text:          step.Text,
		ExecutionTime: time.Since(start),
		Attempts:      1,
		Provider:      TypeScripted,
		ModelUsed:     TypeScripted,
		RequestID:     requestID,
	}, nil
}

// Requests returns a copy of every request received so far.
func (b *ScriptedBackend) Requests() []InvokeRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]InvokeRequest, len(b.requests))
	copy(out, b.requests)
	return out
}
