package llmcall

import (
	"context"
	"log/slog"
	"time"

	"github.com/rohit-sws/timetable/internal/providers"
)

// Recorder wraps a Backend and logs every invocation to a Store. Recording
// failures are logged and never fail the call.
type Recorder struct {
	backend providers.Backend
	store   *Store
	logger  *slog.Logger
}

var _ providers.Backend = (*Recorder)(nil)

// NewRecorder wraps backend. A nil store disables recording.
func NewRecorder(backend providers.Backend, store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{backend: backend, store: store, logger: logger}
}

// Name returns the wrapped backend's name.
func (r *Recorder) Name() string { return r.backend.Name() }

// Accepts delegates to the wrapped backend.
func (r *Recorder) Accepts(mimeType string) bool { return r.backend.Accepts(mimeType) }

// Invoke calls the wrapped backend and records the outcome.
func (r *Recorder) Invoke(ctx context.Context, req *providers.InvokeRequest) (*providers.InvokeResult, error) {
	start := time.Now()
	result, err := r.backend.Invoke(ctx, req)
	if r.store == nil {
		return result, err
	}

	call := FromInvoke(r.backend.Name(), req, result, err, time.Since(start))
	if recErr := r.store.Append(call); recErr != nil {
		r.logger.Warn("failed to record backend call",
			"error", recErr,
			"provider", call.Provider,
			"prompt_key", call.PromptKey)
	}
	return result, err
}
