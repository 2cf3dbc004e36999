// Package llmcall records every backend invocation for traceability.
// Each call is stored with its prompt key and hash so a drop in extraction
// quality can be traced to the prompt version that caused it.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/rohit-sws/timetable/internal/providers"
)

// Call represents a recorded backend call.
type Call struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	RequestID string `json:"request_id,omitempty"`

	// Prompt traceability
	PromptKey  string `json:"prompt_key"`
	PromptHash string `json:"prompt_hash,omitempty"`

	// Model info
	Provider    string `json:"provider"`
	Model       string `json:"model,omitempty"`
	PayloadMIME string `json:"payload_mime,omitempty"`

	// Token usage
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	Response string `json:"response,omitempty"`

	// Status
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// FromInvoke creates a Call from one backend round trip. Either result or
// err may be nil.
func FromInvoke(provider string, req *providers.InvokeRequest, result *providers.InvokeResult, err error, latency time.Duration) *Call {
	call := &Call{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		LatencyMs: int(latency.Milliseconds()),
		Provider:  provider,
		Success:   err == nil,
	}
	if req != nil {
		call.RequestID = req.RequestID
		call.PromptKey = req.PromptKey
		call.PromptHash = req.PromptHash
		if len(req.Payload) > 0 {
			call.PayloadMIME = req.MimeType
		}
	}
	if result != nil {
		call.RequestID = result.RequestID
		call.Model = result.ModelUsed
		call.InputTokens = result.PromptTokens
		call.OutputTokens = result.CompletionTokens
		call.Response = result.Text
	}
	if err != nil {
		call.Error = err.Error()
	}
	return call
}
