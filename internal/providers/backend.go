// Package providers adapts generative-model services to the extraction
// Backend contract.
package providers

import (
	"context"
	"encoding/base64"
	"strings"
	"time"
)

// Backend type names as they appear in configuration.
const (
	TypeOpenRouter = "openrouter"
	TypeOpenAI     = "openai"
	TypeDeepSeek   = "deepseek"
	TypeScripted   = "scripted"
)

// Backend sends one prompt (and optionally one document payload) to a
// generative model and returns its raw text response. Implementations must
// return failures as *timetable.BackendError.
type Backend interface {
	// Name returns the provider identifier (e.g., "openrouter").
	Name() string

	// Accepts reports whether the backend can take a binary payload of the
	// given MIME type. Text-mode prompts never carry a payload.
	Accepts(mimeType string) bool

	// Invoke performs a single request.
	Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResult, error)
}

// InvokeRequest is one backend call.
type InvokeRequest struct {
	Prompt    string
	Payload   []byte // nil in text mode
	MimeType  string // MIME type of Payload
	RequestID string // generated when empty

	// Prompt traceability, carried through to call records.
	PromptKey  string
	PromptHash string
}

// InvokeResult is the raw backend response with accounting.
type InvokeResult struct {
	Text string `json:"text"`

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`

	ExecutionTime time.Duration `json:"execution_time"`
	Attempts      int           `json:"attempts"`

	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`
	RequestID string `json:"request_id"`
}

// dataURL encodes a payload as an RFC 2397 data URL.
func dataURL(mimeType string, payload []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(payload)
}

// matchMIME checks a MIME type against patterns like "image/*" or
// "application/pdf". Parameters (";charset=...") are ignored.
func matchMIME(patterns []string, mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" {
		return false
	}
	for _, p := range patterns {
		if p == mimeType {
			return true
		}
		if prefix, ok := strings.CutSuffix(p, "/*"); ok && strings.HasPrefix(mimeType, prefix+"/") {
			return true
		}
	}
	return false
}
