package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/rohit-sws/timetable/internal/timetable"
)

const (
	OpenRouterBaseURL      = "https://openrouter.ai/api/v1"
	openRouterDefaultModel = "google/gemini-2.0-flash-001"
)

// OpenRouterConfig holds configuration for the OpenRouter backend.
type OpenRouterConfig struct {
	Name        string // registry name (default: "openrouter")
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	RateLimit   float64       // requests per second (default: 2)
	MaxRetries  int           // attempts including the first (default: 3)
	RetryDelay  time.Duration // base backoff (default: 1s)
	HTTPClient  *http.Client  // optional (tests)
}

// OpenRouterBackend talks to OpenRouter's OpenAI-compatible chat endpoint.
// It is the only backend that can read PDFs natively.
type OpenRouterBackend struct {
	name        string
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	maxRetries  int
	retryDelay  time.Duration
	client      *http.Client
	limiter     *rate.Limiter
}

var openRouterMIMEs = []string{"image/*", "application/pdf"}

// NewOpenRouterBackend creates a new OpenRouter backend.
func NewOpenRouterBackend(cfg OpenRouterConfig) *OpenRouterBackend {
	if cfg.Name == "" {
		cfg.Name = TypeOpenRouter
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openRouterDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenRouterBackend{
		name:        cfg.Name,
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		client:      httpClient,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
	}
}

// Name returns the backend identifier.
func (b *OpenRouterBackend) Name() string { return b.name }

// Accepts reports whether the payload can be sent inline.
func (b *OpenRouterBackend) Accepts(mimeType string) bool {
	return matchMIME(openRouterMIMEs, mimeType)
}

// Model returns the configured model.
func (b *OpenRouterBackend) Model() string { return b.model }

// Invoke sends one chat completion request.
func (b *OpenRouterBackend) Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	body := openRouterRequest{
		Model:       b.model,
		Temperature: b.temperature,
		MaxTokens:   b.maxTokens,
		Messages: []openRouterMessage{{
			Role:    "user",
			Content: b.content(req),
		}},
	}

	resp, attempts, err := b.doRequest(ctx, &body)
	if err != nil {
		return nil, err
	}

	text := resp.text()
	if strings.TrimSpace(text) == "" {
		return nil, timetable.NewBackendError(b.name, 0, fmt.Errorf("empty content in response (model=%s, id=%s)", resp.Model, resp.ID))
	}

	model := resp.Model
	if model == "" {
		model = b.model
	}
	return &InvokeResult{
		Text:             text,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		ExecutionTime:    time.Since(start),
		Attempts:         attempts,
		Provider:         b.name,
		ModelUsed:        model,
		RequestID:        requestID,
	}, nil
}

// content builds the user message: a bare string in text mode, or text plus
// an inline document part.
func (b *OpenRouterBackend) content(req *InvokeRequest) any {
	if len(req.Payload) == 0 {
		return req.Prompt
	}

	parts := []openRouterContent{{Type: "text", Text: req.Prompt}}
	url := dataURL(req.MimeType, req.Payload)
	if strings.HasPrefix(strings.ToLower(req.MimeType), "application/pdf") {
		parts = append(parts, openRouterContent{
			Type: "file",
			File: &openRouterFile{Filename: "timetable.pdf", FileData: url},
		})
	} else {
		parts = append(parts, openRouterContent{
			Type:     "image_url",
			ImageURL: &openRouterImageURL{URL: url},
		})
	}
	return parts
}

// doRequest posts the request, retrying rate limits, server errors and
// transport failures.
func (b *OpenRouterBackend) doRequest(ctx context.Context, body *openRouterRequest) (*openRouterResponse, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, timetable.NewBackendError(b.name, 0, fmt.Errorf("failed to marshal request: %w", err))
	}

	jitter := b.retryDelay / 2
	if jitter <= 0 {
		jitter = time.Millisecond
	}

	var (
		out      *openRouterResponse
		attempts int
	)
	err = retry.Do(
		func() error {
			attempts++
			if err := b.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := b.post(ctx, payload)
			if err != nil {
				return err
			}
			out = resp
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(b.maxRetries)),
		retry.Delay(b.retryDelay),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(jitter),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
	)
	if err != nil {
		var be *timetable.BackendError
		if errors.As(err, &be) {
			return nil, attempts, be
		}
		return nil, attempts, timetable.NewBackendError(b.name, 0, err)
	}
	return out, attempts, nil
}

func (b *OpenRouterBackend) post(ctx context.Context, payload []byte) (*openRouterResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, retry.Unrecoverable(timetable.NewBackendError(b.name, 0, fmt.Errorf("failed to create request: %w", err)))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/rohit-sws/timetable")
	httpReq.Header.Set("X-Title", "Timetable")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, &transientError{timetable.NewBackendError(b.name, 0, fmt.Errorf("request failed: %w", err))}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{timetable.NewBackendError(b.name, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))}
	}

	if resp.StatusCode != http.StatusOK {
		err := timetable.NewBackendError(b.name, resp.StatusCode, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 512)))
		if retryableStatus(resp.StatusCode) {
			return nil, &transientError{err}
		}
		return nil, err
	}

	var orResp openRouterResponse
	if err := json.Unmarshal(respBody, &orResp); err != nil {
		return nil, timetable.NewBackendError(b.name, resp.StatusCode, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	// OpenRouter reports upstream model failures inside a 200 body.
	if orResp.Error != nil {
		code := fmt.Sprintf("%v", orResp.Error.Code)
		err := timetable.NewBackendError(b.name, resp.StatusCode, fmt.Errorf("api error %s: %s", code, orResp.Error.Message))
		switch code {
		case "overloaded", "rate_limit_exceeded", "429", "500", "502", "503":
			return nil, &transientError{err}
		}
		return nil, err
	}
	if len(orResp.Choices) == 0 {
		return nil, &transientError{timetable.NewBackendError(b.name, resp.StatusCode, fmt.Errorf("empty choices in response (model=%s, id=%s)", orResp.Model, orResp.ID))}
	}
	return &orResp, nil
}

// transientError marks a failure worth another attempt.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type openRouterRequest struct {
	Model       string              `json:"model"`
	Messages    []openRouterMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []openRouterContent
}

type openRouterContent struct {
	Type     string              `json:"type"`
	Text     string              `json:"text,omitempty"`
	ImageURL *openRouterImageURL `json:"image_url,omitempty"`
	File     *openRouterFile     `json:"file,omitempty"`
}

type openRouterImageURL struct {
	URL string `json:"url"`
}

type openRouterFile struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

type openRouterResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *openRouterError `json:"error,omitempty"`
}

type openRouterError struct {
	Message string `json:"message"`
	Code    any    `json:"code,omitempty"` // string or int
}

// text flattens the first choice's content, which some models return as an
// array of parts.
func (r *openRouterResponse) text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	switch c := r.Choices[0].Message.Content.(type) {
	case string:
		return c
	case []any:
		var sb strings.Builder
		for _, part := range c {
			if m, ok := part.(map[string]any); ok {
				if s, ok := m["text"].(string); ok {
					sb.WriteString(s)
				}
			}
		}
		return sb.String()
	default:
		return ""
	}
}
