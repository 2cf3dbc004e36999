package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/rohit-sws/timetable/internal/timetable"
)

const (
	DeepSeekBaseURL      = "https://api.deepseek.com/v1"
	deepSeekDefaultModel = "deepseek-chat"
)

// CompatConfig holds configuration for an OpenAI-compatible text endpoint.
type CompatConfig struct {
	Name        string // registry name (default: "deepseek")
	APIKey      string
	BaseURL     string // default: DeepSeek
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	HTTPClient  *http.Client // optional (tests)
}

// CompatBackend calls any OpenAI-compatible chat endpoint in text mode only.
// DeepSeek is the default target.
type CompatBackend struct {
	name        string
	model       string
	temperature float32
	maxTokens   int
	client      *openai.Client
}

// NewCompatBackend creates a text-only backend.
func NewCompatBackend(cfg CompatConfig) *CompatBackend {
	if cfg.Name == "" {
		cfg.Name = TypeDeepSeek
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DeepSeekBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = deepSeekDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	} else {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &CompatBackend{
		name:        cfg.Name,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
		client:      openai.NewClientWithConfig(clientConfig),
	}
}

// Name returns the backend identifier.
func (b *CompatBackend) Name() string { return b.name }

// Accepts always reports false: this backend never takes a payload.
func (b *CompatBackend) Accepts(string) bool { return false }

// Model returns the configured model.
func (b *CompatBackend) Model() string { return b.model }

// Invoke sends one chat completion request. A request carrying a payload is
// refused before any network call.
func (b *CompatBackend) Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResult, error) {
	if len(req.Payload) > 0 {
		return nil, timetable.NewBackendError(b.name, 0, fmt.Errorf("%s backend is text-only, cannot send %s payload", b.name, req.MimeType))
	}
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       b.model,
		MaxTokens:   b.maxTokens,
		Temperature: b.temperature,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: req.Prompt,
		}},
	})
	if err != nil {
		return nil, b.mapError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, timetable.NewBackendError(b.name, 0, fmt.Errorf("empty content in response (model=%s, id=%s)", resp.Model, resp.ID))
	}

	return &InvokeResult{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		ExecutionTime:    time.Since(start),
		Attempts:         1,
		Provider:         b.name,
		ModelUsed:        resp.Model,
		RequestID:        requestID,
	}, nil
}

func (b *CompatBackend) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return timetable.NewBackendError(b.name, apiErr.HTTPStatusCode, fmt.Errorf("%s error (status %d): %s", b.name, apiErr.HTTPStatusCode, apiErr.Message))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return timetable.NewBackendError(b.name, reqErr.HTTPStatusCode, err)
	}
	return timetable.NewBackendError(b.name, 0, err)
}
