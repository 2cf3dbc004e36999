package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/rohit-sws/timetable/internal/timetable"
)

const openAIDefaultModel = "gpt-4o"

// OpenAIConfig holds configuration for the OpenAI backend.
type OpenAIConfig struct {
	Name        string // registry name (default: "openai")
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	MaxRetries  int           // SDK transport retries
	Timeout     time.Duration // HTTP timeout
	BaseURL     string        // optional (tests)
	HTTPClient  *http.Client  // optional (tests)
}

// OpenAIBackend implements Backend using the official OpenAI SDK. It takes
// images inline; PDFs have to go through text extraction.
type OpenAIBackend struct {
	name        string
	model       string
	temperature float64
	maxTokens   int
	client      openai.Client
}

var openAIMIMEs = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// NewOpenAIBackend creates a new OpenAI backend.
func NewOpenAIBackend(cfg OpenAIConfig) *OpenAIBackend {
	if cfg.Name == "" {
		cfg.Name = TypeOpenAI
	}
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIBackend{
		name:        cfg.Name,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      openai.NewClient(opts...),
	}
}

// Name returns the backend identifier.
func (b *OpenAIBackend) Name() string { return b.name }

// Accepts reports whether the payload is an image the vision API reads.
func (b *OpenAIBackend) Accepts(mimeType string) bool {
	return matchMIME(openAIMIMEs, mimeType)
}

// Model returns the configured model.
func (b *OpenAIBackend) Model() string { return b.model }

// Invoke sends one chat completion request.
func (b *OpenAIBackend) Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	var msg openai.ChatCompletionMessageParamUnion
	if len(req.Payload) == 0 {
		msg = openai.UserMessage(req.Prompt)
	} else {
		msg = openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(req.Prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: dataURL(req.MimeType, req.Payload),
			}),
		})
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{msg},
	}
	if b.temperature > 0 {
		params.Temperature = openai.Float(b.temperature)
	}
	if b.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(b.maxTokens))
	}

	resp, err := b.client.Chat.Completions.New(ctx, params, option.WithHeader("X-Request-Id", requestID))
	if err != nil {
		return nil, b.mapError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, timetable.NewBackendError(b.name, 0, fmt.Errorf("empty content in response (model=%s, id=%s)", resp.Model, resp.ID))
	}

	return &InvokeResult{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		ExecutionTime:    time.Since(start),
		Attempts:         1,
		Provider:         b.name,
		ModelUsed:        resp.Model,
		RequestID:        requestID,
	}, nil
}

func (b *OpenAIBackend) mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return timetable.NewBackendError(b.name, apiErr.StatusCode, fmt.Errorf("openai error (status %d): %s", apiErr.StatusCode, msg))
	}
	return timetable.NewBackendError(b.name, 0, err)
}
