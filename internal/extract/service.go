// Package extract runs the extraction pipeline: prompt, backend call,
// response parsing and normalization.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rohit-sws/timetable/internal/normalize"
	"github.com/rohit-sws/timetable/internal/prompts"
	"github.com/rohit-sws/timetable/internal/providers"
	"github.com/rohit-sws/timetable/internal/response"
	"github.com/rohit-sws/timetable/internal/textextract"
	"github.com/rohit-sws/timetable/internal/timetable"
)

// Options configures a Service.
type Options struct {
	// Backend handles image mode, and text mode when TextBackend is nil.
	Backend providers.Backend

	// TextBackend optionally handles text mode (e.g., a cheaper text-only model).
	TextBackend providers.Backend

	// Extractor turns documents the backend cannot read into text. Optional.
	Extractor textextract.Extractor

	// Prompts renders prompts (default: prompts.NewBuilder()).
	Prompts *prompts.Builder

	Normalize normalize.Options

	// MaxPDFPages refuses longer PDFs before any backend call (0 = no limit).
	// Unparseable PDFs are always refused.
	MaxPDFPages int

	// Logger (default: slog.Default()).
	Logger *slog.Logger
}

// Service extracts timetables. It holds no per-call state.
type Service struct {
	backend     providers.Backend
	textBackend providers.Backend
	extractor   textextract.Extractor
	prompts     *prompts.Builder
	normalizer  *normalize.Normalizer
	maxPages    int
	logger      *slog.Logger
}

// New creates a Service.
func New(opts Options) (*Service, error) {
	if opts.Backend == nil {
		return nil, errors.New("extract: backend is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	textBackend := opts.TextBackend
	if textBackend == nil {
		textBackend = opts.Backend
	}
	builder := opts.Prompts
	if builder == nil {
		builder = prompts.NewBuilder()
	}
	nopts := opts.Normalize
	if nopts.Logger == nil {
		nopts.Logger = logger
	}

	return &Service{
		backend:     opts.Backend,
		textBackend: textBackend,
		extractor:   opts.Extractor,
		prompts:     builder,
		normalizer:  normalize.New(nopts),
		maxPages:    opts.MaxPDFPages,
		logger:      logger,
	}, nil
}

// Result is a successful extraction with its provenance.
type Result struct {
	Source     string        `json:"source" yaml:"source"`
	MimeType   string        `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	Mode       prompts.Mode  `json:"mode" yaml:"mode"`
	Backend    string        `json:"backend" yaml:"backend"`
	Model      string        `json:"model,omitempty" yaml:"model,omitempty"`
	RequestID  string        `json:"request_id" yaml:"request_id"`
	PromptKey  string        `json:"prompt_key" yaml:"prompt_key"`
	PromptHash string        `json:"prompt_hash" yaml:"prompt_hash"`
	Duration   time.Duration `json:"duration" yaml:"duration"`

	Report *normalize.Report `json:"report" yaml:"report"`

	// Raw is the backend reply before parsing, kept for offline re-normalization.
	Raw string `json:"-" yaml:"-"`
}

// Timetable returns the canonical extraction result.
func (r *Result) Timetable() *timetable.ExtractionResult {
	return &r.Report.Result
}

// ExtractText extracts a timetable from already-extracted document text.
func (s *Service) ExtractText(ctx context.Context, text string) (*Result, error) {
	return s.extractText(ctx, text, "text", "")
}

// ExtractImage extracts a timetable from a binary document the backend reads
// natively (an image, or a PDF for backends that accept one).
func (s *Service) ExtractImage(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	mimeType = textextract.BaseMIME(mimeType)
	if err := s.checkPDF(data, mimeType, "image"); err != nil {
		return nil, err
	}
	return s.extractImage(ctx, data, mimeType, "image")
}

// ExtractDocument routes a document to image mode or text mode:
// payloads the backend accepts go inline, plain text is used as is, anything
// else goes through the text extractor.
func (s *Service) ExtractDocument(ctx context.Context, data []byte, mimeType, source string) (*Result, error) {
	mimeType = textextract.BaseMIME(mimeType)
	if err := s.checkPDF(data, mimeType, source); err != nil {
		return nil, err
	}

	switch {
	case s.backend.Accepts(mimeType):
		return s.extractImage(ctx, data, mimeType, source)

	case textextract.IsPlainText(mimeType):
		return s.extractText(ctx, string(data), source, mimeType)

	case s.extractor != nil && s.extractor.IsSupported(mimeType):
		text, err := s.extractor.ExtractText(ctx, data, mimeType)
		if err != nil {
			return nil, fmt.Errorf("text extraction failed for %s: %w", source, err)
		}
		s.logger.Debug("document converted to text", "source", source, "mime_type", mimeType, "chars", len(text))
		return s.extractText(ctx, text, source, mimeType)

	default:
		return nil, fmt.Errorf("%w: %s (%s) is not readable by backend %s and no text extractor handles it",
			timetable.ErrUnsupportedSource, source, mimeType, s.backend.Name())
	}
}

// ExtractFile reads a file, detects its type and routes it.
func (s *Service) ExtractFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return s.ExtractDocument(ctx, data, textextract.DetectMIME(path, data), path)
}

// checkPDF refuses unreadable or oversized PDFs. Other types pass.
func (s *Service) checkPDF(data []byte, mimeType, source string) error {
	if mimeType != textextract.MimePDF || len(data) == 0 {
		return nil
	}
	pages, err := textextract.CheckPDF(data, s.maxPages)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", timetable.ErrUnsupportedSource, source, err)
	}
	s.logger.Debug("pdf checked", "source", source, "pages", pages)
	return nil
}

func (s *Service) extractText(ctx context.Context, text, source, mimeType string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %s has no text", timetable.ErrEmptyExtraction, source)
	}
	rendered := s.prompts.Text(text)
	return s.run(ctx, s.textBackend, rendered, &providers.InvokeRequest{Prompt: rendered.Text}, source, mimeType)
}

func (s *Service) extractImage(ctx context.Context, data []byte, mimeType, source string) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", timetable.ErrUnsupportedSource, source)
	}
	if !s.backend.Accepts(mimeType) {
		return nil, fmt.Errorf("%w: backend %s cannot read %s", timetable.ErrUnsupportedSource, s.backend.Name(), mimeType)
	}
	rendered := s.prompts.Image(mimeType)
	req := &providers.InvokeRequest{Prompt: rendered.Text, Payload: data, MimeType: mimeType}
	return s.run(ctx, s.backend, rendered, req, source, mimeType)
}

// run performs the single backend call and validates its output.
func (s *Service) run(ctx context.Context, backend providers.Backend, rendered prompts.Rendered, req *providers.InvokeRequest, source, mimeType string) (*Result, error) {
	start := time.Now()
	req.RequestID = uuid.New().String()
	req.PromptKey = rendered.Key
	req.PromptHash = rendered.Hash

	logger := s.logger.With(
		"request_id", req.RequestID,
		"source", source,
		"backend", backend.Name(),
		"mode", string(rendered.Mode))

	out, err := backend.Invoke(ctx, req)
	if err != nil {
		logger.Error("backend call failed", "error", err)
		return nil, err
	}

	doc, err := response.Parse(out.Text)
	if err != nil {
		logger.Warn("unparseable backend response", "error", err, "chars", len(out.Text))
		return nil, err
	}

	report, err := s.normalizer.Normalize(doc)
	if err != nil {
		logger.Warn("backend response rejected", "error", err)
		return nil, err
	}

	result := &Result{
		Source:     source,
		MimeType:   mimeType,
		Mode:       rendered.Mode,
		Backend:    backend.Name(),
		Model:      out.ModelUsed,
		RequestID:  req.RequestID,
		PromptKey:  rendered.Key,
		PromptHash: rendered.Hash,
		Duration:   time.Since(start),
		Report:     report,
		Raw:        out.Text,
	}
	logger.Info("extraction complete",
		"timeblocks", len(report.Result.Timeblocks),
		"rejected", len(report.Rejections),
		"days", len(report.Result.Days()),
		"model", out.ModelUsed,
		"duration", result.Duration)
	return result, nil
}
