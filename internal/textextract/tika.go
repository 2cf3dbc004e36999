// Package textextract turns documents that a backend cannot read inline
// (DOCX, PDFs for image-only backends) into plain text using Apache Tika.
package textextract

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ErrUnsupportedType is returned for MIME types the extractor cannot read.
var ErrUnsupportedType = errors.New("unsupported content type")

// ErrNoText is returned when a document yields no text at all.
var ErrNoText = errors.New("document contains no extractable text")

// Extractor turns a document into plain text.
type Extractor interface {
	ExtractText(ctx context.Context, data []byte, contentType string) (string, error)
	IsSupported(contentType string) bool
}

// SupportedMimeTypes lists the document types sent to Tika.
var SupportedMimeTypes = []string{
	MimePDF,
	MimeDOC,
	MimeDOCX,
	"application/rtf",
	"text/rtf",
	"application/vnd.oasis.opendocument.text",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	MimeText,
	"text/markdown",
	"text/csv",
}

// Config holds the text extraction configuration.
type Config struct {
	// TikaURL is the Tika server base URL (e.g., http://localhost:9998).
	TikaURL string
	// Timeout is the HTTP timeout for Tika requests.
	Timeout time.Duration
	// MaxPDFPages rejects longer PDFs before they reach Tika (0 = no limit).
	MaxPDFPages int
	// Logger (default: slog.Default()).
	Logger *slog.Logger
}

// DefaultConfig returns the default text extraction configuration.
func DefaultConfig() *Config {
	return &Config{
		TikaURL:     "http://localhost:9998",
		Timeout:     30 * time.Second,
		MaxPDFPages: 10,
	}
}

// Client extracts text through a Tika server. Plain text is decoded locally.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new text extraction client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// ExtractText extracts the text of a document.
func (c *Client) ExtractText(ctx context.Context, data []byte, contentType string) (string, error) {
	contentType = BaseMIME(contentType)
	if !c.IsSupported(contentType) {
		return "", errors.Wrapf(ErrUnsupportedType, "%s", contentType)
	}

	if IsPlainText(contentType) {
		return decodePlain(data)
	}

	if contentType == MimePDF {
		pages, err := CheckPDF(data, c.config.MaxPDFPages)
		if err != nil {
			return "", err
		}
		c.logger.Debug("pdf inspected", "pages", pages, "bytes", len(data))
	}

	text, err := c.extractFromServer(ctx, data, contentType)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.Wrapf(ErrNoText, "%s", contentType)
	}
	return text, nil
}

// extractFromServer sends the document to Tika's /tika endpoint.
func (c *Client) extractFromServer(ctx context.Context, data []byte, contentType string) (string, error) {
	if c.config.TikaURL == "" {
		return "", errors.New("no Tika server configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		strings.TrimRight(c.config.TikaURL, "/")+"/tika",
		bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/plain")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "tika request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errors.Errorf("tika server returned status %d: %s", resp.StatusCode, string(body))
	}

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response")
	}

	c.logger.Debug("tika extraction complete",
		"content_type", contentType,
		"chars", len(text),
		"duration", time.Since(start))
	return string(text), nil
}

// IsAvailable checks whether the Tika server answers.
func (c *Client) IsAvailable(ctx context.Context) bool {
	if c.config.TikaURL == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.config.TikaURL, "/")+"/tika", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// IsSupported checks if a MIME type is supported.
func (c *Client) IsSupported(contentType string) bool {
	contentType = BaseMIME(contentType)
	for _, supported := range SupportedMimeTypes {
		if strings.EqualFold(contentType, supported) {
			return true
		}
	}
	return false
}

// decodePlain validates and returns plain text content.
func decodePlain(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", errors.New("text is not valid UTF-8")
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
