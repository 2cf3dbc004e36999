package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/spf13/viper"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

// Entry is a single documented configuration key.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// DefaultEntries returns the default configuration entries.
// These are registered as viper defaults and listed by `config keys`.
func DefaultEntries() []Entry {
	return []Entry{
		// ===================
		// Backends
		// ===================

		// Backends - OpenRouter
		{
			Key:         "backends.openrouter.type",
			Value:       "openrouter",
			Description: "Backend type for OpenRouter",
		},
		{
			Key:         "backends.openrouter.model",
			Value:       "google/gemini-2.0-flash-001",
			Description: "Vision-capable model routed through OpenRouter",
		},
		{
			Key:         "backends.openrouter.api_key",
			Value:       "${OPENROUTER_API_KEY}",
			Description: "OpenRouter API key (uses environment variable)",
		},
		{
			Key:         "backends.openrouter.rate_limit",
			Value:       2.0,
			Description: "Rate limit in requests per second for OpenRouter",
		},
		{
			Key:         "backends.openrouter.max_retries",
			Value:       3,
			Description: "Maximum retry attempts for failed OpenRouter requests",
		},
		{
			Key:         "backends.openrouter.timeout_seconds",
			Value:       120,
			Description: "HTTP timeout in seconds for OpenRouter requests",
		},
		{
			Key:         "backends.openrouter.enabled",
			Value:       true,
			Description: "Whether the OpenRouter backend is enabled",
		},

		// Backends - OpenAI
		{
			Key:         "backends.openai.type",
			Value:       "openai",
			Description: "Backend type for OpenAI",
		},
		{
			Key:         "backends.openai.model",
			Value:       "gpt-4o-mini",
			Description: "Default OpenAI chat model",
		},
		{
			Key:         "backends.openai.api_key",
			Value:       "${OPENAI_API_KEY}",
			Description: "OpenAI API key (uses environment variable)",
		},
		{
			Key:         "backends.openai.max_retries",
			Value:       3,
			Description: "Maximum retry attempts handled by the OpenAI client",
		},
		{
			Key:         "backends.openai.timeout_seconds",
			Value:       120,
			Description: "HTTP timeout in seconds for OpenAI requests",
		},
		{
			Key:         "backends.openai.enabled",
			Value:       true,
			Description: "Whether the OpenAI backend is enabled",
		},

		// Backends - DeepSeek
		{
			Key:         "backends.deepseek.type",
			Value:       "deepseek",
			Description: "Backend type for DeepSeek (any OpenAI-compatible text endpoint)",
		},
		{
			Key:         "backends.deepseek.model",
			Value:       "deepseek-chat",
			Description: "Default DeepSeek model",
		},
		{
			Key:         "backends.deepseek.api_key",
			Value:       "${DEEPSEEK_API_KEY}",
			Description: "DeepSeek API key (uses environment variable)",
		},
		{
			Key:         "backends.deepseek.timeout_seconds",
			Value:       120,
			Description: "HTTP timeout in seconds for DeepSeek requests",
		},
		{
			Key:         "backends.deepseek.enabled",
			Value:       true,
			Description: "Whether the DeepSeek backend is enabled",
		},

		// ===================
		// Defaults
		// ===================
		{
			Key:         "defaults.backend",
			Value:       "openrouter",
			Description: "Backend used for image mode and file routing",
		},
		{
			Key:         "defaults.text_backend",
			Value:       "",
			Description: "Optional backend for text mode (empty uses defaults.backend)",
		},
		{
			Key:         "defaults.max_concurrency",
			Value:       4,
			Description: "Maximum concurrent extractions in batch and watch",
		},

		// ===================
		// Text extraction
		// ===================
		{
			Key:         "textextract.tika_url",
			Value:       "http://localhost:9998",
			Description: "Apache Tika server used for PDF and Word text extraction",
		},
		{
			Key:         "textextract.timeout_seconds",
			Value:       30,
			Description: "HTTP timeout in seconds for Tika requests",
		},
		{
			Key:         "textextract.max_pdf_pages",
			Value:       10,
			Description: "Reject PDFs longer than this before extraction (0 = no limit)",
		},
		{
			Key:         "textextract.enabled",
			Value:       true,
			Description: "Whether documents the backend cannot read are sent to Tika",
		},

		// ===================
		// Normalization
		// ===================
		{
			Key:         "normalize.allow_inverted_times",
			Value:       false,
			Description: "Keep timeblocks whose end is not after their start",
		},

		// ===================
		// Export
		// ===================
		{
			Key:         "export.timezone",
			Value:       "UTC",
			Description: "IANA timezone for calendar export",
		},
		{
			Key:         "export.week_of",
			Value:       "",
			Description: "First week of the exported calendar (YYYY-MM-DD, empty = current week)",
		},
		{
			Key:         "export.weeks",
			Value:       0,
			Description: "Number of weekly repetitions (0 = no end)",
		},

		// ===================
		// Call log
		// ===================
		{
			Key:         "call_log.enabled",
			Value:       true,
			Description: "Record every backend call for prompt-drift diagnosis",
		},
		{
			Key:         "call_log.path",
			Value:       "",
			Description: "Call log file (empty = {home}/calls.jsonl)",
		},
	}
}

// GetDefault returns the default entry for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// EntriesByPrefix returns default entries whose key starts with prefix, sorted by key.
func EntriesByPrefix(prefix string) []Entry {
	var out []Entry
	for _, e := range DefaultEntries() {
		if strings.HasPrefix(e.Key, prefix) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ResetToDefault resets a config key to its default value.
// Returns ErrNoDefault if no default exists for the key.
func ResetToDefault(v *viper.Viper, key string) error {
	def := GetDefault(key)
	if def == nil {
		return fmt.Errorf("%w for key %q", ErrNoDefault, key)
	}
	v.Set(key, def.Value)
	return nil
}

func seedDefaults(v *viper.Viper) {
	for _, e := range DefaultEntries() {
		v.SetDefault(e.Key, e.Value)
	}
}
