package config

import (
	"sort"
	"time"

	"github.com/rohit-sws/timetable/internal/providers"
)

// Config holds timetable configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Backends    map[string]BackendCfg `mapstructure:"backends" yaml:"backends"`
	Defaults    DefaultsCfg           `mapstructure:"defaults" yaml:"defaults"`
	TextExtract TextExtractCfg        `mapstructure:"textextract" yaml:"textextract"`
	Normalize   NormalizeCfg          `mapstructure:"normalize" yaml:"normalize"`
	Export      ExportCfg             `mapstructure:"export" yaml:"export"`
	CallLog     CallLogCfg            `mapstructure:"call_log" yaml:"call_log"`
}

// BackendCfg configures an extraction backend.
type BackendCfg struct {
	Type           string   `mapstructure:"type" yaml:"type"`             // "openrouter", "openai", "deepseek", "scripted"
	Model          string   `mapstructure:"model" yaml:"model"`           // Model name
	APIKey         string   `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	BaseURL        string   `mapstructure:"base_url" yaml:"base_url,omitempty"`
	RateLimit      float64  `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	MaxRetries     int      `mapstructure:"max_retries" yaml:"max_retries"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Temperature    float64  `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int      `mapstructure:"max_tokens" yaml:"max_tokens"`
	Enabled        bool     `mapstructure:"enabled" yaml:"enabled"`
	Script         []string `mapstructure:"script" yaml:"script,omitempty"` // Canned replies (scripted only)
}

// DefaultsCfg specifies default backend selections.
type DefaultsCfg struct {
	Backend        string `mapstructure:"backend" yaml:"backend"`           // Backend for image mode and routing
	TextBackend    string `mapstructure:"text_backend" yaml:"text_backend"` // Optional backend for text mode
	MaxConcurrency int    `mapstructure:"max_concurrency" yaml:"max_concurrency"`
}

// TextExtractCfg configures the Tika text extractor.
type TextExtractCfg struct {
	TikaURL        string `mapstructure:"tika_url" yaml:"tika_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxPDFPages    int    `mapstructure:"max_pdf_pages" yaml:"max_pdf_pages"`
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
}

// NormalizeCfg configures candidate validation.
type NormalizeCfg struct {
	AllowInvertedTimes bool `mapstructure:"allow_inverted_times" yaml:"allow_inverted_times"`
}

// ExportCfg configures calendar export.
type ExportCfg struct {
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
	WeekOf   string `mapstructure:"week_of" yaml:"week_of"` // YYYY-MM-DD; empty means the current week
	Weeks    int    `mapstructure:"weeks" yaml:"weeks"`     // 0 repeats forever
}

// CallLogCfg configures the backend call log.
type CallLogCfg struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"` // empty means {home}/calls.jsonl
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backends: map[string]BackendCfg{
			"openrouter": {
				Type:           providers.TypeOpenRouter,
				Model:          "google/gemini-2.0-flash-001",
				APIKey:         "${OPENROUTER_API_KEY}",
				RateLimit:      2.0,
				MaxRetries:     3,
				TimeoutSeconds: 120,
				Enabled:        true,
			},
			"openai": {
				Type:           providers.TypeOpenAI,
				Model:          "gpt-4o-mini",
				APIKey:         "${OPENAI_API_KEY}",
				MaxRetries:     3,
				TimeoutSeconds: 120,
				Enabled:        true,
			},
			"deepseek": {
				Type:           providers.TypeDeepSeek,
				Model:          "deepseek-chat",
				APIKey:         "${DEEPSEEK_API_KEY}",
				TimeoutSeconds: 120,
				Enabled:        true,
			},
		},
		Defaults: DefaultsCfg{
			Backend:        "openrouter",
			MaxConcurrency: 4,
		},
		TextExtract: TextExtractCfg{
			TikaURL:        "http://localhost:9998",
			TimeoutSeconds: 30,
			MaxPDFPages:    10,
			Enabled:        true,
		},
		Export: ExportCfg{
			Timezone: "UTC",
		},
		CallLog: CallLogCfg{
			Enabled: true,
		},
	}
}

// GetBackend returns a backend config by name.
func (c *Config) GetBackend(name string) (BackendCfg, bool) {
	cfg, ok := c.Backends[name]
	return cfg, ok
}

// EnabledBackends returns the names of all enabled backends, sorted.
func (c *Config) EnabledBackends() []string {
	var names []string
	for name, cfg := range c.Backends {
		if cfg.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ToBackendConfigs converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys and base URLs.
func (c *Config) ToBackendConfigs() map[string]providers.BackendConfig {
	out := make(map[string]providers.BackendConfig, len(c.Backends))
	for name, b := range c.Backends {
		out[name] = providers.BackendConfig{
			Type:        b.Type,
			Model:       b.Model,
			APIKey:      ResolveEnvVars(b.APIKey),
			BaseURL:     ResolveEnvVars(b.BaseURL),
			RateLimit:   b.RateLimit,
			MaxRetries:  b.MaxRetries,
			Timeout:     time.Duration(b.TimeoutSeconds) * time.Second,
			Temperature: b.Temperature,
			MaxTokens:   b.MaxTokens,
			Enabled:     b.Enabled,
			Script:      b.Script,
		}
	}
	return out
}
