package providers

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"
)

// BackendConfig is one configured backend with its API key already resolved.
type BackendConfig struct {
	Type        string // "openrouter", "openai", "deepseek", "scripted"
	Model       string
	APIKey      string
	BaseURL     string
	RateLimit   float64 // requests per second
	MaxRetries  int
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	Enabled     bool
	Script      []string // canned responses for the scripted type
}

// Registry holds the configured backends by name. It is safe for concurrent
// use and can be reloaded when configuration changes.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
	configs  map[string]BackendConfig
	logger   *slog.Logger
}

// NewRegistry creates a new empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		backends: make(map[string]Backend),
		configs:  make(map[string]BackendConfig),
		logger:   logger,
	}
}

// NewRegistryFromConfig creates a registry holding every enabled backend
// that has credentials.
func NewRegistryFromConfig(cfgs map[string]BackendConfig, logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	r.Reload(cfgs)
	return r
}

// Register adds or replaces a backend by name.
func (r *Registry) Register(name string, b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = b
	delete(r.configs, name)
	r.logger.Info("registered backend", "name", name)
}

// Get returns a backend by name.
func (r *Registry) Get(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("backend not found: %s", name)
	}
	return b, nil
}

// Names returns all registered backend names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reload updates the registry from configuration. Backends that are no
// longer configured are removed; backends whose settings changed are
// recreated; untouched ones keep their state (rate limiter included).
func (r *Registry) Reload(cfgs map[string]BackendConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool, len(cfgs))
	for name, cfg := range cfgs {
		if !usable(cfg) {
			continue
		}
		want[name] = true

		prev, has := r.configs[name]
		if has && equalConfig(prev, cfg) {
			continue
		}
		b, err := NewBackend(name, cfg)
		if err != nil {
			r.logger.Warn("skipping backend", "name", name, "type", cfg.Type, "error", err)
			delete(want, name)
			continue
		}
		_, existed := r.backends[name]
		r.backends[name] = b
		r.configs[name] = cfg
		if existed {
			r.logger.Info("updated backend", "name", name, "type", cfg.Type, "model", cfg.Model)
		} else {
			r.logger.Info("registered backend", "name", name, "type", cfg.Type, "model", cfg.Model)
		}
	}

	for name := range r.configs {
		if !want[name] {
			delete(r.backends, name)
			delete(r.configs, name)
			r.logger.Info("unregistered backend", "name", name)
		}
	}
}

// NewBackend creates a backend from its configuration.
func NewBackend(name string, cfg BackendConfig) (Backend, error) {
	switch cfg.Type {
	case TypeOpenRouter:
		return NewOpenRouterBackend(OpenRouterConfig{
			Name:        name,
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
			RateLimit:   cfg.RateLimit,
			MaxRetries:  cfg.MaxRetries,
		}), nil
	case TypeOpenAI:
		return NewOpenAIBackend(OpenAIConfig{
			Name:        name,
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			MaxRetries:  cfg.MaxRetries,
			Timeout:     cfg.Timeout,
		}), nil
	case TypeDeepSeek:
		return NewCompatBackend(CompatConfig{
			Name:        name,
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		}), nil
	case TypeScripted:
		return NewScriptedBackend(cfg.Script...), nil
	default:
		return nil, fmt.Errorf("unknown backend type %q", cfg.Type)
	}
}

// usable reports whether a configured backend should be instantiated.
func usable(cfg BackendConfig) bool {
	if !cfg.Enabled {
		return false
	}
	return cfg.Type == TypeScripted || cfg.APIKey != ""
}

func equalConfig(a, b BackendConfig) bool {
	return a.Type == b.Type &&
		a.Model == b.Model &&
		a.APIKey == b.APIKey &&
		a.BaseURL == b.BaseURL &&
		a.RateLimit == b.RateLimit &&
		a.MaxRetries == b.MaxRetries &&
		a.Timeout == b.Timeout &&
		a.Temperature == b.Temperature &&
		a.MaxTokens == b.MaxTokens &&
		a.Enabled == b.Enabled &&
		slices.Equal(a.Script, b.Script)
}
