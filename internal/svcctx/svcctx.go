// Package svcctx provides service context for dependency injection via context.
// Commands build Services once and pull what they need back out.
package svcctx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rohit-sws/timetable/internal/config"
	"github.com/rohit-sws/timetable/internal/extract"
	"github.com/rohit-sws/timetable/internal/home"
	"github.com/rohit-sws/timetable/internal/llmcall"
	"github.com/rohit-sws/timetable/internal/normalize"
	"github.com/rohit-sws/timetable/internal/prompts"
	"github.com/rohit-sws/timetable/internal/providers"
	"github.com/rohit-sws/timetable/internal/textextract"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Config       *config.Manager
	Registry     *providers.Registry
	Prompts      *prompts.Builder
	Extractor    textextract.Extractor
	Logger       *slog.Logger
	Home         *home.Dir
	LLMCallStore *llmcall.Store
}

// New builds Services from configuration. The backend registry follows
// config file changes once the manager is watching.
func New(mgr *config.Manager, h *home.Dir, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := mgr.Get()

	registry := providers.NewRegistryFromConfig(cfg.ToBackendConfigs(), logger)
	mgr.OnChange(func(c *config.Config) {
		registry.Reload(c.ToBackendConfigs())
		logger.Info("backend registry reloaded from config")
	})

	s := &Services{
		Config:   mgr,
		Registry: registry,
		Prompts:  prompts.NewBuilder(),
		Logger:   logger,
		Home:     h,
	}

	if cfg.TextExtract.Enabled {
		s.Extractor = textextract.NewClient(&textextract.Config{
			TikaURL:     config.ResolveEnvVars(cfg.TextExtract.TikaURL),
			Timeout:     time.Duration(cfg.TextExtract.TimeoutSeconds) * time.Second,
			MaxPDFPages: cfg.TextExtract.MaxPDFPages,
			Logger:      logger,
		})
	}

	if cfg.CallLog.Enabled {
		path := cfg.CallLog.Path
		if path == "" && h != nil {
			path = h.CallLogPath()
		}
		if path != "" {
			s.LLMCallStore = llmcall.NewStore(path)
		}
	}

	return s
}

// Selection picks backends for one extraction. Empty names fall back to
// defaults.backend and defaults.text_backend.
type Selection struct {
	Backend     string
	TextBackend string
}

// ExtractService assembles an extraction service over the selected backends.
// Each backend is wrapped so its calls land in the call log.
func (s *Services) ExtractService(sel Selection) (*extract.Service, error) {
	cfg := s.Config.Get()

	name := sel.Backend
	if name == "" {
		name = cfg.Defaults.Backend
	}
	backend, err := s.backend(name)
	if err != nil {
		return nil, err
	}

	var textBackend providers.Backend
	textName := sel.TextBackend
	if textName == "" {
		textName = cfg.Defaults.TextBackend
	}
	if textName != "" && textName != name {
		if textBackend, err = s.backend(textName); err != nil {
			return nil, err
		}
	}

	return extract.New(extract.Options{
		Backend:     backend,
		TextBackend: textBackend,
		Extractor:   s.Extractor,
		Prompts:     s.Prompts,
		Normalize:   normalize.Options{AllowInvertedTimes: cfg.Normalize.AllowInvertedTimes},
		MaxPDFPages: cfg.TextExtract.MaxPDFPages,
		Logger:      s.Logger,
	})
}

func (s *Services) backend(name string) (providers.Backend, error) {
	b, err := s.Registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w (configured: %v; check enabled and api_key)", err, s.Registry.Names())
	}
	return llmcall.NewRecorder(b, s.LLMCallStore, s.Logger), nil
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// RegistryFrom extracts the backend registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// PromptsFrom extracts the prompt builder from context.
func PromptsFrom(ctx context.Context) *prompts.Builder {
	if s := ServicesFrom(ctx); s != nil {
		return s.Prompts
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// LLMCallStoreFrom extracts the backend call store from context.
func LLMCallStoreFrom(ctx context.Context) *llmcall.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.LLMCallStore
	}
	return nil
}
