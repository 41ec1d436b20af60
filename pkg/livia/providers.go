package livia

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/renandav/livia/pkg/audio"
	"github.com/renandav/livia/pkg/backend"
	backendmock "github.com/renandav/livia/pkg/backend/mock"
	"github.com/renandav/livia/pkg/configutil"
	"github.com/renandav/livia/pkg/live"
	livemock "github.com/renandav/livia/pkg/live/mock"
	"github.com/renandav/livia/pkg/resilience"
	"github.com/renandav/livia/pkg/tool"
	"github.com/renandav/livia/pkg/turnlog"
)

type LiveFactory func(cfg Config, defs []tool.Definition, logger *slog.Logger) (live.Client, error)
type BackendFactory func(cfg Config) (backend.PartnerService, error)
type StoreFactory func(ctx context.Context, cfg Config) (turnlog.Store, error)
type SinkFactory func(cfg Config) (audio.Sink, error)

// ProviderRegistry maps provider names from config to factories. The engine
// resolves every swappable component through it, so deployments can add a
// provider without touching the engine assembly.
type ProviderRegistry struct {
	live    map[string]LiveFactory
	backend map[string]BackendFactory
	store   map[string]StoreFactory
	sink    map[string]SinkFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		live:    make(map[string]LiveFactory),
		backend: make(map[string]BackendFactory),
		store:   make(map[string]StoreFactory),
		sink:    make(map[string]SinkFactory),
	}
}

func (r *ProviderRegistry) RegisterLive(name string, factory LiveFactory) {
	r.live[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) RegisterBackend(name string, factory BackendFactory) {
	r.backend[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) RegisterStore(name string, factory StoreFactory) {
	r.store[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) RegisterSink(name string, factory SinkFactory) {
	r.sink[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) BuildLive(provider string, cfg Config, defs []tool.Definition, logger *slog.Logger) (live.Client, error) {
	fn := r.live[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("live provider not registered: %s", provider)
	}
	return fn(cfg, defs, logger)
}

func (r *ProviderRegistry) BuildBackend(provider string, cfg Config) (backend.PartnerService, error) {
	fn := r.backend[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("backend provider not registered: %s", provider)
	}
	return fn(cfg)
}

func (r *ProviderRegistry) BuildStore(ctx context.Context, name string, cfg Config) (turnlog.Store, error) {
	fn := r.store[strings.ToLower(strings.TrimSpace(name))]
	if fn == nil {
		return nil, fmt.Errorf("turnlog store not registered: %s", name)
	}
	return fn(ctx, cfg)
}

func (r *ProviderRegistry) BuildSink(name string, cfg Config) (audio.Sink, error) {
	fn := r.sink[strings.ToLower(strings.TrimSpace(name))]
	if fn == nil {
		return nil, fmt.Errorf("audio sink not registered: %s", name)
	}
	return fn(cfg)
}

type mockBackendSettings struct {
	Latency          string `mapstructure:"latency"`
	Retries          int    `mapstructure:"retries"`
	RetryBackoff     string `mapstructure:"retry_backoff"`
	CircuitThreshold int    `mapstructure:"circuit_threshold"`
	CircuitCooldown  string `mapstructure:"circuit_cooldown"`
}

type storeSettings struct {
	Path       string `mapstructure:"path"`
	MaxEntries int    `mapstructure:"max_entries"`
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	Key        string `mapstructure:"key"`
	TTL        string `mapstructure:"ttl"`
}

// DefaultProviders returns the registry with every provider this repo ships:
// the gemini live client plus a scriptable mock, the mock partner backend,
// the three turn-log stores, and the audio sinks.
func DefaultProviders() *ProviderRegistry {
	reg := NewProviderRegistry()

	reg.RegisterLive("gemini", func(cfg Config, defs []tool.Definition, logger *slog.Logger) (live.Client, error) {
		return live.NewWSClient(cfg.Live.Config, defs, logger), nil
	})
	reg.RegisterLive("mock", func(Config, []tool.Definition, *slog.Logger) (live.Client, error) {
		return livemock.New(), nil
	})

	reg.RegisterBackend("mock", func(cfg Config) (backend.PartnerService, error) {
		if err := validateSettings("backend.settings", cfg.Backend.Settings, configutil.Schema{
			Optional: []string{"latency", "retries", "retry_backoff", "circuit_threshold", "circuit_cooldown"},
		}); err != nil {
			return nil, err
		}
		var settings mockBackendSettings
		if err := configutil.DecodeSettings(cfg.Backend.Settings, &settings); err != nil {
			return nil, fmt.Errorf("backend.settings: %w", err)
		}
		svc := backendmock.NewPartnerService(backendmock.Config{
			Latency: configutil.DurationValue(settings.Latency, 400*time.Millisecond),
		})
		return wrapResilient(svc, settings), nil
	})

	reg.RegisterStore("memory", func(_ context.Context, cfg Config) (turnlog.Store, error) {
		if err := validateSettings("turnlog.settings", cfg.Turnlog.Settings, configutil.Schema{
			Optional: []string{"max_entries"},
		}); err != nil {
			return nil, err
		}
		var settings storeSettings
		if err := configutil.DecodeSettings(cfg.Turnlog.Settings, &settings); err != nil {
			return nil, fmt.Errorf("turnlog.settings: %w", err)
		}
		return turnlog.NewMemoryStore(settings.MaxEntries), nil
	})
	reg.RegisterStore("sqlite", func(ctx context.Context, cfg Config) (turnlog.Store, error) {
		if err := validateSettings("turnlog.settings", cfg.Turnlog.Settings, configutil.Schema{
			Required: []string{"path"},
			Optional: []string{"max_entries"},
		}); err != nil {
			return nil, err
		}
		var settings storeSettings
		if err := configutil.DecodeSettings(cfg.Turnlog.Settings, &settings); err != nil {
			return nil, fmt.Errorf("turnlog.settings: %w", err)
		}
		return turnlog.OpenSQLiteStore(ctx, settings.Path, settings.MaxEntries)
	})
	reg.RegisterStore("redis", func(ctx context.Context, cfg Config) (turnlog.Store, error) {
		if err := validateSettings("turnlog.settings", cfg.Turnlog.Settings, configutil.Schema{
			Required: []string{"addr"},
			Optional: []string{"password", "db", "key", "max_entries", "ttl"},
		}); err != nil {
			return nil, err
		}
		var settings storeSettings
		if err := configutil.DecodeSettings(cfg.Turnlog.Settings, &settings); err != nil {
			return nil, fmt.Errorf("turnlog.settings: %w", err)
		}
		return turnlog.OpenRedisStore(ctx, turnlog.RedisConfig{
			Addr:       settings.Addr,
			Password:   settings.Password,
			DB:         settings.DB,
			Key:        settings.Key,
			MaxEntries: settings.MaxEntries,
			TTL:        configutil.DurationValue(settings.TTL, 0),
		})
	})

	reg.RegisterSink("buffer", func(Config) (audio.Sink, error) {
		return audio.NewBufferSink(), nil
	})
	reg.RegisterSink("file", func(cfg Config) (audio.Sink, error) {
		if err := configutil.RequireString(cfg.Audio.Path, "audio.path"); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.Audio.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open audio file: %w", err)
		}
		return audio.NewWriterSink(f), nil
	})
	reg.RegisterSink("discard", func(Config) (audio.Sink, error) {
		return audio.NewWriterSink(io.Discard), nil
	})

	return reg
}

// wrapResilient layers retry and circuit breaking over a partner service when
// the settings ask for them; with neither configured the service is returned
// untouched.
func wrapResilient(svc backend.PartnerService, s mockBackendSettings) backend.PartnerService {
	if s.Retries <= 0 && s.CircuitThreshold <= 0 {
		return svc
	}
	var policy resilience.RetryPolicy
	if s.Retries > 0 {
		policy = resilience.NewRetryPolicy(s.Retries, configutil.DurationValue(s.RetryBackoff, 200*time.Millisecond))
	}
	var breaker *resilience.CircuitBreaker
	if s.CircuitThreshold > 0 {
		breaker = resilience.NewCircuitBreaker(s.CircuitThreshold, configutil.DurationValue(s.CircuitCooldown, 30*time.Second))
	}
	return backend.NewResilient(svc, policy, breaker)
}

func validateSettings(path string, settings map[string]any, schema configutil.Schema) error {
	if err := configutil.ValidateSettings(settings, schema); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
