// Package livia assembles the widget backend from configuration: deployment
// profiles, the provider registry, and the engine that wires the live client
// to the dispatcher, audio sink and turn log.
package livia

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/renandav/livia/pkg/errorsx"
	"github.com/renandav/livia/pkg/live"
)

type Config struct {
	LogLevel      string              `mapstructure:"log_level"`
	Profile       string              `mapstructure:"profile"`
	Live          LiveConfig          `mapstructure:"live"`
	Dispatch      DispatchConfig      `mapstructure:"dispatch"`
	Tools         ToolsConfig         `mapstructure:"tools"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Turnlog       TurnlogConfig       `mapstructure:"turnlog"`
	Audio         AudioConfig         `mapstructure:"audio"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Engine        EngineConfig        `mapstructure:"engine"`
}

// LiveConfig selects the live provider and carries its connection settings.
type LiveConfig struct {
	Provider    string `mapstructure:"provider"`
	live.Config `mapstructure:",squash"`
}

type DispatchConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
}

type ToolsConfig struct {
	// Disabled lists tool names excluded from the setup declaration. They
	// keep their registry slot so a stale model-side call still resolves.
	Disabled []string `mapstructure:"disabled"`
}

type BackendConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type TurnlogConfig struct {
	Store    string         `mapstructure:"store"`
	Settings map[string]any `mapstructure:"settings"`
}

type AudioConfig struct {
	Sink       string `mapstructure:"sink"`
	Path       string `mapstructure:"path"`
	SampleRate int    `mapstructure:"sample_rate"`
	Channels   int    `mapstructure:"channels"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

type ObservabilityConfig struct {
	TimelineDir   string  `mapstructure:"timeline_dir"`
	UsageDir      string  `mapstructure:"usage_dir"`
	JSONLPath     string  `mapstructure:"jsonl_path"`
	SampleRate    float64 `mapstructure:"sample_rate"`
	RetentionDays int     `mapstructure:"retention_days"`
}

type EngineConfig struct {
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`
}

// LoadConfig reads the file at path on top of the built-in defaults. An empty
// path skips the file and yields the defaults alone, which is enough to run
// the mock provider end to end. ${ENV} references expand in every string
// field and settings value.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("log_level", "info")
	v.SetDefault("profile", ProfileGeneric)
	v.SetDefault("live.provider", "gemini")
	v.SetDefault("live.model", "models/gemini-2.0-flash-exp")
	v.SetDefault("live.api_key", "")
	v.SetDefault("live.endpoint", live.DefaultEndpoint)
	v.SetDefault("live.voice", "Aoede")
	v.SetDefault("live.system_instruction", "")
	v.SetDefault("live.response_modalities", []string{"AUDIO"})
	v.SetDefault("live.handshake_timeout", "10s")
	v.SetDefault("live.send_queue", 256)
	v.SetDefault("dispatch.max_concurrency", 4)
	v.SetDefault("dispatch.handler_timeout", "0s")
	v.SetDefault("tools.disabled", []string{})
	v.SetDefault("backend.provider", "mock")
	v.SetDefault("backend.settings.latency", "400ms")
	v.SetDefault("turnlog.store", "memory")
	v.SetDefault("audio.sink", "buffer")
	v.SetDefault("audio.path", "")
	v.SetDefault("audio.sample_rate", 24000)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("privacy.redact_pii", true)
	v.SetDefault("observability.timeline_dir", "")
	v.SetDefault("observability.usage_dir", "")
	v.SetDefault("observability.jsonl_path", "")
	v.SetDefault("observability.sample_rate", 1.0)
	v.SetDefault("observability.retention_days", 0)
	v.SetDefault("engine.drain_timeout", "10s")

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, errorsx.Wrap(err, errorsx.ReasonConfigInvalid)
	}

	return cfg, nil
}

// Validate checks the fields every build path depends on. Provider names are
// resolved later against the provider registry; here only presence and the
// profile are checked.
func (c *Config) Validate() error {
	if !KnownProfile(c.Profile) {
		return fmt.Errorf("unknown profile: %q", c.Profile)
	}
	if strings.TrimSpace(c.Live.Provider) == "" {
		return fmt.Errorf("live.provider is required")
	}
	if strings.TrimSpace(c.Backend.Provider) == "" {
		return fmt.Errorf("backend.provider is required")
	}
	if strings.TrimSpace(c.Turnlog.Store) == "" {
		return fmt.Errorf("turnlog.store is required")
	}
	if strings.TrimSpace(c.Audio.Sink) == "" {
		return fmt.Errorf("audio.sink is required")
	}
	if c.Observability.SampleRate < 0 || c.Observability.SampleRate > 1 {
		return fmt.Errorf("observability.sample_rate must be within [0, 1], got %v", c.Observability.SampleRate)
	}
	return nil
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Backend.Settings = expandSettings(cfg.Backend.Settings)
	cfg.Turnlog.Settings = expandSettings(cfg.Turnlog.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = expandAny(v)
		}
		return out
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String && v.Type().Elem().Kind() == reflect.String {
			for _, key := range v.MapKeys() {
				val := v.MapIndex(key)
				expanded := os.ExpandEnv(val.String())
				v.SetMapIndex(key, reflect.ValueOf(expanded))
			}
		}
	}
}
