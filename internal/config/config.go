// Package config provides the configuration schema, loader, hot-reload
// watcher and LLM provider registry for clearspeech.
package config

import (
	"time"

	"github.com/MrWong99/clearspeech/internal/feedback"
	"github.com/MrWong99/clearspeech/pkg/scoring"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader]; keys missing from the file keep
// the values of [Default].
type Config struct {
	LogLevel LogLevel `yaml:"log_level"`

	// Scoring tunes the alignment scorer. The three weights are validated
	// together, so a file that sets one of them should set all three.
	Scoring scoring.Config `yaml:"scoring"`

	Feedback  FeedbackConfig  `yaml:"feedback"`
	History   HistoryConfig   `yaml:"history"`
	Exercises ExercisesConfig `yaml:"exercises"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// User describes the speaker; it is passed to the feedback generators.
	User feedback.UserContext `yaml:"user"`
}

// FeedbackConfig configures coaching feedback.
type FeedbackConfig struct {
	// Enabled turns feedback generation on. When no provider is configured
	// the rule-based generator answers alone.
	Enabled bool `yaml:"enabled"`

	// Timeout bounds one feedback request across all providers. Zero
	// selects [DefaultFeedbackTimeout].
	Timeout time.Duration `yaml:"timeout"`

	// Provider is the preferred LLM backend.
	Provider ProviderEntry `yaml:"provider"`

	// Fallbacks are tried in order after Provider.
	Fallbacks []ProviderEntry `yaml:"fallbacks"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ProviderEntry configures one LLM backend. Name selects the factory in the
// [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "ollama").
	Name string `yaml:"name"`

	// APIKey authenticates against the provider. A value of the form
	// "${VAR}" is replaced by the environment variable VAR at load time.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint. For GitHub
	// Models use https://models.inference.ai.azure.com with the openai
	// provider.
	BaseURL string `yaml:"base_url"`

	Model string `yaml:"model"`

	// Options holds provider-specific values not covered above.
	Options map[string]any `yaml:"options"`
}

// CircuitBreakerConfig tunes the breaker guarding each provider. Zero values
// take the breaker defaults.
type CircuitBreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
	HalfOpenMax  int           `yaml:"half_open_max"`
}

// HistoryConfig configures attempt persistence.
type HistoryConfig struct {
	// Path is the JSON-lines history file. Empty keeps history in memory for
	// the lifetime of the process.
	Path string `yaml:"path"`
}

// ExercisesConfig selects the exercise catalogue.
type ExercisesConfig struct {
	// Path is a YAML catalogue file. Empty selects the built-in catalogue.
	Path string `yaml:"path"`
}

// TelemetryConfig configures metrics and tracing.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name"`

	// MetricsTextfile, when set, receives a Prometheus text-format dump of
	// all metrics on shutdown.
	MetricsTextfile string `yaml:"metrics_textfile"`
}

// Default values.
const (
	DefaultServiceName     = "clearspeech"
	DefaultFeedbackTimeout = 15 * time.Second
	DefaultOpenAIModel     = "gpt-4o"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: LogInfo,
		Scoring:  scoring.DefaultConfig(),
		Feedback: FeedbackConfig{
			Enabled: true,
			Timeout: DefaultFeedbackTimeout,
		},
		Telemetry: TelemetryConfig{ServiceName: DefaultServiceName},
	}
}
