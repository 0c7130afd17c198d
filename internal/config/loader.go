package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the LLM provider names known to the built-in
// registry. [Validate] warns about others.
var ValidProviderNames = []string{
	"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over [Default], resolves
// environment references and validates the result. An empty document yields
// the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	resolveEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveEnv replaces "${VAR}" references in provider credentials and
// endpoints.
func resolveEnv(cfg *Config) {
	resolve := func(e *ProviderEntry) {
		e.APIKey = resolveEnvRef(e.APIKey)
		e.BaseURL = resolveEnvRef(e.BaseURL)
	}
	resolve(&cfg.Feedback.Provider)
	for i := range cfg.Feedback.Fallbacks {
		resolve(&cfg.Feedback.Fallbacks[i])
	}
}

// resolveEnvRef replaces a whole-value "${VAR}" with the value of VAR. Unset
// variables leave the reference in place so validation can report it.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		if envVal := os.Getenv(val[2 : len(val)-1]); envVal != "" {
			return envVal
		}
	}
	return val
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if err := cfg.Scoring.Validate(); err != nil {
		errs = append(errs, err)
	}

	fb := cfg.Feedback
	if fb.Timeout < 0 {
		errs = append(errs, fmt.Errorf("feedback.timeout %v must not be negative", fb.Timeout))
	}
	if fb.Provider.Name == "" && len(fb.Fallbacks) > 0 {
		errs = append(errs, errors.New("feedback.fallbacks requires feedback.provider.name"))
	}
	errs = append(errs, validateProvider("feedback.provider", fb.Provider)...)
	for i, e := range fb.Fallbacks {
		prefix := fmt.Sprintf("feedback.fallbacks[%d]", i)
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		errs = append(errs, validateProvider(prefix, e)...)
	}
	cb := fb.CircuitBreaker
	if cb.MaxFailures < 0 || cb.HalfOpenMax < 0 || cb.ResetTimeout < 0 {
		errs = append(errs, errors.New("feedback.circuit_breaker values must not be negative"))
	}
	if fb.Enabled && fb.Provider.Name == "" {
		slog.Debug("no feedback provider configured; rule-based feedback only")
	}

	if cfg.User.SeverityLevel < 0 || cfg.User.SeverityLevel > 5 {
		errs = append(errs, fmt.Errorf("user.severity_level %d is out of range [0, 5]", cfg.User.SeverityLevel))
	}

	return errors.Join(errs...)
}

func validateProvider(prefix string, e ProviderEntry) []error {
	if e.Name == "" {
		return nil
	}
	var errs []error
	if strings.HasPrefix(e.APIKey, "${") && strings.HasSuffix(e.APIKey, "}") {
		errs = append(errs, fmt.Errorf("%s.api_key references unset environment variable %s", prefix, e.APIKey[2:len(e.APIKey)-1]))
	}
	if !slices.Contains(ValidProviderNames, e.Name) {
		slog.Warn("unknown provider name, may be a typo or third-party provider",
			"field", prefix+".name",
			"name", e.Name,
			"known", ValidProviderNames,
		)
	}
	return errs
}
