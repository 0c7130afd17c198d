package main

import (
	"context"
	"fmt"
	"log/slog"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/clearspeech/internal/config"
	"github.com/MrWong99/clearspeech/internal/feedback"
	"github.com/MrWong99/clearspeech/internal/observe"
	"github.com/MrWong99/clearspeech/internal/resilience"
	"github.com/MrWong99/clearspeech/pkg/provider/llm"
	"github.com/MrWong99/clearspeech/pkg/provider/llm/anyllm"
	"github.com/MrWong99/clearspeech/pkg/provider/llm/openai"
)

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in LLM factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// openai goes through openai-go directly so GitHub Models and other
	// compatible endpoints work with base_url.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		model := entry.Model
		if model == "" {
			model = config.DefaultOpenAIModel
		}
		p, err := openai.New(entry.APIKey, model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	// anthropic, gemini, deepseek, mistral, groq, llamacpp and llamafile share
	// the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			p, err := anyllm.New(providerName, entry.Model, opts...)
			if err != nil {
				return nil, err
			}
			return p, nil
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		p, err := anyllm.New("ollama", entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}

// buildFeedback assembles the feedback generator described by cfg: every
// configured provider behind its own circuit breaker, ending in the rule
// generator. It returns nil when feedback is disabled.
func buildFeedback(cfg config.FeedbackConfig, reg *config.Registry, m *observe.Metrics) (feedback.Generator, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	f := feedback.NewFallback(resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  cfg.CircuitBreaker.MaxFailures,
			ResetTimeout: cfg.CircuitBreaker.ResetTimeout,
			HalfOpenMax:  cfg.CircuitBreaker.HalfOpenMax,
			OnStateChange: func(name string, from, to resilience.State) {
				m.RecordBreakerTransition(context.Background(), name, to.String())
				slog.Warn("feedback provider breaker changed state", "provider", name, "from", from, "to", to)
			},
		},
	})

	var entries []config.ProviderEntry
	if cfg.Provider.Name != "" {
		entries = append(entries, cfg.Provider)
	}
	entries = append(entries, cfg.Fallbacks...)

	seen := make(map[string]int)
	for _, e := range entries {
		p, err := reg.CreateLLM(e)
		if err != nil {
			return nil, err
		}
		label := e.Name
		if seen[e.Name]++; seen[e.Name] > 1 {
			label = fmt.Sprintf("%s#%d", e.Name, seen[e.Name])
		}

		var opts []feedback.LLMOption
		if t, ok := optFloat(e.Options, "temperature"); ok {
			opts = append(opts, feedback.WithTemperature(t))
		}
		f.Add(label, feedback.NewLLMGenerator(observe.InstrumentLLM(label, p, m), opts...))
	}

	slog.Debug("feedback generators ready", "sources", f.Sources())
	return f, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	s, _ := opts[key].(string)
	return s
}

// optFloat extracts a number from a provider Options map. YAML decodes
// integers as int, so both are accepted.
func optFloat(opts map[string]any, key string) (float64, bool) {
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
