package main

import (
	"fmt"
	"log/slog"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/gardencoach/internal/config"
	"github.com/MrWong99/gardencoach/internal/mentor"
	"github.com/MrWong99/gardencoach/internal/resilience"
	"github.com/MrWong99/gardencoach/pkg/provider/live"
	geminilive "github.com/MrWong99/gardencoach/pkg/provider/live/gemini"
	genailive "github.com/MrWong99/gardencoach/pkg/provider/live/genai"
	"github.com/MrWong99/gardencoach/pkg/provider/llm"
	"github.com/MrWong99/gardencoach/pkg/provider/llm/anyllm"
	genaillm "github.com/MrWong99/gardencoach/pkg/provider/llm/genai"
	oaillm "github.com/MrWong99/gardencoach/pkg/provider/llm/openai"
)

// breakerConfig is shared by every fallback group. Live connects are slow
// and rare, so a couple of failures are enough to prefer the fallback.
var breakerConfig = resilience.CircuitBreakerConfig{
	MaxFailures:  2,
	ResetTimeout: 30 * time.Second,
	HalfOpenMax:  1,
	OnStateChange: func(name string, from, to resilience.State) {
		slog.Warn("circuit breaker state changed", "provider", name, "from", from, "to", to)
	},
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Live ──────────────────────────────────────────────────────────────────
	reg.RegisterLive("gemini-live", func(e config.ProviderEntry) (live.Provider, error) {
		if e.APIKey == "" && e.BaseURL == "" {
			return nil, fmt.Errorf("gemini-live: api_key is required")
		}
		return geminilive.New(e.APIKey, geminilive.WithModel(e.Model), geminilive.WithBaseURL(e.BaseURL)), nil
	})
	reg.RegisterLive("genai-live", func(e config.ProviderEntry) (live.Provider, error) {
		if e.APIKey == "" && e.BaseURL == "" {
			return nil, fmt.Errorf("genai-live: api_key is required")
		}
		return genailive.New(e.APIKey, genailive.WithModel(e.Model), genailive.WithBaseURL(e.BaseURL)), nil
	})

	// ── LLM ───────────────────────────────────────────────────────────────────
	reg.RegisterLLM("genai", func(e config.ProviderEntry) (llm.Provider, error) {
		var opts []genaillm.Option
		if e.BaseURL != "" {
			opts = append(opts, genaillm.WithBaseURL(e.BaseURL))
		}
		return genaillm.New(e.APIKey, e.Model, opts...)
	})
	reg.RegisterLLM("openai", func(e config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if e.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(e.BaseURL))
		}
		return oaillm.New(e.APIKey, e.Model, opts...)
	})

	// The remaining vendors share any-llm-go's pattern: optional APIKey +
	// optional BaseURL. "gemini" here is the plain any-llm backend without
	// grounding; "genai" above is preferred for the mentor.
	for _, name := range []string{"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile", "ollama"} {
		reg.RegisterLLM(name, func(e config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if e.APIKey != "" && name != "ollama" {
				opts = append(opts, anyllmlib.WithAPIKey(e.APIKey))
			}
			if e.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(e.BaseURL))
			}
			return anyllm.New(name, e.Model, opts...)
		})
	}
}

// buildLive creates the live provider for cfg, wrapped in a connect-time
// fallback when one is configured.
func buildLive(cfg config.CoachConfig, reg *config.Registry) (*resilience.LiveFallback, error) {
	primary, err := reg.CreateLive(cfg.Entry())
	if err != nil {
		return nil, fmt.Errorf("create live provider %q: %w", cfg.Provider, err)
	}
	fb := resilience.NewLiveFallback(primary, resilience.FallbackConfig{CircuitBreaker: breakerConfig})
	slog.Info("provider created", "kind", "live", "name", cfg.Provider)

	if entry, ok := cfg.FallbackEntry(); ok {
		p, err := reg.CreateLive(entry)
		if err != nil {
			return nil, fmt.Errorf("create live fallback %q: %w", entry.Name, err)
		}
		fb.AddFallback(p)
		slog.Info("provider created", "kind", "live", "name", entry.Name, "role", "fallback")
	}
	return fb, nil
}

// buildLLM creates the provider for entry followed by the configured
// fallbacks.
func buildLLM(entry config.ProviderEntry, fallbacks []config.ProviderEntry, reg *config.Registry) (*resilience.LLMFallback, error) {
	primary, err := reg.CreateLLM(entry)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", entry.Name, err)
	}
	fb := resilience.NewLLMFallback(primary, entry.Name, resilience.FallbackConfig{CircuitBreaker: breakerConfig})
	for _, e := range fallbacks {
		p, err := reg.CreateLLM(e)
		if err != nil {
			return nil, fmt.Errorf("create llm fallback %q: %w", e.Name, err)
		}
		fb.AddFallback(e.Name, p)
	}
	slog.Debug("provider created", "kind", "llm", "name", entry.Name, "model", entry.Model, "fallbacks", len(fallbacks))
	return fb, nil
}

// buildMentor wires the mentor to its text and maps providers.
func buildMentor(cfg config.MentorConfig, reg *config.Registry) (*mentor.Mentor, error) {
	text, err := buildLLM(cfg.Entry(), cfg.Fallbacks, reg)
	if err != nil {
		return nil, err
	}
	opts := []mentor.Option{
		mentor.WithLanguage(cfg.Language),
		mentor.WithTimeout(cfg.Timeout),
	}
	if maps := cfg.MapsEntry(); maps.Model != cfg.Model {
		mp, err := buildLLM(maps, cfg.Fallbacks, reg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, mentor.WithMapsProvider(mp))
	}
	return mentor.New(text, opts...), nil
}
