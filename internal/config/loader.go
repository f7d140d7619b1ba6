package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"live": {"gemini-live", "genai-live"},
	"llm":  {"genai", "openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// environment credentials, and validates the result. An empty document
// yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	ApplyEnv(cfg, os.Getenv)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.LogFormat != "" && !cfg.Server.LogFormat.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_format %q is invalid; valid values: text, json", cfg.Server.LogFormat))
	}

	// Coach
	validateProviderName("live", cfg.Coach.Provider)
	validateProviderName("live", cfg.Coach.Fallback)
	if cfg.Coach.Fallback != "" && cfg.Coach.Fallback == cfg.Coach.Provider {
		errs = append(errs, fmt.Errorf("coach.fallback %q must differ from coach.provider", cfg.Coach.Fallback))
	}
	for _, f := range []struct {
		name  string
		value int
	}{
		{"coach.frame_size", cfg.Coach.FrameSize},
		{"coach.input_sample_rate", cfg.Coach.InputSampleRate},
		{"coach.output_sample_rate", cfg.Coach.OutputSampleRate},
		{"coach.send_buffer", cfg.Coach.SendBuffer},
	} {
		if f.value < 0 {
			errs = append(errs, fmt.Errorf("%s %d must not be negative", f.name, f.value))
		}
	}
	if cfg.Coach.APIKey == "" && cfg.Coach.BaseURL == "" {
		slog.Warn("coach.api_key is empty and GEMINI_API_KEY is not set; live sessions will fail to connect")
	}

	// Mentor
	validateProviderName("llm", cfg.Mentor.Provider)
	if cfg.Mentor.Timeout < 0 {
		errs = append(errs, fmt.Errorf("mentor.timeout %s must not be negative", cfg.Mentor.Timeout))
	}
	for i, fb := range cfg.Mentor.Fallbacks {
		prefix := fmt.Sprintf("mentor.fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		validateProviderName("llm", fb.Name)
	}

	// Garden
	if cfg.Garden.StartingSeeds < 0 {
		errs = append(errs, fmt.Errorf("garden.starting_seeds %d must not be negative", cfg.Garden.StartingSeeds))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
