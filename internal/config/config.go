// Package config provides the configuration schema, loader, provider
// registry and hot-reload watcher for gardencoach.
package config

import "time"

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

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// IsValid reports whether f is a recognised log format.
func (f LogFormat) IsValid() bool {
	return f == LogFormatText || f == LogFormatJSON
}

// Default provider names and models.
const (
	DefaultLiveProvider   = "gemini-live"
	DefaultMentorProvider = "genai"
	DefaultMentorModel    = "gemini-3-flash-preview"
	DefaultMapsModel      = "gemini-2.5-flash"
	DefaultLanguage       = "español latino"
	DefaultOpsAddr        = ":9090"
)

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server ServerConfig `yaml:"server"`
	Coach  CoachConfig  `yaml:"coach"`
	Mentor MentorConfig `yaml:"mentor"`
	Garden GardenConfig `yaml:"garden"`
}

// ServerConfig holds logging and ops listener settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// LogFormat selects text or JSON log output.
	LogFormat LogFormat `yaml:"log_format"`

	// OpsAddr is the listen address for /metrics, /healthz and /readyz.
	// Empty disables the ops listener.
	OpsAddr string `yaml:"ops_addr"`
}

// CoachConfig configures the live voice coaching session.
type CoachConfig struct {
	// Provider selects the registered live provider.
	Provider string `yaml:"provider"`

	// APIKey authenticates with the live service. Empty falls back to the
	// GEMINI_API_KEY and API_KEY environment variables.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Model is the live model identifier.
	Model string `yaml:"model"`

	// Voice is the prebuilt voice name (e.g. "Kore").
	Voice string `yaml:"voice"`

	// SystemInstruction is the coaching persona.
	SystemInstruction string `yaml:"system_instruction"`

	// Fallback names a secondary live provider tried when the primary cannot
	// connect. It shares APIKey, BaseURL and Model.
	Fallback string `yaml:"fallback"`

	FrameSize        int `yaml:"frame_size"`
	InputSampleRate  int `yaml:"input_sample_rate"`
	OutputSampleRate int `yaml:"output_sample_rate"`

	// SendBuffer bounds the number of captured frames waiting for upload.
	SendBuffer int `yaml:"send_buffer"`
}

// Entry returns the provider entry for the primary live provider.
func (c CoachConfig) Entry() ProviderEntry {
	return ProviderEntry{Name: c.Provider, APIKey: c.APIKey, BaseURL: c.BaseURL, Model: c.Model}
}

// FallbackEntry returns the provider entry for the fallback live provider.
// The second result is false when no fallback is configured.
func (c CoachConfig) FallbackEntry() (ProviderEntry, bool) {
	if c.Fallback == "" {
		return ProviderEntry{}, false
	}
	e := c.Entry()
	e.Name = c.Fallback
	return e, true
}

// MentorConfig configures the text features.
type MentorConfig struct {
	// Provider selects the registered llm provider.
	Provider string `yaml:"provider"`

	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	// MapsModel is the model used for map-grounded requests. Map grounding
	// is only offered by some Gemini models.
	MapsModel string `yaml:"maps_model"`

	// Language is the reply language for every mentor feature.
	Language string `yaml:"language"`

	// Timeout bounds a single mentor call. Zero uses the mentor default.
	Timeout time.Duration `yaml:"timeout"`

	// Fallbacks are tried in order when the primary provider fails.
	Fallbacks []ProviderEntry `yaml:"fallbacks"`

	// JournalPath is the JSON-lines file journal entries are kept in.
	// Empty keeps no history.
	JournalPath string `yaml:"journal_path"`
}

// Entry returns the provider entry for the primary mentor provider.
func (c MentorConfig) Entry() ProviderEntry {
	return ProviderEntry{Name: c.Provider, APIKey: c.APIKey, BaseURL: c.BaseURL, Model: c.Model}
}

// MapsEntry returns the provider entry used for map-grounded requests.
func (c MentorConfig) MapsEntry() ProviderEntry {
	e := c.Entry()
	if c.MapsModel != "" {
		e.Model = c.MapsModel
	}
	return e
}

// GardenConfig configures the seed ledger.
type GardenConfig struct {
	// StartingSeeds is the initial balance of a new garden.
	StartingSeeds int `yaml:"starting_seeds"`
}

// ProviderEntry is the common configuration block shared by all provider
// kinds. Name is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g. "genai", "openai").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model"`
}

// Default returns a configuration with every default applied, for running
// without a config file.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills empty fields of cfg. Audio parameters are left at zero
// so the engine applies its own defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.LogFormat == "" {
		cfg.Server.LogFormat = LogFormatText
	}
	if cfg.Coach.Provider == "" {
		cfg.Coach.Provider = DefaultLiveProvider
	}
	if cfg.Mentor.Provider == "" {
		cfg.Mentor.Provider = DefaultMentorProvider
	}
	if cfg.Mentor.Provider == DefaultMentorProvider {
		if cfg.Mentor.Model == "" {
			cfg.Mentor.Model = DefaultMentorModel
		}
		if cfg.Mentor.MapsModel == "" {
			cfg.Mentor.MapsModel = DefaultMapsModel
		}
	}
	if cfg.Mentor.Language == "" {
		cfg.Mentor.Language = DefaultLanguage
	}
}

// ApplyEnv fills empty Gemini credentials from the environment using lookup
// (usually [os.Getenv]). GEMINI_API_KEY takes precedence over API_KEY.
func ApplyEnv(cfg *Config, lookup func(string) string) {
	key := lookup("GEMINI_API_KEY")
	if key == "" {
		key = lookup("API_KEY")
	}
	if key == "" {
		return
	}
	if cfg.Coach.APIKey == "" {
		cfg.Coach.APIKey = key
	}
	if cfg.Mentor.APIKey == "" && (cfg.Mentor.Provider == DefaultMentorProvider || cfg.Mentor.Provider == "gemini") {
		cfg.Mentor.APIKey = key
	}
}
