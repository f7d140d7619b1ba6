package config_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/gardencoach/internal/config"
)

func baseConfig() *config.Config {
	cfg := config.Default()
	cfg.Coach.Voice = "Kore"
	cfg.Coach.SystemInstruction = "Eres un coach."
	cfg.Coach.Model = "live-1"
	return cfg
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	d := config.Diff(baseConfig(), baseConfig())
	if d.LogLevelChanged || d.CoachChanged() || len(d.RestartRequired) != 0 {
		t.Errorf("expected empty diff, got %+v", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()
	old, cur := baseConfig(), baseConfig()
	cur.Server.LogLevel = config.LogDebug

	d := config.Diff(old, cur)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("diff = %+v", d)
	}
}

func TestDiff_CoachHotFields(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*config.Config)
		check  func(config.ConfigDiff) bool
	}{
		{"voice", func(c *config.Config) { c.Coach.Voice = "Puck" }, func(d config.ConfigDiff) bool { return d.VoiceChanged }},
		{"instruction", func(c *config.Config) { c.Coach.SystemInstruction = "Otro" }, func(d config.ConfigDiff) bool { return d.InstructionChanged }},
		{"model", func(c *config.Config) { c.Coach.Model = "live-2" }, func(d config.ConfigDiff) bool { return d.ModelChanged }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			old, cur := baseConfig(), baseConfig()
			tc.mutate(cur)
			d := config.Diff(old, cur)
			if !tc.check(d) || !d.CoachChanged() {
				t.Errorf("diff = %+v", d)
			}
			if len(d.RestartRequired) != 0 {
				t.Errorf("hot field should not require restart: %v", d.RestartRequired)
			}
		})
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()
	old, cur := baseConfig(), baseConfig()
	cur.Coach.Provider = "genai-live"
	cur.Server.OpsAddr = ":1"
	cur.Mentor.Fallbacks = []config.ProviderEntry{{Name: "openai"}}

	d := config.Diff(old, cur)
	for _, key := range []string{"coach.provider", "server.ops_addr", "mentor"} {
		if !slices.Contains(d.RestartRequired, key) {
			t.Errorf("RestartRequired = %v, missing %q", d.RestartRequired, key)
		}
	}
	if d.CoachChanged() {
		t.Error("provider change is not a hot coach change")
	}
}
