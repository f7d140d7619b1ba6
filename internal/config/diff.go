package config

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// Coach fields that apply to the next live session.
	VoiceChanged       bool
	InstructionChanged bool
	ModelChanged       bool

	// RestartRequired lists changed keys that only take effect after a
	// restart (providers, credentials, listener addresses).
	RestartRequired []string
}

// CoachChanged reports whether any hot-reloadable coach field changed.
func (d ConfigDiff) CoachChanged() bool {
	return d.VoiceChanged || d.InstructionChanged || d.ModelChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, cur *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != cur.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = cur.Server.LogLevel
	}

	d.VoiceChanged = old.Coach.Voice != cur.Coach.Voice
	d.InstructionChanged = old.Coach.SystemInstruction != cur.Coach.SystemInstruction
	d.ModelChanged = old.Coach.Model != cur.Coach.Model

	restart := []struct {
		key     string
		changed bool
	}{
		{"server.log_format", old.Server.LogFormat != cur.Server.LogFormat},
		{"server.ops_addr", old.Server.OpsAddr != cur.Server.OpsAddr},
		{"coach.provider", old.Coach.Provider != cur.Coach.Provider},
		{"coach.fallback", old.Coach.Fallback != cur.Coach.Fallback},
		{"coach.api_key", old.Coach.APIKey != cur.Coach.APIKey},
		{"coach.base_url", old.Coach.BaseURL != cur.Coach.BaseURL},
		{"coach.frame_size", old.Coach.FrameSize != cur.Coach.FrameSize},
		{"coach.input_sample_rate", old.Coach.InputSampleRate != cur.Coach.InputSampleRate},
		{"coach.output_sample_rate", old.Coach.OutputSampleRate != cur.Coach.OutputSampleRate},
		{"coach.send_buffer", old.Coach.SendBuffer != cur.Coach.SendBuffer},
		{"mentor", !mentorEqual(old.Mentor, cur.Mentor)},
		{"garden.starting_seeds", old.Garden.StartingSeeds != cur.Garden.StartingSeeds},
	}
	for _, r := range restart {
		if r.changed {
			d.RestartRequired = append(d.RestartRequired, r.key)
		}
	}
	return d
}

func mentorEqual(a, b MentorConfig) bool {
	if a.Provider != b.Provider || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL ||
		a.Model != b.Model || a.MapsModel != b.MapsModel || a.Language != b.Language ||
		a.Timeout != b.Timeout || a.JournalPath != b.JournalPath || len(a.Fallbacks) != len(b.Fallbacks) {
		return false
	}
	for i := range a.Fallbacks {
		if a.Fallbacks[i] != b.Fallbacks[i] {
			return false
		}
	}
	return true
}
