package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrWong99/gardencoach/internal/config"
)

// defaultConfigPath is read when present; without it the built-in defaults
// and environment credentials are used.
const defaultConfigPath = "gardencoach.yaml"

// app carries state shared by every subcommand after the root pre-run.
type app struct {
	configPath string
	cfg        *config.Config
	level      *slog.LevelVar
	out        io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{level: new(slog.LevelVar), out: os.Stdout}

	root := &cobra.Command{
		Use:   "gardencoach",
		Short: "The Garden Method: live pitch coaching and a digital gardener mentor",
		Long: `gardencoach grows your entrepreneurial garden from the terminal.

Practise your elevator pitch with a live voice coach, reflect on journal
entries, discover business ideas and nearby spaces, and watch your flower
grow as you earn seeds.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to the YAML configuration file (default "+defaultConfigPath+" if present)")

	root.AddCommand(
		newCoachCmd(a),
		newJournalCmd(a),
		newIdeasCmd(a),
		newSpacesCmd(a),
		newGardenCmd(a),
	)
	return root
}

// init loads the configuration and installs the default logger.
func (a *app) init(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()

	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg.Server.LogFormat, a.level))
	slog.Debug("configuration loaded", "path", a.configPath,
		"coach_provider", cfg.Coach.Provider, "mentor_provider", cfg.Mentor.Provider)
	return nil
}

// loadConfig reads path, or the default path when it exists, or falls back
// to defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg, err := config.Load(defaultConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
		config.ApplyEnv(cfg, os.Getenv)
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", defaultConfigPath, err)
	}
	return cfg, nil
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(w io.Writer, format config.LogFormat, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
