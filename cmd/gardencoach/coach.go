package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/gardencoach/internal/coach"
	"github.com/MrWong99/gardencoach/internal/config"
	"github.com/MrWong99/gardencoach/internal/garden"
	"github.com/MrWong99/gardencoach/internal/health"
	"github.com/MrWong99/gardencoach/internal/observe"
	"github.com/MrWong99/gardencoach/pkg/audio/device"
)

// version is reported in telemetry. Overridden at build time with -ldflags.
var version = "dev"

func newCoachCmd(a *app) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "coach",
		Short: "Practise your elevator pitch with the live voice coach",
		Long: `coach opens a live voice session with the pitch coach on the default
microphone and speaker. Speak naturally; the coach answers out loud and you
can interrupt it at any time. Press Ctrl+C to end the session and collect
your seeds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCoach(cmd.Context(), quiet)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not draw the microphone level meter")
	return cmd
}

func (a *app) runCoach(ctx context.Context, quiet bool) error {
	shutdownOTel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	provider, err := buildLive(a.cfg.Coach, reg)
	if err != nil {
		return err
	}

	ccfg := coachConfig(a.cfg.Coach)
	speaker, err := device.NewSpeaker(ccfg.OutputSampleRate)
	if err != nil {
		return fmt.Errorf("open speaker: %w", err)
	}
	defer speaker.Close()

	seeds := garden.New(
		garden.WithStartingSeeds(a.cfg.Garden.StartingSeeds),
		garden.WithListener(func(aw garden.Award) {
			fmt.Fprintf(a.out, "\n%s (total %d)\n", aw, aw.Balance)
		}),
	)

	ended := make(chan coach.State, 1)
	meter := newMeter(a.out, quiet)
	engine := coach.New(provider, device.NewMicrophone(), speaker, ccfg,
		coach.WithStatusFunc(func(s coach.State, status string) {
			meter.clear()
			fmt.Fprintf(a.out, "[%s] %s\n", s, status)
			if s == coach.StateError || s == coach.StateClosed {
				select {
				case ended <- s:
				default:
				}
			}
		}),
		coach.WithVolumeFunc(meter.draw),
		coach.WithOnComplete(func() {
			if _, err := seeds.Award(context.WithoutCancel(ctx), garden.ReasonSession); err != nil {
				slog.Warn("award session seeds", "err", err)
			}
		}),
	)
	defer engine.Close()

	if addr := a.cfg.Server.OpsAddr; addr != "" {
		checks := []health.Checker{
			{Name: "live_provider", Check: provider.Check},
			{Name: "coach", Check: func(context.Context) error {
				if engine.State() == coach.StateError {
					return errors.New(engine.Status())
				}
				return nil
			}},
		}
		stopOps, err := startOps(ctx, addr, checks...)
		if err != nil {
			return err
		}
		defer stopOps()
	}

	if path := a.watchPath(); path != "" {
		w, err := config.NewWatcher(path, func(old, cur *config.Config) {
			a.applyReload(engine, old, cur)
		})
		if err != nil {
			slog.Warn("config hot reload disabled", "path", path, "err", err)
		} else {
			defer w.Stop()
		}
	}

	if err := engine.Start(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	select {
	case <-ctx.Done():
		_ = engine.Stop()
	case s := <-ended:
		if s == coach.StateError {
			return fmt.Errorf("session ended: %s", engine.Status())
		}
	}
	fmt.Fprintf(a.out, "Your flower is at level %d with %d seeds.\n", seeds.Level(), seeds.Seeds())
	return nil
}

// applyReload applies hot-reloadable changes: the log level immediately and
// the coach persona on the next session.
func (a *app) applyReload(engine *coach.Engine, old, cur *config.Config) {
	d := config.Diff(old, cur)
	if d.LogLevelChanged {
		a.level.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.CoachChanged() {
		next := engine.Config()
		next.Voice = cur.Coach.Voice
		next.SystemInstruction = cur.Coach.SystemInstruction
		next.Model = cur.Coach.Model
		engine.UpdateConfig(next)
		slog.Info("coach settings updated for the next session",
			"voice", d.VoiceChanged, "instruction", d.InstructionChanged, "model", d.ModelChanged)
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("configuration changes need a restart", "keys", d.RestartRequired)
	}
}

// watchPath returns the config file to watch, or "" when running on
// defaults.
func (a *app) watchPath() string {
	if a.configPath != "" {
		return a.configPath
	}
	if _, err := config.Load(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

func coachConfig(c config.CoachConfig) coach.Config {
	return coach.Config{
		Model:             c.Model,
		Voice:             c.Voice,
		SystemInstruction: c.SystemInstruction,
		FrameSize:         c.FrameSize,
		InputSampleRate:   c.InputSampleRate,
		OutputSampleRate:  c.OutputSampleRate,
		SendBuffer:        c.SendBuffer,
	}
}

// ── Level meter ───────────────────────────────────────────────────────────────

const meterWidth = 30

// meter draws the microphone level on a single terminal line. draw runs on
// the capture goroutine and clear on the status callback.
type meter struct {
	out   io.Writer
	quiet bool

	mu    sync.Mutex
	drawn bool
	last  time.Time
}

func newMeter(out io.Writer, quiet bool) *meter {
	return &meter{out: out, quiet: quiet}
}

// draw redraws at most ten times a second.
func (m *meter) draw(level float64) {
	if m.quiet {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if time.Since(m.last) < 100*time.Millisecond {
		return
	}
	m.last = time.Now()
	filled := min(max(int(level/100*meterWidth), 0), meterWidth)
	fmt.Fprintf(m.out, "\r  mic |%s%s| %3.0f", strings.Repeat("#", filled), strings.Repeat(" ", meterWidth-filled), level)
	m.drawn = true
}

// clear ends the meter line so status output starts on a fresh line.
func (m *meter) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.drawn {
		fmt.Fprintln(m.out)
		m.drawn = false
	}
}
