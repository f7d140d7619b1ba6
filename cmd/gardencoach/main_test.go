package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/gardencoach/internal/coach"
	"github.com/MrWong99/gardencoach/internal/config"
	"github.com/MrWong99/gardencoach/internal/health"
	"github.com/MrWong99/gardencoach/internal/journal"
	"github.com/MrWong99/gardencoach/internal/observe"
	audiomock "github.com/MrWong99/gardencoach/pkg/audio/mock"
	livemock "github.com/MrWong99/gardencoach/pkg/provider/live/mock"
)

// execute runs the CLI with args against a minimal config file and returns
// stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWith(t, "garden:\n  starting_seeds: 120\n", args...)
}

func executeWith(t *testing.T, yaml string, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gardencoach.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", path}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// ── Garden commands ───────────────────────────────────────────────────────────

func TestGardenLevel(t *testing.T) {
	tests := []struct {
		seeds string
		want  []string
	}{
		{"0", []string{"level 0/5", "50 more seeds"}},
		{"260", []string{"level 3/5", "240 more seeds"}},
		{"1500", []string{"level 5/5", "Full bloom"}},
	}
	for _, tc := range tests {
		t.Run(tc.seeds, func(t *testing.T) {
			out, err := execute(t, "garden", "level", tc.seeds)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, w := range tc.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q missing %q", out, w)
				}
			}
		})
	}
}

func TestGardenLevel_RejectsBadInput(t *testing.T) {
	for _, arg := range []string{"-5", "many"} {
		if _, err := execute(t, "garden", "level", arg); err == nil {
			t.Errorf("level %q: expected error", arg)
		}
	}
}

func TestGardenLeaderboard(t *testing.T) {
	out, err := execute(t, "garden", "leaderboard", "--name", "Ana", "--seeds", "2000", "-n", "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + 3:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "Sofía Zen") || !strings.Contains(lines[2], "Ana (you)") {
		t.Errorf("unexpected ranking:\n%s", out)
	}
}

func TestGardenLeaderboard_DefaultsToStartingSeeds(t *testing.T) {
	out, err := execute(t, "garden", "leaderboard", "-n", "10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Jardinero (you)") || !strings.Contains(out, "120") {
		t.Errorf("expected starting seeds in output:\n%s", out)
	}
}

func TestGardenPalettes(t *testing.T) {
	out, err := execute(t, "garden", "palettes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, id := range []string{"classic", "golden", "electric", "toxic", "nebula"} {
		if !strings.Contains(out, id) {
			t.Errorf("palette %q missing:\n%s", id, out)
		}
	}
}

func TestSpaces_ValidatesCoordinates(t *testing.T) {
	_, err := execute(t, "spaces", "--lat", "91", "--lng", "0")
	if err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Errorf("err = %v, want out of range", err)
	}
}

func TestRoot_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server:\n  log_level: loud\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", path, "garden", "palettes"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected config validation error")
	}
}

// ── Journal ───────────────────────────────────────────────────────────────────

func TestJournalHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diario.jsonl")
	store := journal.NewFileStore(path)
	for _, entry := range []string{"primer día", "segundo día"} {
		if _, err := store.Append(entry, "Sigue regando."); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	out, err := executeWith(t, "mentor:\n  journal_path: "+path+"\n", "journal", "--history", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "segundo día") || strings.Contains(out, "primer día") {
		t.Errorf("history output = %q", out)
	}
	if !strings.Contains(out, "Sigue regando.") {
		t.Errorf("reflection missing from %q", out)
	}
}

func TestJournalHistory_NeedsPath(t *testing.T) {
	if _, err := execute(t, "journal", "--history", "3"); err == nil {
		t.Error("expected error without mentor.journal_path")
	}
}

func TestJournal_RequiresEntry(t *testing.T) {
	if _, err := execute(t, "journal"); err == nil {
		t.Error("expected error for a missing entry")
	}
}

// ── Provider wiring ───────────────────────────────────────────────────────────

func TestRegisterBuiltinProviders(t *testing.T) {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	wantLive := []string{"gemini-live", "genai-live"}
	if got := reg.LiveNames(); strings.Join(got, ",") != strings.Join(wantLive, ",") {
		t.Errorf("LiveNames() = %v, want %v", got, wantLive)
	}
	for _, name := range []string{"genai", "openai", "anthropic", "ollama"} {
		found := false
		for _, n := range reg.LLMNames() {
			found = found || n == name
		}
		if !found {
			t.Errorf("llm provider %q not registered", name)
		}
	}

	if _, err := reg.CreateLive(config.ProviderEntry{Name: "gemini-live"}); err == nil {
		t.Error("gemini-live without api key should fail")
	}
	p, err := reg.CreateLive(config.ProviderEntry{Name: "genai-live", APIKey: "k"})
	if err != nil || p.Name() != "genai-live" {
		t.Errorf("CreateLive(genai-live) = %v, %v", p, err)
	}
}

func TestBuildLive_UnknownProvider(t *testing.T) {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	_, err := buildLive(config.CoachConfig{Provider: "carrier-pigeon"}, reg)
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestBuildLive_WithFallback(t *testing.T) {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	fb, err := buildLive(config.CoachConfig{Provider: "gemini-live", Fallback: "genai-live", APIKey: "k"}, reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fb.Name() != "gemini-live" {
		t.Errorf("Name() = %q, want gemini-live", fb.Name())
	}
	if err := fb.Check(context.Background()); err != nil {
		t.Errorf("fresh fallback should be ready: %v", err)
	}
}

// ── Ops listener ──────────────────────────────────────────────────────────────

func TestOpsHandler(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := newOpsHandler(m, health.Checker{Name: "coach", Check: func(context.Context) error {
		return errors.New("Connection error, try again")
	}})

	for _, tc := range []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusServiceUnavailable},
		{"/metrics", http.StatusOK},
		{"/coach", http.StatusNotFound},
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.want {
			t.Errorf("GET %s = %d, want %d", tc.path, rec.Code, tc.want)
		}
	}

	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		if !strings.Contains(line, "request completed") {
			continue
		}
		quiet := !strings.Contains(line, "route="+observe.UnmatchedRoute)
		if quiet && !strings.Contains(line, "level=DEBUG") {
			t.Errorf("ops endpoint logged above debug: %s", line)
		}
		if !quiet && !strings.Contains(line, "level=INFO") {
			t.Errorf("unmatched request not logged at info: %s", line)
		}
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	routes := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if met.Name != "gardencoach.http.request.duration" || !ok {
				continue
			}
			for _, dp := range hist.DataPoints {
				v, _ := dp.Attributes.Value("route")
				routes[v.AsString()] = true
			}
		}
	}
	for _, route := range []string{"GET /healthz", "GET /readyz", "GET /metrics", observe.UnmatchedRoute} {
		if !routes[route] {
			t.Errorf("route %q not recorded (got %v)", route, routes)
		}
	}
}

// ── Hot reload ────────────────────────────────────────────────────────────────

func TestApplyReload(t *testing.T) {
	engine := coach.New(&livemock.Provider{}, &audiomock.Microphone{}, &audiomock.Output{},
		coach.Config{Voice: "Kore", SystemInstruction: "old"})
	defer engine.Close()

	a := &app{level: new(slog.LevelVar)}
	old := config.Default()
	old.Coach.Voice = "Kore"
	old.Coach.SystemInstruction = "old"
	next := config.Default()
	next.Server.LogLevel = config.LogDebug
	next.Coach.Voice = "Puck"
	next.Coach.SystemInstruction = "new"

	a.applyReload(engine, old, next)

	if a.level.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", a.level.Level())
	}
	cfg := engine.Config()
	if cfg.Voice != "Puck" || cfg.SystemInstruction != "new" {
		t.Errorf("engine config = %+v", cfg)
	}
}

func TestCoachConfig(t *testing.T) {
	c := coachConfig(config.CoachConfig{Voice: "Puck", FrameSize: 2048, SendBuffer: 8})
	if c.Voice != "Puck" || c.FrameSize != 2048 || c.SendBuffer != 8 {
		t.Errorf("coachConfig() = %+v", c)
	}
}

func TestMeter(t *testing.T) {
	var buf bytes.Buffer
	m := newMeter(&buf, false)
	m.draw(50)
	if !strings.Contains(buf.String(), strings.Repeat("#", meterWidth/2)) {
		t.Errorf("meter output = %q", buf.String())
	}
	m.clear()
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("clear should end the meter line")
	}

	buf.Reset()
	quiet := newMeter(&buf, true)
	quiet.draw(100)
	quiet.clear()
	if buf.Len() != 0 {
		t.Errorf("quiet meter wrote %q", buf.String())
	}
}
