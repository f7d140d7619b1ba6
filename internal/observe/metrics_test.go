package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

// sumValue returns the value of the int64 sum data point whose attribute key
// equals value, or -1 when absent.
func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not a sum", name)
	}
	for _, dp := range sum.DataPoints {
		if key == "" {
			return dp.Value
		}
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == key && kv.Value.AsString() == value {
				return dp.Value
			}
		}
	}
	return -1
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"gardencoach.coach.connect.duration", m.ConnectDuration},
		{"gardencoach.mentor.duration", m.MentorDuration},
	}

	for _, tc := range histograms {
		tc.h.Record(ctx, 0.123)
		tc.h.Record(ctx, 0.456)
	}

	rm := collect(t, reader)

	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a histogram", tc.name)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", tc.name)
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("sample count = %d, want 2", got)
			}
		})
	}
}

func TestCounterIncrement(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderRequest(ctx, "gemini-live", "live", "ok")
	m.RecordProviderRequest(ctx, "gemini-live", "live", "ok")
	m.RecordProviderRequest(ctx, "gemini-live", "live", "error")

	rm := collect(t, reader)
	if got := sumValue(t, rm, "gardencoach.provider.requests", "status", "ok"); got != 2 {
		t.Errorf("counter value = %d, want 2", got)
	}
}

func TestFrameCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.FramesSent.Add(ctx, 3)
	m.RecordFrameDropped(ctx, "queue_full")
	m.RecordFrameDropped(ctx, "queue_full")
	m.RecordFrameDropped(ctx, "send_error")
	m.FramesPlayed.Add(ctx, 2)
	m.FramesSkipped.Add(ctx, 1)
	m.Interruptions.Add(ctx, 1)

	rm := collect(t, reader)
	tests := []struct {
		name, key, value string
		want             int64
	}{
		{"gardencoach.coach.frames.sent", "", "", 3},
		{"gardencoach.coach.frames.dropped", "reason", "queue_full", 2},
		{"gardencoach.coach.frames.dropped", "reason", "send_error", 1},
		{"gardencoach.coach.frames.played", "", "", 2},
		{"gardencoach.coach.frames.skipped", "", "", 1},
		{"gardencoach.coach.interruptions", "", "", 1},
	}
	for _, tc := range tests {
		if got := sumValue(t, rm, tc.name, tc.key, tc.value); got != tc.want {
			t.Errorf("%s{%s=%s} = %d, want %d", tc.name, tc.key, tc.value, got, tc.want)
		}
	}
}

func TestSessionsEndedAndSeeds(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSessionEnded(ctx, "stopped")
	m.RecordSessionEnded(ctx, "error")
	m.RecordSeeds(ctx, "session_complete", 50)
	m.RecordSeeds(ctx, "login", 10)
	m.RecordSeeds(ctx, "session_complete", 50)

	rm := collect(t, reader)
	if got := sumValue(t, rm, "gardencoach.coach.sessions.ended", "outcome", "stopped"); got != 1 {
		t.Errorf("stopped sessions = %d, want 1", got)
	}
	if got := sumValue(t, rm, "gardencoach.garden.seeds.awarded", "reason", "session_complete"); got != 100 {
		t.Errorf("session seeds = %d, want 100", got)
	}
}

func TestProviderErrorsCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderError(ctx, "genai", "llm")

	rm := collect(t, reader)
	if got := sumValue(t, rm, "gardencoach.provider.errors", "", ""); got != 1 {
		t.Errorf("counter value = %d, want 1", got)
	}
}

func TestActiveSessionsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, -1)

	rm := collect(t, reader)
	if got := sumValue(t, rm, "gardencoach.coach.active_sessions", "", ""); got != 1 {
		t.Errorf("gauge value = %d, want 1", got)
	}
}

func TestMentorCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordMentorCall(ctx, "journal", 0.8)

	rm := collect(t, reader)
	met := findMetric(rm, "gardencoach.mentor.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 || hist.DataPoints[0].Count != 1 {
		t.Errorf("want exactly one observation, got %+v", hist.DataPoints)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	// DefaultMetrics uses the global OTel provider so we just check
	// that repeated calls return the same pointer.
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
