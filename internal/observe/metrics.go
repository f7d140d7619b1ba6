// Package observe provides application-wide observability primitives for
// gardencoach: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped from the ops listener's /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all gardencoach metrics.
const meterName = "github.com/MrWong99/gardencoach"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ConnectDuration tracks how long a live session takes to open, from the
	// permission prompt to the server's setup acknowledgement.
	ConnectDuration metric.Float64Histogram

	// MentorDuration tracks text-generation latency. Use with attribute:
	//   attribute.String("feature", ...)
	MentorDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// FramesSent counts outbound audio frames accepted by the live session.
	FramesSent metric.Int64Counter

	// FramesDropped counts outbound frames that never reached the session. Use
	// with attribute:
	//   attribute.String("reason", "queue_full" | "send_error")
	FramesDropped metric.Int64Counter

	// FramesPlayed counts inbound frames scheduled for playback.
	FramesPlayed metric.Int64Counter

	// FramesSkipped counts inbound frames discarded because they could not
	// be decoded or scheduled.
	FramesSkipped metric.Int64Counter

	// Interruptions counts server-signalled barge-ins.
	Interruptions metric.Int64Counter

	// SessionsEnded counts finished sessions. Use with attribute:
	//   attribute.String("outcome", "stopped" | "remote_closed" | "error")
	SessionsEnded metric.Int64Counter

	// SeedsAwarded counts seeds granted by the garden ledger. Use with
	// attribute:
	//   attribute.String("reason", ...)
	SeedsAwarded metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live coaching sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("route", ...),
	//   attribute.Int("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// network round trips to hosted models.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ConnectDuration, err = m.Float64Histogram("gardencoach.coach.connect.duration",
		metric.WithDescription("Latency of opening a live coaching session."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.MentorDuration, err = m.Float64Histogram("gardencoach.mentor.duration",
		metric.WithDescription("Latency of mentor text generation by feature."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("gardencoach.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.FramesSent, err = m.Int64Counter("gardencoach.coach.frames.sent",
		metric.WithDescription("Outbound audio frames delivered to the live session."),
	); err != nil {
		return nil, err
	}
	if met.FramesDropped, err = m.Int64Counter("gardencoach.coach.frames.dropped",
		metric.WithDescription("Outbound audio frames dropped by reason."),
	); err != nil {
		return nil, err
	}
	if met.FramesPlayed, err = m.Int64Counter("gardencoach.coach.frames.played",
		metric.WithDescription("Inbound audio frames scheduled for playback."),
	); err != nil {
		return nil, err
	}
	if met.FramesSkipped, err = m.Int64Counter("gardencoach.coach.frames.skipped",
		metric.WithDescription("Inbound audio frames skipped after a decode or schedule failure."),
	); err != nil {
		return nil, err
	}
	if met.Interruptions, err = m.Int64Counter("gardencoach.coach.interruptions",
		metric.WithDescription("Server-signalled interruptions that flushed playback."),
	); err != nil {
		return nil, err
	}
	if met.SessionsEnded, err = m.Int64Counter("gardencoach.coach.sessions.ended",
		metric.WithDescription("Finished coaching sessions by outcome."),
	); err != nil {
		return nil, err
	}
	if met.SeedsAwarded, err = m.Int64Counter("gardencoach.garden.seeds.awarded",
		metric.WithDescription("Seeds granted by reward reason."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("gardencoach.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("gardencoach.coach.active_sessions",
		metric.WithDescription("Number of live coaching sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("gardencoach.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest records a provider request counter increment with
// the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordFrameDropped records one outbound frame lost for reason.
func (m *Metrics) RecordFrameDropped(ctx context.Context, reason string) {
	m.FramesDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordSessionEnded records a finished session with its outcome.
func (m *Metrics) RecordSessionEnded(ctx context.Context, outcome string) {
	m.SessionsEnded.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordSeeds records amount seeds awarded for reason.
func (m *Metrics) RecordSeeds(ctx context.Context, reason string, amount int) {
	m.SeedsAwarded.Add(ctx, int64(amount), metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordMentorCall records the latency of one mentor feature call.
func (m *Metrics) RecordMentorCall(ctx context.Context, feature string, seconds float64) {
	m.MentorDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("feature", feature)))
}
