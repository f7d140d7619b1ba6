package observe

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

// UnmatchedRoute labels requests no registered pattern matched.
const UnmatchedRoute = "unmatched"

// DefaultQuietPaths are polled by Prometheus and orchestrators and log at
// debug level unless [WithQuietPaths] says otherwise.
var DefaultQuietPaths = []string{"/metrics", "/healthz", "/readyz"}

// statusRecorder keeps the status code the wrapped handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type middlewareConfig struct {
	log   *slog.Logger
	route func(*http.Request) string
	quiet map[string]bool
}

// MiddlewareOption configures [Middleware].
type MiddlewareOption func(*middlewareConfig)

// WithRequestLogger logs completed requests to l instead of [slog.Default].
func WithRequestLogger(l *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) { c.log = l }
}

// WithRoutes labels spans and metrics with the mux pattern that serves the
// request ("GET /healthz") rather than the raw path, which keeps the
// histogram's cardinality bounded.
func WithRoutes(mux *http.ServeMux) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.route = func(r *http.Request) string {
			if _, pattern := mux.Handler(r); pattern != "" {
				return pattern
			}
			return UnmatchedRoute
		}
	}
}

// WithQuietPaths replaces [DefaultQuietPaths].
func WithQuietPaths(paths ...string) MiddlewareOption {
	return func(c *middlewareConfig) { c.quiet = pathSet(paths) }
}

func pathSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}

// Middleware traces, times and logs every request served by the wrapped
// handler. Incoming W3C trace context is continued; the trace ID is echoed
// as X-Correlation-ID. Durations land in [Metrics.HTTPRequestDuration]
// labelled by method and route.
func Middleware(m *Metrics, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{
		route: func(r *http.Request) string { return r.URL.Path },
		quiet: pathSet(DefaultQuietPaths),
	}
	for _, o := range opts {
		o(&cfg)
	}
	prop := propagation.TraceContext{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := cfg.route(r)

			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := StartSpan(ctx, "HTTP "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
					semconv.HTTPRoute(route),
				),
			)
			defer span.End()

			cid := CorrelationID(ctx)
			if cid != "" {
				w.Header().Set("X-Correlation-ID", cid)
			}
			prop.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			elapsed := time.Since(start)
			m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(),
				metric.WithAttributes(
					attribute.String("method", r.Method),
					attribute.String("route", route),
					attribute.Int("status", rec.status),
				),
			)
			span.SetAttributes(semconv.HTTPResponseStatusCode(rec.status))

			level := slog.LevelInfo
			if cfg.quiet[r.URL.Path] {
				level = slog.LevelDebug
			}
			LoggerFrom(ctx, cfg.log).LogAttrs(ctx, level, "request completed",
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.Int("status", rec.status),
				slog.Duration("duration", elapsed),
			)
		})
	}
}
