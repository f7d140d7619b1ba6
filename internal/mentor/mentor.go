// Package mentor implements the text features of the garden mentor: journal
// reflections, market idea generation grounded on web search, and discovery
// of nearby spaces grounded on maps.
//
// Every feature degrades gracefully. Provider failures are logged and counted,
// and the caller receives a fixed fallback answer instead of an error, so the
// UI never has to render a failure state.
package mentor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MrWong99/gardencoach/internal/observe"
	"github.com/MrWong99/gardencoach/pkg/provider/llm"
)

// Fallback answers returned when a feature cannot reach the model.
const (
	JournalFallback = "Tu jardín interior está escuchando. Sigue cultivando tus pensamientos."
	SpacesFallback  = "No pudimos conectar con el mapa de jardines cercanos hoy."
)

// DefaultLanguage is the reply language when none is configured.
const DefaultLanguage = "español latino"

// DefaultTimeout bounds a single mentor call.
const DefaultTimeout = 30 * time.Second

// Feature names used for logging and metrics.
const (
	featureJournal = "journal"
	featureIdeas   = "ideas"
	featureSpaces  = "spaces"
)

// Option is a functional option for configuring a [Mentor].
type Option func(*Mentor)

// WithLanguage sets the language the mentor replies in.
func WithLanguage(lang string) Option {
	return func(m *Mentor) {
		if lang != "" {
			m.language = lang
		}
	}
}

// WithMapsProvider routes maps-grounded requests to p. Map grounding is only
// available on some models, so it may need a different backend than the
// other features.
func WithMapsProvider(p llm.Provider) Option {
	return func(m *Mentor) {
		if p != nil {
			m.maps = p
		}
	}
}

// WithTimeout bounds every model call.
func WithTimeout(d time.Duration) Option {
	return func(m *Mentor) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(m *Mentor) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics sets the metric instruments. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(mt *observe.Metrics) Option {
	return func(m *Mentor) {
		if mt != nil {
			m.metrics = mt
		}
	}
}

// Mentor answers the text features. It is safe for concurrent use.
type Mentor struct {
	text     llm.Provider
	maps     llm.Provider
	language string
	timeout  time.Duration
	log      *slog.Logger
	metrics  *observe.Metrics
}

// New creates a Mentor backed by p.
func New(p llm.Provider, opts ...Option) *Mentor {
	m := &Mentor{
		text:     p,
		maps:     p,
		language: DefaultLanguage,
		timeout:  DefaultTimeout,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	if m.metrics == nil {
		m.metrics = observe.DefaultMetrics()
	}
	return m
}

// Language returns the configured reply language.
func (m *Mentor) Language() string { return m.language }

// AnalyzeJournal returns a short empathetic reflection on a journal entry
// with one actionable piece of advice. It returns [JournalFallback] when the
// entry is blank or the model cannot be reached.
func (m *Mentor) AnalyzeJournal(ctx context.Context, entry string) string {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return JournalFallback
	}
	resp, err := m.complete(ctx, featureJournal, m.text, llm.CompletionRequest{
		SystemPrompt: journalSystemPrompt(m.language),
		Messages:     []llm.Message{llm.UserMessage(journalPrompt(entry))},
	})
	if err != nil {
		return JournalFallback
	}
	return strings.TrimSpace(resp.Content)
}

// FindLocalSpaces lists nearby places suited to a young entrepreneur, using
// map grounding around the given coordinate. The answer is model-formatted
// text, usually Markdown with map links. It returns [SpacesFallback] on any
// failure.
func (m *Mentor) FindLocalSpaces(ctx context.Context, lat, lng float64) string {
	resp, err := m.complete(ctx, featureSpaces, m.maps, llm.CompletionRequest{
		Messages: []llm.Message{llm.UserMessage(spacesPrompt(m.language))},
		Grounding: llm.Grounding{
			Maps:     true,
			Location: &llm.Location{Latitude: lat, Longitude: lng},
		},
	})
	if err != nil {
		return SpacesFallback
	}
	return strings.TrimSpace(resp.Content)
}

// complete runs one model call with a timeout, a span and latency metrics.
func (m *Mentor) complete(ctx context.Context, feature string, p llm.Provider, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	ctx, span := observe.StartSpan(ctx, "mentor."+feature)
	defer span.End()

	log := observe.LoggerFrom(ctx, m.log).With("feature", feature)
	start := time.Now()
	resp, err := p.Complete(ctx, req)
	elapsed := time.Since(start)
	m.metrics.RecordMentorCall(ctx, feature, elapsed.Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.metrics.RecordProviderError(ctx, "mentor", feature)
		log.Error("mentor: call failed, using fallback", "err", err, "elapsed", elapsed)
		return nil, err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		m.metrics.RecordProviderError(ctx, "mentor", feature)
		log.Warn("mentor: empty answer, using fallback", "elapsed", elapsed)
		return nil, llm.ErrEmptyResponse
	}
	span.SetAttributes(attribute.Int("mentor.sources", len(resp.Sources)))
	m.metrics.RecordProviderRequest(ctx, "mentor", feature, "ok")
	log.Debug("mentor: answered", "elapsed", elapsed, "sources", len(resp.Sources))
	return resp, nil
}
