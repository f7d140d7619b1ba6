// Package genai implements live.Provider on top of the official Google Gen AI
// Go SDK (google.golang.org/genai) Live client.
//
// The SDK owns the wire protocol; this package adapts its blocking Receive
// loop to the channel-based live.Session contract and waits for the server's
// setupComplete acknowledgement before handing the session out.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/MrWong99/gardencoach/pkg/audio"
	"github.com/MrWong99/gardencoach/pkg/provider/live"
)

var _ live.Provider = (*Provider)(nil)
var _ live.Session = (*session)(nil)

const (
	defaultModel      = "gemini-2.5-flash-native-audio-preview-12-2025"
	defaultAPIVersion = "v1beta"
	outputSampleRate  = 24000
)

// Option configures a Provider.
type Option func(*Provider)

// WithModel sets the default model for new sessions.
func WithModel(model string) Option {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL overrides the API endpoint. A ws:// or wss:// scheme is used
// as-is for the Live socket.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithAPIVersion overrides the API version segment used by the Live endpoint.
func WithAPIVersion(v string) Option {
	return func(p *Provider) {
		if v != "" {
			p.apiVersion = v
		}
	}
}

// Provider opens Gemini Live sessions through the Gen AI SDK.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	apiVersion string

	mu     sync.Mutex
	client *genai.Client
}

// New returns a Provider authenticating with apiKey.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		apiVersion: defaultAPIVersion,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Name implements live.Provider.
func (p *Provider) Name() string { return "genai-live" }

// clientFor lazily builds the SDK client; it is reused across sessions.
func (p *Provider) clientFor(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    p.baseURL,
			APIVersion: p.apiVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("genai live: new client: %w", err)
	}
	p.client = c
	return c, nil
}

// Connect opens a Live session and blocks until setupComplete arrives or ctx
// is done.
func (p *Provider) Connect(ctx context.Context, cfg live.SessionConfig) (live.Session, error) {
	client, err := p.clientFor(ctx)
	if err != nil {
		return nil, err
	}

	model := p.model
	if cfg.Model != "" {
		model = cfg.Model
	}

	conn, err := client.Live.Connect(ctx, model, connectConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("genai live: connect: %w", err)
	}

	if err := awaitSetup(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("genai live: setup: %w", err)
	}

	s := &session{
		id:       uuid.NewString(),
		conn:     conn,
		messages: make(chan live.Message, 64),
		done:     make(chan struct{}),
	}
	slog.Debug("genai live session open", "session_id", s.id, "model", model, "voice", cfg.Voice)
	go s.receiveLoop()
	return s, nil
}

func connectConfig(cfg live.SessionConfig) *genai.LiveConnectConfig {
	out := &genai.LiveConnectConfig{}
	for _, m := range cfg.ResponseModalities() {
		out.ResponseModalities = append(out.ResponseModalities, genai.Modality(m))
	}
	if cfg.Instructions != "" {
		out.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: cfg.Instructions}}}
	}
	if cfg.Voice != "" {
		out.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	return out
}

// awaitSetup reads until setupComplete. Receive does not take a context, so
// the read runs in a goroutine and ctx expiry closes the connection.
func awaitSetup(ctx context.Context, conn *genai.Session) error {
	result := make(chan error, 1)
	go func() {
		for {
			msg, err := conn.Receive()
			if err != nil {
				result <- err
				return
			}
			if msg.SetupComplete != nil {
				result <- nil
				return
			}
		}
	}()
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		_ = conn.Close()
		return ctx.Err()
	}
}

// ── session ────────────────────────────────────────────────────────────────────

type session struct {
	id       string
	conn     *genai.Session
	messages chan live.Message
	done     chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once

	mu     sync.Mutex
	err    error
	closed bool
}

func (s *session) receiveLoop() {
	defer close(s.messages)
	for {
		msg, err := s.conn.Receive()
		if err != nil {
			s.mu.Lock()
			if !s.closed && !isNormalClose(err) {
				s.err = fmt.Errorf("genai live: receive: %w", err)
			}
			s.closed = true
			s.mu.Unlock()
			return
		}
		if sc := msg.ServerContent; sc != nil {
			if !s.dispatch(sc) {
				return
			}
		}
	}
}

func (s *session) dispatch(sc *genai.LiveServerContent) bool {
	if sc.Interrupted && !s.emit(live.Message{Interrupted: true}) {
		return false
	}
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
				continue
			}
			if !s.emit(live.Message{Audio: p.InlineData.Data, SampleRate: outputSampleRate}) {
				return false
			}
		}
	}
	if t := sc.OutputTranscription; t != nil && t.Text != "" {
		if !s.emit(live.Message{Transcript: t.Text}) {
			return false
		}
	}
	if sc.TurnComplete {
		return s.emit(live.Message{TurnComplete: true})
	}
	return true
}

func (s *session) emit(m live.Message) bool {
	select {
	case s.messages <- m:
		return true
	case <-s.done:
		return false
	}
}

func isNormalClose(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "close 1000") || errors.Is(err, context.Canceled)
}

// ID implements live.Session.
func (s *session) ID() string { return s.id }

// Send implements live.Session.
func (s *session) Send(_ context.Context, frame audio.AudioFrame) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return live.ErrSessionClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	err := s.conn.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: frame.Data, MIMEType: frame.Format().MIMEType()},
	})
	if err != nil {
		return fmt.Errorf("genai live: send frame %d: %w", frame.Seq, err)
	}
	return nil
}

// Messages implements live.Session.
func (s *session) Messages() <-chan live.Message { return s.messages }

// Err implements live.Session.
func (s *session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close implements live.Session.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
		if err := s.conn.Close(); err != nil {
			slog.Debug("genai live: close", "session_id", s.id, "err", err)
		}
	})
	return nil
}
