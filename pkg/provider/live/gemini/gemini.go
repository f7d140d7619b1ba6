// Package gemini implements the live.Provider interface for Google's Gemini
// Live API over a raw WebSocket.
//
// It establishes a bidirectional WebSocket connection to the BidiGenerateContent
// endpoint and exchanges JSON messages: a setup message (model, response
// modality, voice, system instruction), realtimeInput messages carrying
// base64-encoded 16 kHz PCM, and serverContent messages carrying base64-encoded
// 24 kHz PCM plus the interrupted and turnComplete flags.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/MrWong99/gardencoach/pkg/audio"
	"github.com/MrWong99/gardencoach/pkg/provider/live"
)

// Compile-time assertions that Provider and session satisfy the live interfaces.
var _ live.Provider = (*Provider)(nil)
var _ live.Session = (*session)(nil)

const (
	defaultModel   = "gemini-2.5-flash-native-audio-preview-12-2025"
	defaultBaseURL = "wss://generativelanguage.googleapis.com/ws"

	// outputSampleRate is the fixed rate of Gemini Live audio output.
	outputSampleRate = 24000

	defaultSetupTimeout = 15 * time.Second
	keepaliveInterval   = 20 * time.Second
	keepaliveTimeout    = 5 * time.Second
)

// ── Options ────────────────────────────────────────────────────────────────────

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the Gemini model used for sessions.
func WithModel(model string) Option {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL overrides the base WebSocket URL. Primarily used in tests to
// point at a local mock server.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		if url != "" {
			p.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithSetupTimeout bounds how long Connect waits for setupComplete when ctx
// has no deadline of its own.
func WithSetupTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.setupTimeout = d
		}
	}
}

// WithMessageBuffer sets the capacity of each session's Messages channel.
func WithMessageBuffer(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.messageBuffer = n
		}
	}
}

// ── Provider ───────────────────────────────────────────────────────────────────

// Provider implements live.Provider for Google's Gemini Live API.
type Provider struct {
	apiKey        string
	model         string
	baseURL       string
	setupTimeout  time.Duration
	messageBuffer int
}

// New creates a new Gemini Live Provider with the given API key and options.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:        apiKey,
		model:         defaultModel,
		baseURL:       defaultBaseURL,
		setupTimeout:  defaultSetupTimeout,
		messageBuffer: 64,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Name implements live.Provider.
func (p *Provider) Name() string { return "gemini-live" }

// Connect dials the Live endpoint, sends the setup message, and waits for the
// server's setupComplete acknowledgement before returning the session.
func (p *Provider) Connect(ctx context.Context, cfg live.SessionConfig) (live.Session, error) {
	wsURL := fmt.Sprintf(
		"%s/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent?key=%s",
		p.baseURL, p.apiKey,
	)

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.setupTimeout)
		defer cancel()
	}

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Content-Type": []string{"application/json"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: dial: %w", err)
	}
	// Inbound audio chunks can exceed the library's 32 KiB default.
	conn.SetReadLimit(16 << 20)

	sessCtx, sessCancel := context.WithCancel(context.Background())
	sess := &session{
		id:       uuid.NewString(),
		conn:     conn,
		messages: make(chan live.Message, p.messageBuffer),
		done:     make(chan struct{}),
		ctx:      sessCtx,
		cancel:   sessCancel,
	}

	model := p.model
	if cfg.Model != "" {
		model = cfg.Model
	}
	if err := sess.sendSetup(ctx, model, cfg); err != nil {
		sessCancel()
		conn.Close(websocket.StatusInternalError, "setup failed")
		return nil, fmt.Errorf("gemini: setup: %w", err)
	}
	if err := sess.awaitSetupComplete(ctx); err != nil {
		sessCancel()
		conn.Close(websocket.StatusPolicyViolation, "setup rejected")
		return nil, fmt.Errorf("gemini: setup: %w", err)
	}

	slog.Debug("gemini live session open", "session_id", sess.id, "model", model, "voice", cfg.Voice)

	go sess.receiveLoop()
	go sess.keepaliveLoop()

	return sess, nil
}

// ── Protocol message types (outgoing) ─────────────────────────────────────────

type setupMessage struct {
	Setup setupConfig `json:"setup"`
}

type setupConfig struct {
	Model             string             `json:"model"`
	GenerationConfig  generationConfig   `json:"generationConfig"`
	SystemInstruction *systemInstruction `json:"systemInstruction,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type systemInstruction struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	MediaChunks []mediaChunk `json:"mediaChunks"`
}

type mediaChunk struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded
}

// ── Protocol message types (incoming) ─────────────────────────────────────────

type serverMessage struct {
	SetupComplete *json.RawMessage `json:"setupComplete,omitempty"`
	ServerContent *serverContent   `json:"serverContent,omitempty"`
	GoAway        *json.RawMessage `json:"goAway,omitempty"`
	Error         *geminiError     `json:"error,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

func (e *geminiError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	if e.Status != "" {
		return fmt.Sprintf("gemini: %s (%s)", msg, e.Status)
	}
	return "gemini: " + msg
}

type serverContent struct {
	ModelTurn           *modelTurn     `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type modelTurn struct {
	Parts []part `json:"parts"`
}

type transcription struct {
	Text string `json:"text"`
}

// ── session ────────────────────────────────────────────────────────────────────

type session struct {
	id       string
	conn     *websocket.Conn
	messages chan live.Message

	mu       sync.Mutex
	errVal   error
	done     chan struct{}
	closed   bool
	shutdown bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// sendSetup sends the initial BidiGenerateContent setup message.
func (s *session) sendSetup(ctx context.Context, model string, cfg live.SessionConfig) error {
	modalities := cfg.ResponseModalities()
	msg := setupMessage{
		Setup: setupConfig{
			Model: "models/" + strings.TrimPrefix(model, "models/"),
			GenerationConfig: generationConfig{
				ResponseModalities: make([]string, len(modalities)),
			},
		},
	}
	for i, m := range modalities {
		msg.Setup.GenerationConfig.ResponseModalities[i] = string(m)
	}

	if cfg.Instructions != "" {
		msg.Setup.SystemInstruction = &systemInstruction{
			Parts: []part{{Text: cfg.Instructions}},
		}
	}

	if cfg.Voice != "" {
		msg.Setup.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: voiceConfig{
				PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}

	return s.writeJSON(ctx, msg)
}

// awaitSetupComplete reads until the server acknowledges the setup. Any other
// message before the acknowledgement is ignored; a server error aborts.
func (s *session) awaitSetupComplete(ctx context.Context) error {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("await setupComplete: %w", err)
		}
		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("gemini: malformed message during setup", "session_id", s.id, "err", err)
			continue
		}
		if msg.Error != nil {
			return msg.Error
		}
		if msg.SetupComplete != nil {
			return nil
		}
	}
}

// writeJSON marshals v and writes it as a text WebSocket message.
func (s *session) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("gemini: marshal: %w", err)
	}
	return s.conn.Write(ctx, websocket.MessageText, data)
}

// receiveLoop reads messages from the WebSocket and dispatches them.
// It owns the messages channel and closes it when it exits.
func (s *session) receiveLoop() {
	defer s.closeMessages()

	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			// Local close or a normal remote close end the session cleanly.
			if s.ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				s.markClosed()
				return
			}
			s.setErr(fmt.Errorf("gemini: read: %w", err))
			s.markClosed()
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("gemini: skipping malformed frame", "session_id", s.id, "err", err)
			continue
		}

		if !s.handleServerMessage(&msg) {
			return
		}
	}
}

// handleServerMessage dispatches msg. It returns false when the session must
// stop receiving.
func (s *session) handleServerMessage(msg *serverMessage) bool {
	if msg.Error != nil {
		s.setErr(msg.Error)
		s.markClosed()
		return false
	}
	if msg.GoAway != nil {
		slog.Info("gemini: server announced disconnect", "session_id", s.id)
	}
	if msg.ServerContent != nil {
		return s.handleServerContent(msg.ServerContent)
	}
	return true
}

func (s *session) handleServerContent(sc *serverContent) bool {
	// Interruption is delivered first so that any audio in the same message
	// is treated as post-interruption output.
	if sc.Interrupted {
		if !s.emit(live.Message{Interrupted: true}) {
			return false
		}
	}

	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData == nil {
				continue
			}
			pcm, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				slog.Warn("gemini: skipping undecodable audio part", "session_id", s.id, "err", err)
				continue
			}
			if len(pcm) == 0 {
				continue
			}
			if !s.emit(live.Message{Audio: pcm, SampleRate: outputSampleRate}) {
				return false
			}
		}
	}

	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		if !s.emit(live.Message{Transcript: sc.OutputTranscription.Text}) {
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
	case <-s.ctx.Done():
		return false
	}
}

// keepaliveLoop sends WebSocket pings to keep the Gemini Live connection alive.
func (s *session) keepaliveLoop() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(s.ctx, keepaliveTimeout)
			if err := s.conn.Ping(pingCtx); err != nil && s.ctx.Err() == nil {
				slog.Debug("gemini: keepalive ping failed", "session_id", s.id, "err", err)
			}
			cancel()
		}
	}
}

func (s *session) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errVal == nil {
		s.errVal = err
	}
}

func (s *session) markClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *session) closeMessages() {
	s.closeOnce.Do(func() {
		close(s.messages)
	})
}

// ── Session methods ────────────────────────────────────────────────────────────

// ID implements live.Session.
func (s *session) ID() string { return s.id }

// Send encodes frame as a realtimeInput media chunk.
func (s *session) Send(ctx context.Context, frame audio.AudioFrame) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return live.ErrSessionClosed
	}
	s.mu.Unlock()

	msg := realtimeInputMessage{
		RealtimeInput: realtimeInput{
			MediaChunks: []mediaChunk{{
				MIMEType: frame.Format().MIMEType(),
				Data:     base64.StdEncoding.EncodeToString(frame.Data),
			}},
		},
	}
	if err := s.writeJSON(ctx, msg); err != nil {
		if s.ctx.Err() != nil {
			return live.ErrSessionClosed
		}
		return fmt.Errorf("gemini: send frame %d: %w", frame.Seq, err)
	}
	return nil
}

// Messages implements live.Session.
func (s *session) Messages() <-chan live.Message { return s.messages }

// Err returns the first non-nil error that caused the session to terminate.
func (s *session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errVal
}

// Close terminates the session and releases all resources. Idempotent.
func (s *session) Close() error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	s.closed = true
	s.mu.Unlock()

	s.cancel()    // unblocks receiveLoop and keepaliveLoop
	close(s.done) // signals keepaliveLoop via done channel
	if err := s.conn.Close(websocket.StatusNormalClosure, "session closed"); err != nil {
		slog.Debug("gemini: close handshake incomplete", "session_id", s.id, "err", err)
	}
	return nil
}
