// Package coach implements the real-time voice coaching session engine.
//
// An [Engine] owns at most one live session at a time. Start acquires the
// microphone, opens the live session and then runs three pumps until the
// session ends:
//
//	capture: microphone chunks -> framer -> volume meter -> PCM16 encoder -> send queue
//	send:    send queue -> live.Session.Send (one goroutine, capture order)
//	receive: live.Session.Messages -> decode -> playback queue (or flush on interruption)
//
// Stop, Close and every failure path converge on the same release routine,
// which closes the session, stops the microphone tracks and flushes playback
// exactly once per session.
package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/gardencoach/internal/observe"
	"github.com/MrWong99/gardencoach/pkg/audio"
	"github.com/MrWong99/gardencoach/pkg/provider/live"
)

// DecodeFunc converts one inbound PCM16 payload to float samples.
type DecodeFunc func(ctx context.Context, pcm []byte) ([]float32, error)

func decodePCM16(_ context.Context, pcm []byte) ([]float32, error) {
	return audio.DecodePCM16(pcm)
}

// ── Options ────────────────────────────────────────────────────────────────────

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithStatusFunc registers a callback invoked on every state transition with
// the new state and its status string. Callbacks run in transition order and
// must not call Start, Stop or Close synchronously.
func WithStatusFunc(fn func(State, string)) Option {
	return func(e *Engine) { e.onStatus = fn }
}

// WithVolumeFunc registers a callback receiving the input level in [0, 100]
// once per captured frame.
func WithVolumeFunc(fn func(float64)) Option {
	return func(e *Engine) { e.onVolume = fn }
}

// WithOnComplete registers the callback invoked once when a session is ended
// by Stop or Close.
func WithOnComplete(fn func()) Option {
	return func(e *Engine) { e.onComplete = fn }
}

// WithLogger sets the base logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics sets the metric instruments. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithDecoder replaces the inbound decode stage.
func WithDecoder(d DecodeFunc) Option {
	return func(e *Engine) {
		if d != nil {
			e.decode = d
		}
	}
}

// ── Engine ─────────────────────────────────────────────────────────────────────

// Engine drives one coaching session at a time. It is safe for concurrent use.
type Engine struct {
	provider live.Provider
	mic      audio.Microphone
	out      audio.Output

	log        *slog.Logger
	metrics    *observe.Metrics
	onStatus   func(State, string)
	onVolume   func(float64)
	onComplete func()
	decode     DecodeFunc

	// notifyMu is taken while e.mu is still held and released after the
	// status callback returns, so observers see transitions in order.
	notifyMu sync.Mutex

	mu     sync.Mutex
	cfg    Config
	state  State
	status string
	volume float64
	gen    uint64
	cur    *run
	closed bool
}

// run holds everything acquired for one session.
type run struct {
	gen uint64
	id  string
	cfg Config
	log *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// stream and session are written under Engine.mu while the run is
	// current and are read-only afterwards.
	stream  audio.MediaStream
	session live.Session

	queue  *playbackQueue
	sendCh chan audio.AudioFrame

	started   bool
	pumpsDone chan struct{}

	releaseOnce sync.Once
}

// New creates an Engine. Nothing is acquired until Start.
func New(provider live.Provider, mic audio.Microphone, out audio.Output, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		provider: provider,
		mic:      mic,
		out:      out,
		log:      slog.Default(),
		decode:   decodePCM16,
		cfg:      cfg.withDefaults(),
		state:    StateIdle,
		status:   StatusReady,
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// Start opens a new session. It blocks through the microphone permission
// prompt and the live handshake; ctx bounds those two steps only. On return
// with a nil error the engine is Listening.
//
// Start returns [ErrSessionActive] while a session is connecting or
// listening, and [ErrClosed] after Close. Permission and connection failures
// move the engine to [StateError] and are returned wrapping [ErrPermission]
// or [ErrConnection].
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.state.Active() {
		state := e.state
		e.mu.Unlock()
		e.log.Warn("coach: start rejected, session already active", "state", state.String())
		return ErrSessionActive
	}
	e.gen++
	r := e.newRun(ctx, e.gen, e.cfg)
	e.cur = r
	e.volume = 0
	e.setStateAndUnlock(StateConnecting, StatusConnecting)

	r.log.Info("coach: session starting",
		"provider", e.provider.Name(),
		"model", r.cfg.Model,
		"voice", r.cfg.Voice,
	)
	begin := time.Now()

	cctx, span := observe.StartSpan(ctx, "coach.connect")
	defer span.End()
	cctx, cancel := context.WithCancel(cctx)
	defer cancel()
	// Stop during Connecting cancels the pending prompt or handshake.
	stopWatch := context.AfterFunc(r.ctx, cancel)
	defer stopWatch()

	stream, err := e.mic.Open(cctx, r.cfg.inputFormat())
	if err != nil {
		return e.abortStart(r, fmt.Errorf("%w: %w", ErrPermission, err), StatusPermission)
	}
	if !e.attach(r, func() { r.stream = stream }) {
		_ = audio.ReleaseTracks(stream)
		return ErrStopped
	}

	sess, err := e.provider.Connect(cctx, live.SessionConfig{
		Model:        r.cfg.Model,
		Voice:        r.cfg.Voice,
		Instructions: r.cfg.SystemInstruction,
		Modalities:   []live.Modality{live.ModalityAudio},
		InputFormat:  r.cfg.inputFormat(),
	})
	if err != nil {
		e.metrics.RecordProviderError(ctx, e.provider.Name(), "live")
		return e.abortStart(r, fmt.Errorf("%w: %w", ErrConnection, err), StatusConnError)
	}
	if !e.attach(r, func() { r.session = sess }) {
		_ = sess.Close()
		return ErrStopped
	}

	e.mu.Lock()
	if e.cur != r {
		e.mu.Unlock()
		return ErrStopped
	}
	e.startPumpsLocked(r)
	e.setStateAndUnlock(StateListening, StatusListening)

	elapsed := time.Since(begin)
	e.metrics.ConnectDuration.Record(ctx, elapsed.Seconds())
	e.metrics.RecordProviderRequest(ctx, e.provider.Name(), "live", "ok")
	e.metrics.ActiveSessions.Add(ctx, 1)
	r.log.Info("coach: session listening", "remote_id", sess.ID(), "connect_time", elapsed)
	return nil
}

// Stop ends the current session, releases everything it acquired, moves to
// [StateClosed] and invokes the completion callback. It returns once the
// session pumps have exited. Stop is a no-op when no session is active.
func (e *Engine) Stop() error {
	e.mu.Lock()
	r := e.cur
	e.mu.Unlock()
	if r == nil {
		return nil
	}
	if e.terminate(r, StateClosed, StatusEnded, "stopped", true) {
		r.log.Info("coach: session stopped")
		r.waitPumps()
	}
	return nil
}

// Close disposes of the engine: it runs the same release as Stop for a live
// session, moves to [StateClosed] and makes later Start calls fail with
// [ErrClosed]. Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	r := e.cur
	e.mu.Unlock()

	if r != nil && e.terminate(r, StateClosed, StatusEnded, "stopped", true) {
		r.log.Info("coach: session ended by close")
		r.waitPumps()
		return nil
	}

	e.mu.Lock()
	if e.state == StateClosed {
		e.mu.Unlock()
		return nil
	}
	e.setStateAndUnlock(StateClosed, StatusEnded)
	return nil
}

// UpdateConfig replaces the configuration used by the next Start. A running
// session keeps the configuration it started with.
func (e *Engine) UpdateConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg.withDefaults()
}

// Config returns the configuration the next Start will use.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status returns the current human-readable status string.
func (e *Engine) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Volume returns the most recent input level in [0, 100].
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// QueueLen returns the number of playback handles that have not finished.
func (e *Engine) QueueLen() int {
	e.mu.Lock()
	r := e.cur
	e.mu.Unlock()
	if r == nil {
		return 0
	}
	return r.queue.size()
}

// NextStart returns the output-clock time at which the next inbound buffer
// would be scheduled if the clock has not passed it. Zero after an
// interruption or when no session is active.
func (e *Engine) NextStart() float64 {
	e.mu.Lock()
	r := e.cur
	e.mu.Unlock()
	if r == nil {
		return 0
	}
	return r.queue.next()
}

// ── Lifecycle internals ────────────────────────────────────────────────────────

func (e *Engine) newRun(parent context.Context, gen uint64, cfg Config) *run {
	// The session outlives Start's context but keeps its values (trace span).
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	id := uuid.NewString()
	return &run{
		gen:       gen,
		id:        id,
		cfg:       cfg,
		log:       observe.LoggerFrom(parent, e.log).With("session_id", id),
		ctx:       ctx,
		cancel:    cancel,
		queue:     newPlaybackQueue(e.out),
		sendCh:    make(chan audio.AudioFrame, cfg.SendBuffer),
		pumpsDone: make(chan struct{}),
	}
}

// setStateAndUnlock must be called with e.mu held. It records the transition,
// releases e.mu and then notifies the status callback.
func (e *Engine) setStateAndUnlock(s State, status string) {
	e.state = s
	e.status = status
	e.notifyMu.Lock()
	e.mu.Unlock()
	defer e.notifyMu.Unlock()
	if e.onStatus != nil {
		e.onStatus(s, status)
	}
}

// attach runs fn under the engine lock if r is still the current session.
func (e *Engine) attach(r *run, fn func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur != r {
		return false
	}
	fn()
	return true
}

// current reports whether r is still the engine's active session.
func (e *Engine) current(r *run) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cur != nil && e.cur.gen == r.gen
}

// abortStart fails a session that has not reached Listening.
func (e *Engine) abortStart(r *run, err error, status string) error {
	if !e.terminate(r, StateError, status, "error", false) {
		// Stop or Close won the race; the error is a consequence of it.
		return ErrStopped
	}
	r.log.Error("coach: session failed to start", "err", err)
	return err
}

// terminate ends r if it is still current: the new state is recorded, every
// resource is released and the status callback fires, in that order. When
// complete is set the completion callback runs afterwards. It reports
// whether this call ended the session.
func (e *Engine) terminate(r *run, s State, status, outcome string, complete bool) bool {
	e.mu.Lock()
	if e.cur != r {
		e.mu.Unlock()
		return false
	}
	e.cur = nil
	e.volume = 0
	e.state = s
	e.status = status
	wasListening := r.started
	e.notifyMu.Lock()
	e.mu.Unlock()

	e.release(r)
	if e.onStatus != nil {
		e.onStatus(s, status)
	}
	e.notifyMu.Unlock()

	ctx := context.Background()
	if wasListening {
		e.metrics.ActiveSessions.Add(ctx, -1)
	}
	e.metrics.RecordSessionEnded(ctx, outcome)

	if complete && e.onComplete != nil {
		e.onComplete()
	}
	return true
}

// release closes the session, stops every live microphone track and flushes
// playback. Safe to call more than once; only the first call acts.
func (e *Engine) release(r *run) {
	r.releaseOnce.Do(func() {
		r.cancel()

		var errs []error
		if r.session != nil {
			if err := r.session.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close session: %w", err))
			}
		}
		if err := audio.ReleaseTracks(r.stream); err != nil {
			errs = append(errs, fmt.Errorf("release microphone: %w", err))
		}
		if n := r.queue.close(); n > 0 {
			r.log.Debug("coach: playback flushed on release", "handles", n)
		}
		if err := errors.Join(errs...); err != nil {
			r.log.Warn("coach: release incomplete", "err", err)
		}
	})
}

func (r *run) waitPumps() {
	if r.started {
		<-r.pumpsDone
	}
}
