package coach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/gardencoach/pkg/audio"
	"github.com/MrWong99/gardencoach/pkg/provider/live"
)

// errRemoteClosed ends the pumps when the service closes the session cleanly.
var errRemoteClosed = errors.New("coach: session closed by remote")

// startPumpsLocked launches the capture, send and receive goroutines for r
// and a supervisor that settles the session when they stop. Must be called
// with e.mu held.
func (e *Engine) startPumpsLocked(r *run) {
	r.started = true
	g, gctx := errgroup.WithContext(r.ctx)
	g.Go(func() error { return e.capturePump(gctx, r) })
	g.Go(func() error { return e.sendPump(gctx, r) })
	g.Go(func() error { return e.receivePump(gctx, r) })
	go e.supervise(r, g)
}

// supervise waits for the pumps and maps the first failure onto the state
// machine. A nil result means the session was ended locally.
func (e *Engine) supervise(r *run, g *errgroup.Group) {
	defer close(r.pumpsDone)

	err := g.Wait()
	switch {
	case err == nil:
		return
	case errors.Is(err, errRemoteClosed):
		if e.terminate(r, StateClosed, StatusEnded, "remote_closed", false) {
			r.log.Info("coach: session closed by remote")
		}
	case errors.Is(err, ErrPermission):
		if e.terminate(r, StateError, StatusPermission, "error", false) {
			r.log.Error("coach: microphone lost", "err", err)
		}
	default:
		if e.terminate(r, StateError, StatusConnError, "error", false) {
			e.metrics.RecordProviderError(context.Background(), e.provider.Name(), "live")
			r.log.Error("coach: session dropped", "err", err)
		}
	}
}

// ── Capture ───────────────────────────────────────────────────────────────────

// capturePump frames microphone chunks, publishes the volume of each frame
// and hands the encoded frame to the sender without ever blocking on it.
// It owns r.sendCh and closes it on exit.
func (e *Engine) capturePump(ctx context.Context, r *run) error {
	defer close(r.sendCh)

	framer := audio.NewFramer(r.cfg.FrameSize)
	rate := r.cfg.InputSampleRate
	samples := r.stream.Samples()
	var seq uint64
	var captured int64

	for {
		select {
		case <-ctx.Done():
			return nil
		case chunk, ok := <-samples:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: capture stream ended", ErrPermission)
			}
			for _, frame := range framer.Push(chunk) {
				seq++
				f := audio.AudioFrame{
					Data:       audio.EncodePCM16(frame),
					SampleRate: rate,
					Channels:   1,
					Seq:        seq,
					Timestamp:  time.Duration(captured * int64(time.Second) / int64(rate)),
				}
				captured += int64(len(frame))

				e.publishVolume(r, audio.Volume(frame))

				select {
				case r.sendCh <- f:
				default:
					e.metrics.RecordFrameDropped(ctx, "queue_full")
					r.log.Warn("coach: send queue full, dropping frame", "seq", f.Seq)
				}
			}
		}
	}
}

func (e *Engine) publishVolume(r *run, v float64) {
	e.mu.Lock()
	if e.cur != r {
		e.mu.Unlock()
		return
	}
	e.volume = v
	e.mu.Unlock()
	if e.onVolume != nil {
		e.onVolume(v)
	}
}

// sendPump transmits queued frames in capture order. A failed frame is
// logged and skipped; a closed session ends the pump and is reported by the
// receive side.
func (e *Engine) sendPump(ctx context.Context, r *run) error {
	for f := range r.sendCh {
		if ctx.Err() != nil {
			return nil
		}
		if err := r.session.Send(ctx, f); err != nil {
			if ctx.Err() != nil || errors.Is(err, live.ErrSessionClosed) {
				return nil
			}
			e.metrics.RecordFrameDropped(ctx, "send_error")
			r.log.Warn("coach: frame send failed", "seq", f.Seq, "err", err)
			continue
		}
		e.metrics.FramesSent.Add(ctx, 1)
	}
	return nil
}

// ── Playback ──────────────────────────────────────────────────────────────────

// receivePump applies inbound model output in arrival order.
func (e *Engine) receivePump(ctx context.Context, r *run) error {
	msgs := r.session.Messages()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				if err := r.session.Err(); err != nil {
					return fmt.Errorf("%w: %w", ErrConnection, err)
				}
				return errRemoteClosed
			}
			e.handleMessage(ctx, r, m)
		}
	}
}

func (e *Engine) handleMessage(ctx context.Context, r *run, m live.Message) {
	if m.Interrupted {
		e.interrupt(ctx, r)
	}
	if m.HasAudio() {
		e.play(ctx, r, m)
	}
	if m.Transcript != "" {
		r.log.Debug("coach: mentor transcript", "text", m.Transcript)
	}
	if m.TurnComplete {
		r.log.Debug("coach: mentor turn complete")
	}
}

// interrupt stops everything scheduled so far. Audio that arrives afterwards
// is placed relative to the output clock, never at the old projected end.
func (e *Engine) interrupt(ctx context.Context, r *run) {
	if !e.current(r) {
		return
	}
	n := r.queue.flush()
	e.metrics.Interruptions.Add(ctx, 1)
	r.log.Debug("coach: interrupted, playback flushed", "handles", n)
}

func (e *Engine) play(ctx context.Context, r *run, m live.Message) {
	samples, err := e.decode(ctx, m.Audio)
	if err != nil {
		if ctx.Err() == nil {
			e.metrics.FramesSkipped.Add(ctx, 1)
			r.log.Warn("coach: skipping undecodable frame", "bytes", len(m.Audio), "err", err)
		}
		return
	}
	// A decode that completes after the session ended must not play.
	if ctx.Err() != nil || !e.current(r) {
		return
	}

	rate := m.SampleRate
	if rate <= 0 {
		rate = r.cfg.OutputSampleRate
	}
	start, err := r.queue.schedule(samples, rate)
	if err != nil {
		if !errors.Is(err, errQueueClosed) {
			e.metrics.FramesSkipped.Add(ctx, 1)
			r.log.Warn("coach: skipping unschedulable frame", "err", err)
		}
		return
	}
	e.metrics.FramesPlayed.Add(ctx, 1)
	r.log.Debug("coach: frame scheduled", "start", start, "duration", audio.Seconds(len(samples), rate))
}
