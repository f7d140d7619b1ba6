// Package device binds the audio interfaces to the host's sound hardware:
// microphone capture through miniaudio (github.com/gen2brain/malgo) and
// speaker output through github.com/ebitengine/oto/v3.
//
// Both require cgo and a working audio backend (ALSA/PulseAudio, CoreAudio,
// WASAPI). Tests use the in-memory doubles in audio/mock instead.
package device

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/MrWong99/gardencoach/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Microphone  = (*Microphone)(nil)
	_ audio.MediaStream = (*captureStream)(nil)
	_ audio.Track       = (*captureTrack)(nil)
)

// defaultPeriodMs is the capture callback period. Smaller periods lower
// latency at the cost of more callbacks.
const defaultPeriodMs = 20

// MicOption configures a [Microphone].
type MicOption func(*Microphone)

// WithPeriod sets the capture callback period in milliseconds.
func WithPeriod(ms uint32) MicOption {
	return func(m *Microphone) {
		if ms > 0 {
			m.periodMs = ms
		}
	}
}

// WithChunkBuffer sets how many capture chunks may queue before new chunks
// are dropped. The capture callback never blocks.
func WithChunkBuffer(n int) MicOption {
	return func(m *Microphone) {
		if n > 0 {
			m.chunkBuffer = n
		}
	}
}

// Microphone opens the host's default capture device.
type Microphone struct {
	periodMs    uint32
	chunkBuffer int
}

// NewMicrophone returns a Microphone for the default capture device.
func NewMicrophone(opts ...MicOption) *Microphone {
	m := &Microphone{periodMs: defaultPeriodMs, chunkBuffer: 64}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Open initialises a capture device in format (mono float32) and starts it.
// Missing devices and refused access are reported as
// [audio.ErrPermissionDenied].
func (m *Microphone) Open(ctx context.Context, format audio.Format) (audio.MediaStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if format.SampleRate <= 0 {
		format.SampleRate = audio.InputSampleRate
	}
	if format.Channels <= 0 {
		format.Channels = 1
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		slog.Debug("malgo", "msg", msg)
	})
	if err != nil {
		return nil, fmt.Errorf("device: init capture context: %w: %v", audio.ErrPermissionDenied, err)
	}

	s := &captureStream{
		samples: make(chan []float32, m.chunkBuffer),
		format:  format,
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = uint32(format.Channels)
	cfg.SampleRate = uint32(format.SampleRate)
	cfg.PeriodSizeInMilliseconds = m.periodMs

	dev, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) { s.deliver(input) },
	})
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("device: init capture device: %w: %v", audio.ErrPermissionDenied, err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("device: start capture: %w: %v", audio.ErrPermissionDenied, err)
	}

	s.track = &captureTrack{id: "mic-0", dev: dev, mctx: mctx, stream: s}
	s.track.live.Store(true)
	slog.Info("microphone opened", "format", format.String(), "period_ms", m.periodMs)
	return s, nil
}

// captureStream adapts the device callback to a channel of float chunks.
type captureStream struct {
	samples chan []float32
	format  audio.Format
	track   *captureTrack

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func (s *captureStream) Samples() <-chan []float32 { return s.samples }

func (s *captureStream) Tracks() []audio.Track { return []audio.Track{s.track} }

// deliver runs on the device's audio thread. It must not block.
func (s *captureStream) deliver(input []byte) {
	n := len(input) / 4
	if n == 0 {
		return
	}
	chunk := make([]float32, n)
	for i := range chunk {
		chunk[i] = math.Float32frombits(binary.LittleEndian.Uint32(input[i*4:]))
	}
	if s.format.Channels > 1 {
		chunk = audio.DownmixToMono(chunk, s.format.Channels)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.samples <- chunk:
	default:
		if s.dropped.Add(1)%50 == 1 {
			slog.Warn("microphone chunk dropped, consumer too slow", "dropped", s.dropped.Load())
		}
	}
}

func (s *captureStream) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.samples)
}

// captureTrack owns the malgo device and context.
type captureTrack struct {
	id     string
	dev    *malgo.Device
	mctx   *malgo.AllocatedContext
	stream *captureStream
	live   atomic.Bool
	once   sync.Once
}

func (t *captureTrack) ID() string { return t.id }

func (t *captureTrack) Live() bool { return t.live.Load() }

// Stop stops and releases the device. Idempotent.
func (t *captureTrack) Stop() error {
	var err error
	t.once.Do(func() {
		t.live.Store(false)
		var errs []error
		if e := t.dev.Stop(); e != nil {
			errs = append(errs, fmt.Errorf("device: stop capture: %w", e))
		}
		t.dev.Uninit()
		if e := t.mctx.Uninit(); e != nil {
			errs = append(errs, fmt.Errorf("device: uninit context: %w", e))
		}
		t.mctx.Free()
		t.stream.end()
		err = errors.Join(errs...)
		slog.Info("microphone released", "track", t.id)
	})
	return err
}
