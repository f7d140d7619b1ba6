package device

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/MrWong99/gardencoach/pkg/audio"
	"github.com/MrWong99/gardencoach/pkg/audio/mixer"
)

// Compile-time interface assertion.
var _ audio.Output = (*Speaker)(nil)

// oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

// SpeakerOption configures a [Speaker].
type SpeakerOption func(*speakerConfig)

type speakerConfig struct {
	bufferSize time.Duration
}

// WithBufferSize sets the device buffer length. Shorter buffers lower
// latency but risk underruns. Default: 100ms.
func WithBufferSize(d time.Duration) SpeakerOption {
	return func(c *speakerConfig) {
		if d > 0 {
			c.bufferSize = d
		}
	}
}

// Speaker plays scheduled buffers on the default output device. Its clock is
// the sample position of the internal [mixer.Timeline], which the device
// pulls continuously (silence when idle).
type Speaker struct {
	timeline *mixer.Timeline
	player   *oto.Player

	closeOnce sync.Once
}

// NewSpeaker opens the default output device at sampleRate Hz (mono, s16le)
// and starts rendering. Only one sample rate can be used per process.
func NewSpeaker(sampleRate int, opts ...SpeakerOption) (*Speaker, error) {
	if sampleRate <= 0 {
		sampleRate = audio.OutputSampleRate
	}
	cfg := speakerConfig{bufferSize: 100 * time.Millisecond}
	for _, o := range opts {
		o(&cfg)
	}

	otoOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   cfg.bufferSize,
		})
		if otoErr == nil {
			<-ready
			otoRate = sampleRate
		}
	})
	if otoErr != nil {
		return nil, fmt.Errorf("device: open speaker: %w", otoErr)
	}
	if otoRate != sampleRate {
		return nil, fmt.Errorf("device: speaker already opened at %d Hz", otoRate)
	}

	tl := mixer.New(sampleRate)
	player := otoCtx.NewPlayer(tl)
	player.Play()
	slog.Info("speaker opened", "sample_rate", sampleRate, "buffer", cfg.bufferSize)
	return &Speaker{timeline: tl, player: player}, nil
}

// Now implements [audio.Output].
func (s *Speaker) Now() float64 { return s.timeline.Now() }

// Schedule implements [audio.Output].
func (s *Speaker) Schedule(samples []float32, sampleRate int, at float64) (audio.Playback, error) {
	return s.timeline.Schedule(samples, sampleRate, at)
}

// Close stops all scheduled audio and releases the player. Idempotent.
func (s *Speaker) Close() error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.timeline.Close()
		err = s.player.Close()
	})
	return err
}
