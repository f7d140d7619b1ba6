package audio

import (
	"fmt"
	"time"
)

// Wire formats used by the coaching session.
const (
	// InputSampleRate is the rate at which microphone audio is captured and
	// uploaded to the voice model.
	InputSampleRate = 16000

	// OutputSampleRate is the rate of synthesized speech returned by the
	// voice model.
	OutputSampleRate = 24000

	// DefaultFrameSize is the number of samples per outbound frame
	// (4096 samples at 16 kHz is 256 ms).
	DefaultFrameSize = 4096
)

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}

// MIMEType returns the media descriptor for signed 16-bit little-endian PCM
// at f's sample rate, e.g. "audio/pcm;rate=16000".
func (f Format) MIMEType() string {
	return fmt.Sprintf("audio/pcm;rate=%d", f.SampleRate)
}

// String returns a human-readable description such as "16000Hz mono".
func (f Format) String() string {
	return formatString(f.SampleRate, f.Channels)
}

// AudioFrame is one block of signed 16-bit little-endian PCM. Outbound frames
// carry a fixed number of samples at [InputSampleRate]; inbound frames are
// variable length at [OutputSampleRate].
type AudioFrame struct {
	// Data is little-endian int16 PCM.
	Data []byte

	// SampleRate in Hz.
	SampleRate int

	// Channels: always 1 for coaching audio.
	Channels int

	// Seq is the capture order of an outbound frame, starting at 1. Zero for
	// inbound frames.
	Seq uint64

	// Timestamp marks when this frame was captured, relative to session start.
	Timestamp time.Duration
}

// Format returns the frame's sample rate and channel count.
func (f AudioFrame) Format() Format {
	return Format{SampleRate: f.SampleRate, Channels: f.Channels}
}

// Samples returns the number of samples per channel in the frame.
func (f AudioFrame) Samples() int {
	ch := f.Channels
	if ch <= 0 {
		ch = 1
	}
	return len(f.Data) / (2 * ch)
}

// Duration returns how long the frame plays at its sample rate.
func (f AudioFrame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.Samples()) * time.Second / time.Duration(f.SampleRate)
}
