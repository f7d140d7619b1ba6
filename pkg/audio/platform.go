// Package audio defines the types and device interfaces used by the coaching
// session to capture microphone audio and play back synthesized speech.
//
// The primary abstractions are:
//
//   - [Microphone] grants access to a capture device and returns a
//     [MediaStream] of float samples.
//   - [Output] is a playback device with its own clock on which decoded
//     buffers are scheduled at absolute start times, yielding a [Playback]
//     handle per buffer.
//
// Host implementations live in audio/device; in-memory doubles live in
// audio/mock. The package also carries the PCM codec, volume meter, framer and
// resampler shared by every implementation.
package audio

import (
	"context"
	"errors"
)

// ErrPermissionDenied is returned by [Microphone.Open] when the user or the
// host refuses access to the capture device, or no device is available.
var ErrPermissionDenied = errors.New("audio: microphone access denied")

// Track is one live source inside a [MediaStream] (a microphone channel on the
// host device).
type Track interface {
	// ID identifies the track for logging.
	ID() string

	// Live reports whether the track is still producing audio.
	Live() bool

	// Stop ends the track and releases the underlying device. Stopping a track
	// that is no longer live is a no-op.
	Stop() error
}

// MediaStream is an open microphone stream.
//
// Samples delivers mono float chunks in [-1, 1] at the format requested from
// [Microphone.Open]. Chunk sizes follow the device period and are not framed;
// callers accumulate them with a [Framer]. The channel is closed once every
// track has stopped.
type MediaStream interface {
	Samples() <-chan []float32
	Tracks() []Track
}

// Microphone grants access to a capture device.
//
// Implementations must be safe for concurrent use.
type Microphone interface {
	// Open requests access to the device and starts capture in the given
	// format. This may block awaiting a permission decision; ctx bounds the
	// wait. A refusal is reported as [ErrPermissionDenied] (possibly wrapped).
	Open(ctx context.Context, format Format) (MediaStream, error)
}

// Playback is a handle to one scheduled buffer on an [Output].
type Playback interface {
	// Stop halts playback (or cancels it if it has not started yet). Stopping
	// a finished or already stopped handle is a no-op.
	Stop()

	// Done is closed when the buffer has finished playing or was stopped.
	Done() <-chan struct{}
}

// Output is a playback device with a monotonic clock measured in seconds.
//
// Implementations must be safe for concurrent use.
type Output interface {
	// Now returns the current output clock time in seconds.
	Now() float64

	// Schedule queues samples (mono, at sampleRate) to start playing at the
	// absolute clock time at. A time in the past starts immediately.
	Schedule(samples []float32, sampleRate int, at float64) (Playback, error)
}

// ReleaseTracks stops every live track of s, skipping tracks that have
// already stopped. It returns the joined errors of the tracks that failed to
// stop.
func ReleaseTracks(s MediaStream) error {
	if s == nil {
		return nil
	}
	var errs []error
	for _, t := range s.Tracks() {
		if !t.Live() {
			continue
		}
		if err := t.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
