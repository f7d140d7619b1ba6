// Package live defines the Provider interface for real-time, full-duplex voice
// model backends such as the Gemini Live API.
//
// A Provider opens a Session with an explicit asynchronous Connect that
// returns only once the remote service has acknowledged the session setup.
// The returned Session is a handle: outbound audio is sent through it and
// inbound model output is read from its Messages channel. Sessions are
// long-lived (seconds to minutes) and are never resumed; a new Connect always
// creates a fresh session.
//
// All implementations must be safe for concurrent use.
package live

import (
	"context"
	"errors"

	"github.com/MrWong99/gardencoach/pkg/audio"
)

// ErrSessionClosed is returned by [Session.Send] after the session has been
// closed locally or by the remote peer.
var ErrSessionClosed = errors.New("live: session closed")

// Modality names a response modality requested from the model.
type Modality string

// ModalityAudio asks the model to reply with synthesized speech.
const ModalityAudio Modality = "AUDIO"

// SessionConfig is the configuration sent to the model when a session opens.
type SessionConfig struct {
	// Model overrides the provider's default model when non-empty.
	Model string

	// Voice is the prebuilt voice identifier (e.g. "Kore").
	Voice string

	// Instructions is the system instruction describing the persona.
	Instructions string

	// Modalities lists the requested response modalities. Empty means
	// [ModalityAudio] only.
	Modalities []Modality

	// InputFormat is the format of outbound audio. Zero means 16 kHz mono.
	InputFormat audio.Format
}

// ResponseModalities returns the configured modalities, defaulting to audio.
func (c SessionConfig) ResponseModalities() []Modality {
	if len(c.Modalities) == 0 {
		return []Modality{ModalityAudio}
	}
	return c.Modalities
}

// Input returns the configured outbound format, defaulting to 16 kHz mono.
func (c SessionConfig) Input() audio.Format {
	f := c.InputFormat
	if f.SampleRate <= 0 {
		f.SampleRate = audio.InputSampleRate
	}
	if f.Channels <= 0 {
		f.Channels = 1
	}
	return f
}

// Message is one unit of inbound model output. A single server message may
// carry audio, an interruption signal, or both.
type Message struct {
	// Audio is little-endian int16 PCM, already base64-decoded. Empty when
	// the message carries no audio.
	Audio []byte

	// SampleRate of Audio in Hz (24000 for Gemini Live).
	SampleRate int

	// Interrupted signals that the user barged in: any queued model audio
	// must be discarded.
	Interrupted bool

	// TurnComplete marks the end of a model turn.
	TurnComplete bool

	// Transcript is optional text accompanying the model's speech.
	Transcript string
}

// HasAudio reports whether m carries audio.
func (m Message) HasAudio() bool { return len(m.Audio) > 0 }

// Session represents an open live session.
//
// Callers must call Close when the session is no longer needed.
type Session interface {
	// ID returns a provider- or client-assigned identifier for logging.
	ID() string

	// Send transmits one outbound frame. Frames must be sent in capture
	// order; implementations serialise writes so that concurrent callers
	// cannot interleave a single frame. Returns [ErrSessionClosed] once the
	// session has ended.
	Send(ctx context.Context, frame audio.AudioFrame) error

	// Messages returns the channel of inbound model output. It is closed when
	// the session ends for any reason; call Err afterwards.
	Messages() <-chan Message

	// Err returns the error that terminated the session, or nil if it ended
	// cleanly (local Close or a normal remote close).
	Err() error

	// Close terminates the session and closes the Messages channel.
	// Calling Close more than once is safe and returns nil.
	Close() error
}

// Provider opens live sessions.
type Provider interface {
	// Name identifies the provider for logs and metrics (e.g. "gemini-live").
	Name() string

	// Connect opens a session and waits until the remote service has
	// accepted the setup. ctx bounds the connection attempt only.
	Connect(ctx context.Context, cfg SessionConfig) (Session, error)
}
