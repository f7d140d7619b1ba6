package coach

import "errors"

// State is the lifecycle state of an [Engine].
type State int

const (
	// StateIdle is the state after construction; no session has run yet.
	StateIdle State = iota

	// StateConnecting covers the microphone permission prompt and the live
	// connection handshake.
	StateConnecting

	// StateListening means the session is open: capture is streaming up and
	// model audio is being scheduled for playback.
	StateListening

	// StateError is terminal for the session that failed. Start may be
	// called again.
	StateError

	// StateClosed is terminal for the session that ended. Start may be
	// called again unless the engine itself was closed.
	StateClosed
)

// String returns a lower-case state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Active reports whether a session occupies the engine in this state.
func (s State) Active() bool {
	return s == StateConnecting || s == StateListening
}

// Human-readable status strings published alongside state changes.
const (
	StatusReady      = "Ready to practice"
	StatusConnecting = "Connecting to mentor..."
	StatusListening  = "Listening... say hello to begin"
	StatusConnError  = "Connection error, try again"
	StatusPermission = "Microphone access denied"
	StatusEnded      = "Session ended"
)

var (
	// ErrSessionActive is returned by Start while a session is connecting or
	// listening.
	ErrSessionActive = errors.New("coach: session already active")

	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("coach: engine closed")

	// ErrPermission classifies failures to acquire the microphone.
	ErrPermission = errors.New("coach: microphone unavailable")

	// ErrConnection classifies failures to open or keep the live session.
	ErrConnection = errors.New("coach: connection failed")

	// ErrStopped is returned by Start when Stop or Close ended the session
	// before it finished connecting.
	ErrStopped = errors.New("coach: session stopped while connecting")
)
