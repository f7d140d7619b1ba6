// Package mock provides in-memory implementations of the [audio.Microphone],
// [audio.MediaStream], [audio.Track] and [audio.Output] interfaces for use in
// unit tests.
//
// All mocks are safe for concurrent use. They record every method call so that
// tests can assert on call counts and arguments, and they expose exported fields
// that the test can set to control return values.
//
// Typical usage:
//
//	stream := mock.NewStream(1)
//	mic := &mock.Microphone{Stream: stream}
//	out := &mock.Output{}
//	stream.Feed(make([]float32, 4096))
//	out.SetNow(1.5)
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrWong99/gardencoach/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Microphone  = (*Microphone)(nil)
	_ audio.MediaStream = (*Stream)(nil)
	_ audio.Track       = (*Track)(nil)
	_ audio.Output      = (*Output)(nil)
	_ audio.Playback    = (*Playback)(nil)
)

// ─── Microphone ───────────────────────────────────────────────────────────────

// Microphone is a mock implementation of [audio.Microphone].
type Microphone struct {
	mu sync.Mutex

	// Stream is returned by every Open. When nil, each Open creates a fresh
	// one-track stream and appends it to Opened.
	Stream *Stream

	// Opened records the streams created by Open when Stream is nil.
	Opened []*Stream

	// OpenErr, if non-nil, is returned by Open (use audio.ErrPermissionDenied
	// to simulate a refused prompt).
	OpenErr error

	// Gate, if non-nil, blocks Open until it is closed or ctx is done. It
	// simulates a pending permission prompt.
	Gate chan struct{}

	// OpenCalls records the format of every Open call.
	OpenCalls []audio.Format
}

// Open implements [audio.Microphone].
func (m *Microphone) Open(ctx context.Context, format audio.Format) (audio.MediaStream, error) {
	m.mu.Lock()
	m.OpenCalls = append(m.OpenCalls, format)
	gate := m.Gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	if m.Stream != nil {
		return m.Stream, nil
	}
	s := NewStream(1)
	m.Opened = append(m.Opened, s)
	return s, nil
}

// LastStream returns the stream handed out by the most recent Open: Stream
// when set, otherwise the last entry of Opened.
func (m *Microphone) LastStream() *Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Stream != nil {
		return m.Stream
	}
	if len(m.Opened) == 0 {
		return nil
	}
	return m.Opened[len(m.Opened)-1]
}

// OpenCount returns the number of Open calls.
func (m *Microphone) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.OpenCalls)
}

// ─── Stream ───────────────────────────────────────────────────────────────────

// Stream is a mock [audio.MediaStream]. Feed pushes chunks; the samples
// channel closes once every track is stopped.
type Stream struct {
	samples   chan []float32
	tracks    []*Track
	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// NewStream returns a stream with the given number of live tracks and a
// generously buffered samples channel.
func NewStream(tracks int) *Stream {
	s := &Stream{samples: make(chan []float32, 256)}
	for i := range tracks {
		s.tracks = append(s.tracks, &Track{id: fmt.Sprintf("mock-track-%d", i), live: true, stream: s})
	}
	return s
}

// Feed delivers chunk to the stream consumer. It is dropped silently once
// the stream has ended.
func (s *Stream) Feed(chunk []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.samples <- chunk
}

// Samples implements [audio.MediaStream].
func (s *Stream) Samples() <-chan []float32 { return s.samples }

// Tracks implements [audio.MediaStream].
func (s *Stream) Tracks() []audio.Track {
	out := make([]audio.Track, len(s.tracks))
	for i, t := range s.tracks {
		out[i] = t
	}
	return out
}

// MockTracks returns the concrete tracks for assertions.
func (s *Stream) MockTracks() []*Track { return s.tracks }

// Ended reports whether every track has stopped.
func (s *Stream) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Stream) trackStopped() {
	for _, t := range s.tracks {
		if t.Live() {
			return
		}
	}
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.samples)
		s.mu.Unlock()
	})
}

// ─── Track ────────────────────────────────────────────────────────────────────

// Track is a mock [audio.Track] that counts Stop calls.
type Track struct {
	id     string
	stream *Stream

	mu   sync.Mutex
	live bool

	// StopCalls counts every Stop invocation, including ones on a dead track.
	StopCalls int

	// StopErr, if non-nil, is returned by Stop.
	StopErr error
}

// ID implements [audio.Track].
func (t *Track) ID() string { return t.id }

// Live implements [audio.Track].
func (t *Track) Live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

// Stop implements [audio.Track].
func (t *Track) Stop() error {
	t.mu.Lock()
	t.StopCalls++
	t.live = false
	err := t.StopErr
	t.mu.Unlock()
	if t.stream != nil {
		t.stream.trackStopped()
	}
	return err
}

// Stops returns the number of Stop calls.
func (t *Track) Stops() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.StopCalls
}

// ─── Output ───────────────────────────────────────────────────────────────────

// ScheduleCall records one Output.Schedule invocation.
type ScheduleCall struct {
	Samples    []float32
	SampleRate int
	At         float64
	Playback   *Playback
}

// Output is a mock [audio.Output] with a manually driven clock.
type Output struct {
	mu  sync.Mutex
	now float64

	// ScheduleErr, if non-nil, is returned by Schedule.
	ScheduleErr error

	// Calls records every successful Schedule call in order.
	Calls []ScheduleCall
}

// SetNow sets the clock reading returned by Now.
func (o *Output) SetNow(t float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.now = t
}

// Now implements [audio.Output].
func (o *Output) Now() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.now
}

// Schedule implements [audio.Output].
func (o *Output) Schedule(samples []float32, sampleRate int, at float64) (audio.Playback, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ScheduleErr != nil {
		return nil, o.ScheduleErr
	}
	pb := &Playback{done: make(chan struct{})}
	o.Calls = append(o.Calls, ScheduleCall{Samples: samples, SampleRate: sampleRate, At: at, Playback: pb})
	return pb, nil
}

// Scheduled returns a snapshot of the recorded Schedule calls.
func (o *Output) Scheduled() []ScheduleCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ScheduleCall, len(o.Calls))
	copy(out, o.Calls)
	return out
}

// ─── Playback ─────────────────────────────────────────────────────────────────

// Playback is a mock [audio.Playback]. Call Finish to simulate natural
// completion.
type Playback struct {
	mu       sync.Mutex
	stops    int
	done     chan struct{}
	doneOnce sync.Once
}

// Stop implements [audio.Playback].
func (p *Playback) Stop() {
	p.mu.Lock()
	p.stops++
	p.mu.Unlock()
	p.close()
}

// Done implements [audio.Playback].
func (p *Playback) Done() <-chan struct{} { return p.done }

// Finish simulates the buffer playing to the end.
func (p *Playback) Finish() { p.close() }

// Stops returns the number of Stop calls.
func (p *Playback) Stops() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

func (p *Playback) close() {
	p.doneOnce.Do(func() { close(p.done) })
}
