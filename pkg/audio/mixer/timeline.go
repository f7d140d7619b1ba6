// Package mixer renders buffers scheduled at absolute times into a single
// PCM stream. A [Timeline] is the software clock behind a host speaker: the
// device pulls little-endian int16 samples through [Timeline.Read] and the
// clock advances by exactly the number of samples rendered.
package mixer

import (
	"container/heap"
	"errors"
	"math"
	"sync"

	"github.com/MrWong99/gardencoach/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Output   = (*Timeline)(nil)
	_ audio.Playback = (*voice)(nil)
)

// ErrClosed is returned by [Timeline.Schedule] after [Timeline.Close].
var ErrClosed = errors.New("mixer: timeline closed")

// defaultQueueCap is the initial capacity hint for the pending queue.
const defaultQueueCap = 16

// Timeline mixes scheduled mono buffers onto a sample clock.
//
// All exported methods are safe for concurrent use.
type Timeline struct {
	rate int

	mu      sync.Mutex
	clock   int64 // samples rendered so far
	pending voiceHeap
	active  []*voice
	seq     uint64
	scratch []float32
	closed  bool
}

// New creates a Timeline rendering at sampleRate Hz.
func New(sampleRate int) *Timeline {
	if sampleRate <= 0 {
		sampleRate = audio.OutputSampleRate
	}
	t := &Timeline{
		rate:    sampleRate,
		pending: make(voiceHeap, 0, defaultQueueCap),
	}
	heap.Init(&t.pending)
	return t
}

// SampleRate returns the render rate in Hz.
func (t *Timeline) SampleRate() int { return t.rate }

// Now returns the render clock in seconds.
func (t *Timeline) Now() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return float64(t.clock) / float64(t.rate)
}

// Schedule queues samples to start at clock time at. Buffers at a different
// rate are resampled to the render rate first. A start time in the past is
// moved to the current clock.
func (t *Timeline) Schedule(samples []float32, sampleRate int, at float64) (audio.Playback, error) {
	if sampleRate != t.rate {
		samples = audio.ResampleMono(samples, sampleRate, t.rate)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}

	start := int64(math.Round(at * float64(t.rate)))
	if start < t.clock {
		start = t.clock
	}
	t.seq++
	v := &voice{
		tl:      t,
		start:   start,
		seq:     t.seq,
		samples: samples,
		done:    make(chan struct{}),
	}
	if len(samples) == 0 {
		v.finish()
		return v, nil
	}
	heap.Push(&t.pending, v)
	return v, nil
}

// Pending returns the number of buffers that are queued or playing.
func (t *Timeline) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, v := range t.pending {
		if !v.stopped {
			n++
		}
	}
	for _, v := range t.active {
		if !v.stopped {
			n++
		}
	}
	return n
}

// Read renders the next len(p)/2 samples as little-endian int16 PCM and
// advances the clock. Silence is rendered when nothing is scheduled. Read
// never returns io.EOF so a device player keeps pulling.
func (t *Timeline) Read(p []byte) (int, error) {
	n := len(p) / 2
	if n == 0 {
		return 0, nil
	}

	t.mu.Lock()
	if cap(t.scratch) < n {
		t.scratch = make([]float32, n)
	}
	mix := t.scratch[:n]
	clear(mix)

	end := t.clock + int64(n)
	for t.pending.Len() > 0 && t.pending[0].start < end {
		v := heap.Pop(&t.pending).(*voice)
		if v.stopped {
			continue
		}
		t.active = append(t.active, v)
	}

	var finished []*voice
	kept := t.active[:0]
	for _, v := range t.active {
		if v.stopped {
			continue
		}
		off := 0
		if v.start > t.clock {
			off = int(v.start - t.clock)
		}
		for i := off; i < n && v.pos < len(v.samples); i++ {
			mix[i] += v.samples[v.pos]
			v.pos++
		}
		if v.pos >= len(v.samples) {
			v.stopped = true
			finished = append(finished, v)
			continue
		}
		kept = append(kept, v)
	}
	clear(t.active[len(kept):])
	t.active = kept
	t.clock = end
	pcm := audio.EncodePCM16(mix)
	t.mu.Unlock()

	for _, v := range finished {
		v.finish()
	}
	return copy(p, pcm), nil
}

// Close stops every queued and playing buffer. Further Schedule calls fail
// with [ErrClosed]; Read keeps rendering silence.
func (t *Timeline) Close() error {
	t.mu.Lock()
	t.closed = true
	voices := make([]*voice, 0, len(t.pending)+len(t.active))
	voices = append(voices, t.pending...)
	voices = append(voices, t.active...)
	t.pending = t.pending[:0]
	t.active = nil
	for _, v := range voices {
		v.stopped = true
	}
	t.mu.Unlock()

	for _, v := range voices {
		v.finish()
	}
	return nil
}

// voice is one scheduled buffer. start, pos and stopped are guarded by the
// owning timeline's mutex.
type voice struct {
	tl      *Timeline
	start   int64
	seq     uint64
	samples []float32
	pos     int
	stopped bool

	done     chan struct{}
	doneOnce sync.Once
}

// Stop implements [audio.Playback]. Idempotent.
func (v *voice) Stop() {
	v.tl.mu.Lock()
	v.stopped = true
	v.tl.mu.Unlock()
	v.finish()
}

// Done implements [audio.Playback].
func (v *voice) Done() <-chan struct{} { return v.done }

func (v *voice) finish() {
	v.doneOnce.Do(func() { close(v.done) })
}
