package coach

import (
	"errors"
	"slices"
	"sync"

	"github.com/MrWong99/gardencoach/pkg/audio"
)

// playbackQueue schedules inbound buffers back to back on an [audio.Output]
// and keeps the handles that have not finished yet.
//
// Each buffer starts at max(out.Now(), nextStart) and pushes nextStart to its
// own end, so buffers that arrive faster than real time play without gaps
// and buffers that arrive late leave a gap rather than overlapping.
type playbackQueue struct {
	out audio.Output

	mu        sync.Mutex
	handles   []audio.Playback
	nextStart float64
	closed    bool
}

// errQueueClosed is returned by schedule once the session released playback.
var errQueueClosed = errors.New("coach: playback queue closed")

func newPlaybackQueue(out audio.Output) *playbackQueue {
	return &playbackQueue{out: out}
}

// schedule queues samples and returns their start time on the output clock.
func (q *playbackQueue) schedule(samples []float32, sampleRate int) (float64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, errQueueClosed
	}

	start := max(q.out.Now(), q.nextStart)
	h, err := q.out.Schedule(samples, sampleRate, start)
	if err != nil {
		return 0, err
	}
	q.nextStart = start + audio.Seconds(len(samples), sampleRate)
	q.handles = append(q.handles, h)
	go q.reap(h)
	return start, nil
}

// reap removes h once it finishes or is stopped.
func (q *playbackQueue) reap(h audio.Playback) {
	<-h.Done()
	q.mu.Lock()
	defer q.mu.Unlock()
	if i := slices.Index(q.handles, h); i >= 0 {
		q.handles = slices.Delete(q.handles, i, i+1)
	}
}

// flush stops every pending handle, empties the queue and resets nextStart so
// the next buffer is placed relative to the output clock. It returns the
// number of handles stopped. Safe to call repeatedly.
func (q *playbackQueue) flush() int {
	q.mu.Lock()
	hs := q.handles
	q.handles = nil
	q.nextStart = 0
	q.mu.Unlock()

	for _, h := range hs {
		h.Stop()
	}
	return len(hs)
}

// close flushes the queue and rejects later schedule calls.
func (q *playbackQueue) close() int {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return q.flush()
}

func (q *playbackQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.handles)
}

func (q *playbackQueue) next() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.nextStart
}
