package audio

// Framer accumulates arbitrarily sized capture chunks into fixed-size frames.
// It is the framing buffer between a device callback and the frame encoder.
// Not safe for concurrent use.
type Framer struct {
	size int
	buf  []float32
}

// NewFramer returns a Framer emitting frames of size samples. A non-positive
// size selects [DefaultFrameSize].
func NewFramer(size int) *Framer {
	if size <= 0 {
		size = DefaultFrameSize
	}
	return &Framer{size: size, buf: make([]float32, 0, size*2)}
}

// Size returns the number of samples per emitted frame.
func (f *Framer) Size() int { return f.size }

// Push appends chunk and returns every complete frame now available, in
// order. Each returned frame is a fresh slice owned by the caller.
func (f *Framer) Push(chunk []float32) [][]float32 {
	f.buf = append(f.buf, chunk...)
	var frames [][]float32
	for len(f.buf) >= f.size {
		frame := make([]float32, f.size)
		copy(frame, f.buf[:f.size])
		frames = append(frames, frame)
		f.buf = f.buf[f.size:]
	}
	// Compact so the backing array does not grow without bound.
	if cap(f.buf) > f.size*4 {
		f.buf = append(make([]float32, 0, f.size*2), f.buf...)
	}
	return frames
}

// Pending returns the number of buffered samples not yet emitted.
func (f *Framer) Pending() int { return len(f.buf) }

// Reset discards any partially accumulated frame.
func (f *Framer) Reset() { f.buf = f.buf[:0] }
