package audio_test

import (
	"testing"

	"github.com/MrWong99/gardencoach/pkg/audio"
)

func TestFramer_AccumulatesAcrossChunks(t *testing.T) {
	t.Parallel()
	f := audio.NewFramer(4)

	if frames := f.Push([]float32{1, 2, 3}); len(frames) != 0 {
		t.Fatalf("expected no frames, got %d", len(frames))
	}
	frames := f.Push([]float32{4, 5, 6, 7, 8, 9})
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	want := [][]float32{{1, 2, 3, 4}, {5, 6, 7, 8}}
	for i := range want {
		for j := range want[i] {
			if frames[i][j] != want[i][j] {
				t.Errorf("frame %d sample %d: got %v, want %v", i, j, frames[i][j], want[i][j])
			}
		}
	}
	if f.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", f.Pending())
	}
}

func TestFramer_FramesAreIndependentCopies(t *testing.T) {
	t.Parallel()
	f := audio.NewFramer(2)
	first := f.Push([]float32{1, 2})[0]
	f.Push([]float32{3, 4})
	if first[0] != 1 || first[1] != 2 {
		t.Errorf("earlier frame was overwritten: %v", first)
	}
}

func TestFramer_DefaultSizeAndReset(t *testing.T) {
	t.Parallel()
	f := audio.NewFramer(0)
	if f.Size() != audio.DefaultFrameSize {
		t.Fatalf("Size = %d, want %d", f.Size(), audio.DefaultFrameSize)
	}
	f.Push(make([]float32, 100))
	f.Reset()
	if f.Pending() != 0 {
		t.Errorf("Pending after Reset = %d, want 0", f.Pending())
	}
}
