package audio_test

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/MrWong99/gardencoach/pkg/audio"
)

// bytesToSamples converts a little-endian byte slice to int16 samples.
func bytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

func TestEncodePCM16_Truncates(t *testing.T) {
	t.Parallel()
	got := bytesToSamples(audio.EncodePCM16([]float32{0.5, -0.5, 0, 0.00002, -0.00002}))
	want := []int16{16384, -16384, 0, 0, 0}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestEncodePCM16_ClampsFullScale(t *testing.T) {
	t.Parallel()
	got := bytesToSamples(audio.EncodePCM16([]float32{1, -1, 1.5, -1.5}))
	want := []int16{32767, -32768, 32767, -32768}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPCM16_RoundTrip(t *testing.T) {
	t.Parallel()
	in := []float32{0.5, -0.5, 0.0, 0.123456, -0.987654, 0.999}
	out, err := audio.DecodePCM16(audio.EncodePCM16(in))
	if err != nil {
		t.Fatalf("DecodePCM16: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(in))
	}
	const tol = 1.0 / 32768
	for i := range in {
		if d := math.Abs(float64(out[i] - in[i])); d > tol {
			t.Errorf("sample %d: got %v, want %v (diff %v > %v)", i, out[i], in[i], d, tol)
		}
	}
}

func TestDecodePCM16_OddLength(t *testing.T) {
	t.Parallel()
	_, err := audio.DecodePCM16([]byte{1, 2, 3})
	if !errors.Is(err, audio.ErrOddPCM) {
		t.Fatalf("expected ErrOddPCM, got %v", err)
	}
}

func TestBase64PCM16_RoundTrip(t *testing.T) {
	t.Parallel()
	enc := audio.EncodeBase64PCM16([]float32{0.25, -0.25})
	out, err := audio.DecodeBase64PCM16(enc)
	if err != nil {
		t.Fatalf("DecodeBase64PCM16: %v", err)
	}
	if out[0] != 0.25 || out[1] != -0.25 {
		t.Errorf("got %v, want [0.25 -0.25]", out)
	}
	if _, err := audio.DecodeBase64PCM16("!!not base64!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestVolume(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		samples []float32
		want    float64
	}{
		{name: "silence", samples: make([]float32, 16), want: 0},
		{name: "empty", samples: nil, want: 0},
		{name: "constant half", samples: []float32{0.5, -0.5, 0.5, -0.5}, want: 50},
		{name: "full scale", samples: []float32{1, -1}, want: 100},
		{name: "clamped", samples: []float32{2, -2}, want: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := audio.Volume(tt.samples)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Volume = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFrameDuration(t *testing.T) {
	t.Parallel()
	f := audio.AudioFrame{Data: make([]byte, 24000), SampleRate: 24000, Channels: 1}
	if got := f.Samples(); got != 12000 {
		t.Errorf("Samples = %d, want 12000", got)
	}
	if got := f.Duration().Seconds(); got != 0.5 {
		t.Errorf("Duration = %v, want 0.5s", got)
	}
	if got := f.Format().MIMEType(); got != "audio/pcm;rate=24000" {
		t.Errorf("MIMEType = %q", got)
	}
}
