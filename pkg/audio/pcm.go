package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// pcmScale is the factor between normalised float samples and int16 PCM.
const pcmScale = 32768

// ErrOddPCM is returned when a PCM16 payload has an odd number of bytes.
var ErrOddPCM = errors.New("audio: odd byte count in PCM16 data")

// EncodePCM16 converts float samples in [-1, 1] to little-endian int16 PCM by
// multiplying by 32768 and truncating toward zero. Values outside the int16
// range are clamped rather than wrapped.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int32(float64(s) * pcmScale)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

// DecodePCM16 converts little-endian int16 PCM to float samples by dividing
// by 32768. It returns [ErrOddPCM] when data is not sample aligned.
func DecodePCM16(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrOddPCM, len(data))
	}
	out := make([]float32, len(data)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(data[i*2:]))) / pcmScale
	}
	return out, nil
}

// EncodeBase64PCM16 encodes samples to PCM16 and returns the standard base64
// text used on the wire.
func EncodeBase64PCM16(samples []float32) string {
	return base64.StdEncoding.EncodeToString(EncodePCM16(samples))
}

// DecodeBase64PCM16 reverses [EncodeBase64PCM16].
func DecodeBase64PCM16(s string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("audio: decode base64: %w", err)
	}
	return DecodePCM16(raw)
}

// RMS returns the root-mean-square amplitude of samples. An empty slice has
// an RMS of zero.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Volume maps the RMS amplitude of samples onto the [0, 100] range used by
// level indicators.
func Volume(samples []float32) float64 {
	v := RMS(samples) * 100
	if v > 100 {
		return 100
	}
	return v
}

// Seconds returns the playback duration of n samples at rate.
func Seconds(n, rate int) float64 {
	if rate <= 0 {
		return 0
	}
	return float64(n) / float64(rate)
}
