package audio

import (
	"fmt"
	"log/slog"
	"sync"
)

// Converter normalises float sample chunks to a mono target rate. It logs a
// warning on the first format mismatch so misconfigured devices are visible
// without flooding the log.
// Create one per stream; not designed for shared use across goroutines.
type Converter struct {
	Target         Format
	warnedMismatch sync.Once
}

// Convert downmixes interleaved samples in the source format to mono and
// resamples them to the target rate. If the source already matches the
// target, samples is returned unchanged (zero allocation).
func (c *Converter) Convert(samples []float32, from Format) []float32 {
	if from.SampleRate == c.Target.SampleRate && from.Channels == c.Target.Channels {
		return samples
	}

	c.warnedMismatch.Do(func() {
		slog.Warn("audio format mismatch: converting",
			"from", from.String(),
			"to", c.Target.String(),
		)
	})

	// Downmix first so the resampler works on a single channel.
	out := samples
	if from.Channels > 1 {
		out = DownmixToMono(out, from.Channels)
	}
	return ResampleMono(out, from.SampleRate, c.Target.SampleRate)
}

// DownmixToMono averages interleaved frames of the given channel count into a
// single channel. Trailing partial frames are dropped.
func DownmixToMono(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			sum += samples[i*channels+ch]
		}
		out[i] = clampSample(sum / float32(channels))
	}
	return out
}

// ResampleMono resamples mono float samples from srcRate to dstRate using
// linear interpolation. If srcRate == dstRate, the input is returned
// unchanged.
func ResampleMono(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate <= 0 || dstRate <= 0 {
		return samples
	}
	if srcRate == dstRate || len(samples) < 2 {
		return samples
	}
	dstSamples := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]float32, dstSamples)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}
		out[i] = s0*(1-frac) + s1*frac
	}
	return out
}

func clampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

// formatString returns a human-readable string for a sample rate and channel count,
// e.g. "48000Hz stereo".
func formatString(rate, channels int) string {
	ch := "mono"
	if channels == 2 {
		ch = "stereo"
	} else if channels > 2 {
		ch = fmt.Sprintf("%dch", channels)
	}
	return fmt.Sprintf("%dHz %s", rate, ch)
}
