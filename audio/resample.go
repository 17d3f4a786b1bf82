package audio

import (
	"fmt"
	"math"
)

// Window selects a start-offset + duration sub-region of a source buffer.
type Window struct {
	StartSeconds    float64 `json:"startSeconds"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// Render converts a decoded buffer to the target format: 48 kHz stereo.
// An optional window restricts the rendered region; the window is
// addressed in source samples (floor of seconds * source rate) and
// silently truncated if it runs past end-of-source. Mono sources are
// duplicated into both output channels without any panning. Sources with
// more than two channels are rejected.
func Render(src *PCMBuffer, window *Window) (*PCMBuffer, error) {
	if src == nil || src.Length() == 0 {
		return nil, &RenderError{Err: fmt.Errorf("source buffer is empty")}
	}
	if src.NumChannels() > 2 {
		return nil, &RenderError{Err: fmt.Errorf("unsupported channel layout: %d channels", src.NumChannels())}
	}

	start := 0
	length := src.Length()
	if window != nil {
		start = int(math.Floor(window.StartSeconds * float64(src.SampleRate)))
		length = int(math.Floor(window.DurationSeconds * float64(src.SampleRate)))
		if start < 0 {
			start = 0
		}
		if start+length > src.Length() {
			length = src.Length() - start
		}
		if start >= src.Length() || length <= 0 {
			return nil, &RenderError{Err: fmt.Errorf("window [%gs +%gs] selects no samples from a %gs source",
				window.StartSeconds, window.DurationSeconds, src.Duration())}
		}
	}

	left := resampleLinear(src.Channels[0][start:start+length], src.SampleRate, TargetSampleRate)
	if len(left) == 0 {
		return nil, &RenderError{Err: fmt.Errorf("resampled region is empty")}
	}

	var right []float64
	if src.NumChannels() == 2 {
		right = resampleLinear(src.Channels[1][start:start+length], src.SampleRate, TargetSampleRate)
	} else {
		// Exact duplication of the single channel.
		right = make([]float64, len(left))
		copy(right, left)
	}

	return NewPCMBuffer(TargetSampleRate, [][]float64{left, right})
}

// resampleLinear converts a channel from srcRate to dstRate by linear
// interpolation. The output length preserves the source duration:
// round(len/srcRate * dstRate).
func resampleLinear(in []float64, srcRate, dstRate int) []float64 {
	if len(in) == 0 {
		return nil
	}
	if srcRate == dstRate {
		out := make([]float64, len(in))
		copy(out, in)
		return out
	}

	outLen := int(math.Round(float64(len(in)) / float64(srcRate) * float64(dstRate)))
	if outLen <= 0 {
		return nil
	}

	out := make([]float64, outLen)
	step := float64(srcRate) / float64(dstRate)
	for i := range out {
		pos := float64(i) * step
		i0 := int(pos)
		if i0 >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(i0)
		out[i] = in[i0]*(1-frac) + in[i0+1]*frac
	}
	return out
}
