package audio

import "fmt"

// Target render format. Every encoded asset conforms to exactly this
// format regardless of the source file.
const (
	TargetSampleRate = 48000
	TargetChannels   = 2
	TargetBitDepth   = 24
)

// PCMBuffer holds decoded audio as per-channel float samples in [-1, 1].
// All channels have identical length.
type PCMBuffer struct {
	SampleRate int
	Channels   [][]float64
}

// NewPCMBuffer validates channel lengths and wraps them in a buffer.
func NewPCMBuffer(sampleRate int, channels [][]float64) (*PCMBuffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("buffer must have at least one channel")
	}
	length := len(channels[0])
	for i, ch := range channels[1:] {
		if len(ch) != length {
			return nil, fmt.Errorf("channel %d has %d samples, expected %d", i+1, len(ch), length)
		}
	}
	return &PCMBuffer{SampleRate: sampleRate, Channels: channels}, nil
}

// NumChannels returns the channel count of the buffer.
func (b *PCMBuffer) NumChannels() int {
	return len(b.Channels)
}

// Length returns the per-channel sample count.
func (b *PCMBuffer) Length() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the buffer duration in seconds.
func (b *PCMBuffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Length()) / float64(b.SampleRate)
}
