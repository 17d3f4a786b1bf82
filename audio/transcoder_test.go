package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeFixture renders a WAV fixture the transcoder can re-ingest
func encodeFixture(t *testing.T, sampleRate int, seconds float64) []byte {
	t.Helper()
	data, err := EncodeWAV24(stereoBuffer(t, sampleRate, seconds))
	require.NoError(t, err)
	return data
}

func TestEncodeProducesCanonicalFormat(t *testing.T) {
	source := encodeFixture(t, 44100, 2)

	asset, err := NewTranscoder().Encode(source, nil, "My Track", AssetMaster, nil)
	require.NoError(t, err)

	assert.Equal(t, "my_track.wav", asset.Filename)
	assert.Equal(t, "audio/wav", asset.MIMEType)
	assert.Equal(t, AssetMaster, asset.Kind)

	info, err := GetWAVInfo(asset.Data)
	require.NoError(t, err)
	assert.Equal(t, TargetSampleRate, info.SampleRate)
	assert.Equal(t, TargetChannels, info.Channels)
	assert.Equal(t, TargetBitDepth, info.BitsPerSample)
	assert.InDelta(t, 2.0, info.Duration, 0.01)
}

func TestEncodeClipWindow(t *testing.T) {
	source := encodeFixture(t, 48000, 3)

	asset, err := NewTranscoder().Encode(source, &Window{StartSeconds: 1, DurationSeconds: 1.5}, "teaser", AssetClip, nil)
	require.NoError(t, err)

	assert.Equal(t, "teaser-trim.wav", asset.Filename)
	assert.Equal(t, AssetClip, asset.Kind)

	info, err := GetWAVInfo(asset.Data)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, info.Duration, 0.01)
}

func TestEncodeProgressContract(t *testing.T) {
	source := encodeFixture(t, 44100, 1)

	var calls []float64
	_, err := NewTranscoder().Encode(source, nil, "x", AssetMaster, func(percent float64) {
		calls = append(calls, percent)
	})
	require.NoError(t, err)
	require.NotEmpty(t, calls)

	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i], calls[i-1], "progress must never decrease")
	}
	assert.Equal(t, float64(100), calls[len(calls)-1], "successful encode ends at exactly 100")
	for _, p := range calls {
		assert.GreaterOrEqual(t, p, float64(0))
		assert.LessOrEqual(t, p, float64(100))
	}
}

func TestEncodeGarbageFailsWithDecodeError(t *testing.T) {
	_, err := NewTranscoder().Encode([]byte("definitely not audio"), nil, "x", AssetMaster, nil)
	require.Error(t, err)

	var decErr *DecodeError
	assert.ErrorAs(t, err, &decErr)
}

func TestProgressReporterMonotonic(t *testing.T) {
	var seen []float64
	p := &progressReporter{fn: func(percent float64) { seen = append(seen, percent) }}

	p.report(10)
	p.report(5) // late report must not go backwards
	p.report(50)

	assert.Equal(t, []float64{10, 10, 50}, seen)
}

func TestSanitizeBaseName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "track", "track"},
		{"uppercase", "MyTrack", "mytrack"},
		{"spaces and punctuation", "My Song (final mix)!", "my_song__final_mix__"},
		{"unicode", "café über", "caf___ber"},
		{"digits survive", "take 2", "take_2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeBaseName(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, SanitizeBaseName(got), "sanitizing must be idempotent")
		})
	}
}

func TestProbeDurationWAV(t *testing.T) {
	source := encodeFixture(t, 44100, 2.5)

	duration, err := NewTranscoder().ProbeDuration(source)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, duration, 0.001)
}
