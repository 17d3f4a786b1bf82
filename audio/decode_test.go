package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniffFormat(t *testing.T) {
	wav := encodeFixture(t, 48000, 0.1)

	tests := []struct {
		name string
		data []byte
		want sourceFormat
	}{
		{"wav riff magic", wav, formatWAV},
		{"flac magic", []byte("fLaC\x00\x00\x00\x22"), formatFLAC},
		{"id3 header", []byte("ID3\x04\x00\x00\x00\x00\x00\x00"), formatMP3},
		{"mpeg frame sync", []byte{0xFF, 0xFB, 0x90, 0x00}, formatMP3},
		{"text", []byte("hello world, this is not audio"), formatUnknown},
		{"empty", nil, formatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sniffFormat(tt.data))
		})
	}
}

func TestDecodeUnrecognizedFormat(t *testing.T) {
	var decErr *DecodeError

	_, err := Decode([]byte("plain text payload"))
	require.Error(t, err)
	assert.ErrorAs(t, err, &decErr)

	_, err = Decode(nil)
	require.Error(t, err)
	assert.ErrorAs(t, err, &decErr)
}

func TestDecodeCorruptFLAC(t *testing.T) {
	// Valid magic but hollow stream
	_, err := Decode([]byte("fLaC but nothing behind the marker"))
	require.Error(t, err)

	var decErr *DecodeError
	assert.ErrorAs(t, err, &decErr)
}

func TestDecodeWAVNativeFormatPreserved(t *testing.T) {
	source := encodeFixture(t, 44100, 0.5)

	buf, err := Decode(source)
	require.NoError(t, err)
	assert.Equal(t, 44100, buf.SampleRate, "decode must keep the native rate")
	assert.Equal(t, 2, buf.NumChannels())
}

func TestProbeDurationErrors(t *testing.T) {
	var decErr *DecodeError

	_, err := ProbeDuration(nil)
	require.Error(t, err)
	assert.ErrorAs(t, err, &decErr)

	_, err = ProbeDuration([]byte("garbage"))
	require.Error(t, err)
	assert.ErrorAs(t, err, &decErr)
}
