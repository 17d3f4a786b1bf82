package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tone builds a sine channel for test fixtures
func tone(sampleRate int, seconds, freq float64) []float64 {
	n := int(seconds * float64(sampleRate))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return samples
}

// stereoBuffer builds a two-channel fixture with distinct tones per channel
func stereoBuffer(t *testing.T, sampleRate int, seconds float64) *PCMBuffer {
	t.Helper()
	buf, err := NewPCMBuffer(sampleRate, [][]float64{
		tone(sampleRate, seconds, 440),
		tone(sampleRate, seconds, 880),
	})
	require.NoError(t, err)
	return buf
}

// buildWAV16 hand-assembles a 16-bit PCM WAV, optionally with a LIST
// chunk between fmt and data
func buildWAV16(sampleRate int, channels [][]int16, withListChunk bool) []byte {
	nch := len(channels)
	frames := len(channels[0])
	dataSize := frames * nch * 2

	var body bytes.Buffer
	body.WriteString("WAVE")

	body.WriteString("fmt ")
	binary.Write(&body, binary.LittleEndian, uint32(16))
	binary.Write(&body, binary.LittleEndian, uint16(1))
	binary.Write(&body, binary.LittleEndian, uint16(nch))
	binary.Write(&body, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&body, binary.LittleEndian, uint32(sampleRate*nch*2))
	binary.Write(&body, binary.LittleEndian, uint16(nch*2))
	binary.Write(&body, binary.LittleEndian, uint16(16))

	if withListChunk {
		body.WriteString("LIST")
		binary.Write(&body, binary.LittleEndian, uint32(5))
		body.WriteString("INFOx")
		body.WriteByte(0) // even-byte padding
	}

	body.WriteString("data")
	binary.Write(&body, binary.LittleEndian, uint32(dataSize))
	for i := 0; i < frames; i++ {
		for ch := 0; ch < nch; ch++ {
			binary.Write(&body, binary.LittleEndian, channels[ch][i])
		}
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func TestEncodeWAV24Header(t *testing.T) {
	buf := stereoBuffer(t, 48000, 0.5)
	data, err := EncodeWAV24(buf)
	require.NoError(t, err)

	frames := buf.Length()
	dataSize := frames * 2 * 3
	require.Equal(t, 44+dataSize, len(data))

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "fmt ", string(data[12:16]))
	assert.Equal(t, uint32(36+dataSize), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(data[16:20]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[20:22]), "audio format must be PCM")
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(data[22:24]))
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(data[24:28]))
	assert.Equal(t, uint32(48000*2*3), binary.LittleEndian.Uint32(data[28:32]), "byte rate")
	assert.Equal(t, uint16(6), binary.LittleEndian.Uint16(data[32:34]), "block align")
	assert.Equal(t, uint16(24), binary.LittleEndian.Uint16(data[34:36]))
	assert.Equal(t, "data", string(data[36:40]))
	assert.Equal(t, uint32(dataSize), binary.LittleEndian.Uint32(data[40:44]))
}

func TestEncodeWAV24RejectsEmpty(t *testing.T) {
	var encErr *EncodeError

	_, err := EncodeWAV24(nil)
	require.Error(t, err)
	assert.ErrorAs(t, err, &encErr)

	empty := &PCMBuffer{SampleRate: 48000, Channels: [][]float64{{}}}
	_, err = EncodeWAV24(empty)
	require.Error(t, err)
	assert.ErrorAs(t, err, &encErr)
}

func TestQuantize24(t *testing.T) {
	tests := []struct {
		name   string
		sample float64
		want   int32
	}{
		{"zero", 0, 0},
		{"full scale positive", 1.0, 0x7FFFFF},
		{"full scale negative", -1.0, -0x800000},
		{"clamped above", 2.5, 0x7FFFFF},
		{"clamped below", -3.0, -0x800000},
		{"half scale", 0.5, int32(math.Round(0.5 * 0x7FFFFF))},
		{"negative half scale", -0.5, int32(math.Round(-0.5 * 0x800000))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quantize24(tt.sample))
		})
	}
}

func TestWAVRoundTrip(t *testing.T) {
	src := stereoBuffer(t, 48000, 0.25)

	data, err := EncodeWAV24(src)
	require.NoError(t, err)

	decoded, err := DecodeWAV(data)
	require.NoError(t, err)

	require.Equal(t, src.SampleRate, decoded.SampleRate)
	require.Equal(t, src.NumChannels(), decoded.NumChannels())
	require.Equal(t, src.Length(), decoded.Length())

	// 24-bit quantization error stays under one LSB
	for ch := range src.Channels {
		for i := range src.Channels[ch] {
			assert.InDelta(t, src.Channels[ch][i], decoded.Channels[ch][i], 1.0/0x400000)
		}
	}
}

func TestDecodeWAV16Bit(t *testing.T) {
	left := []int16{0, 16384, -16384, 32767, -32768}
	right := []int16{100, -100, 0, 0, 0}
	data := buildWAV16(44100, [][]int16{left, right}, false)

	buf, err := DecodeWAV(data)
	require.NoError(t, err)
	assert.Equal(t, 44100, buf.SampleRate)
	require.Equal(t, 2, buf.NumChannels())
	require.Equal(t, 5, buf.Length())

	assert.InDelta(t, 0.5, buf.Channels[0][1], 1e-4)
	assert.InDelta(t, -0.5, buf.Channels[0][2], 1e-4)
	assert.InDelta(t, 1.0, buf.Channels[0][3], 1e-4)
	assert.InDelta(t, -1.0, buf.Channels[0][4], 1e-9)
}

func TestDecodeWAVSkipsUnknownChunks(t *testing.T) {
	left := []int16{1000, 2000, 3000}
	data := buildWAV16(22050, [][]int16{left}, true)

	buf, err := DecodeWAV(data)
	require.NoError(t, err)
	assert.Equal(t, 22050, buf.SampleRate)
	assert.Equal(t, 3, buf.Length())
}

func TestDecodeWAVErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"too short", []byte("RIFF")},
		{"wrong magic", []byte("JUNKxxxxJUNKxxxxJUNKxxxx")},
		{"missing data chunk", append([]byte("RIFF\x10\x00\x00\x00WAVE"), []byte("fmt \x10\x00\x00\x00\x01\x00\x01\x00\x44\xac\x00\x00\x88\x58\x01\x00\x02\x00\x10\x00")...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeWAV(tt.data)
			require.Error(t, err)

			var decErr *DecodeError
			assert.ErrorAs(t, err, &decErr)
		})
	}
}

func TestGetWAVInfo(t *testing.T) {
	buf := stereoBuffer(t, 48000, 1.5)
	data, err := EncodeWAV24(buf)
	require.NoError(t, err)

	info, err := GetWAVInfo(data)
	require.NoError(t, err)
	assert.Equal(t, 48000, info.SampleRate)
	assert.Equal(t, 2, info.Channels)
	assert.Equal(t, 24, info.BitsPerSample)
	assert.Equal(t, buf.Length(), info.NumSamples)
	assert.InDelta(t, 1.5, info.Duration, 1e-9)
}
