package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// wavHeader is the fixed 44-byte RIFF/WAVE header written in front of the
// PCM payload.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // byte length of the data chunk
}

// wavFormat is the parsed content of a "fmt " sub-chunk.
type wavFormat struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// WAVInfo describes a WAV file without decoding its sample data.
type WAVInfo struct {
	SampleRate    int     `json:"sampleRate"`
	Channels      int     `json:"channels"`
	BitsPerSample int     `json:"bitsPerSample"`
	Duration      float64 `json:"durationSeconds"`
	DataSize      int     `json:"dataSizeBytes"`
	NumSamples    int     `json:"numSamples"`
}

// quantize24 converts a float sample to a signed 24-bit integer. The
// sample is clamped to [-1, 1] first; negative values scale by 0x800000
// and non-negative by 0x7FFFFF, rounded to nearest.
func quantize24(s float64) int32 {
	if s > 1.0 {
		s = 1.0
	}
	if s < -1.0 {
		s = -1.0
	}
	if s < 0 {
		return int32(math.Round(s * 0x800000))
	}
	return int32(math.Round(s * 0x7FFFFF))
}

// dequantize24 is the inverse mapping used when reading 24-bit files.
func dequantize24(v int32) float64 {
	if v < 0 {
		return float64(v) / 0x800000
	}
	return float64(v) / 0x7FFFFF
}

// EncodeWAV24 serializes a PCM buffer to a 24-bit WAV container. Samples
// are interleaved channel by channel (left, right, left, right, ...) as
// little-endian signed 24-bit integers, three raw bytes per sample.
func EncodeWAV24(buf *PCMBuffer) ([]byte, error) {
	if buf == nil || buf.NumChannels() == 0 || buf.Length() == 0 {
		return nil, &EncodeError{Err: fmt.Errorf("cannot serialize empty audio buffer")}
	}
	if buf.SampleRate <= 0 {
		return nil, &EncodeError{Err: fmt.Errorf("sample rate must be positive, got %d", buf.SampleRate)}
	}

	numChannels := uint16(buf.NumChannels())
	bitsPerSample := uint16(24)
	bytesPerSample := 3
	numFrames := buf.Length()
	dataSize := uint32(numFrames * int(numChannels) * bytesPerSample)

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   numChannels,
		SampleRate:    uint32(buf.SampleRate),
		ByteRate:      uint32(buf.SampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	out := bytes.NewBuffer(make([]byte, 0, 44+int(dataSize)))
	if err := binary.Write(out, binary.LittleEndian, header); err != nil {
		return nil, &EncodeError{Err: fmt.Errorf("failed to write WAV header: %w", err)}
	}

	for i := 0; i < numFrames; i++ {
		for ch := 0; ch < int(numChannels); ch++ {
			v := uint32(quantize24(buf.Channels[ch][i])) & 0xFFFFFF
			out.WriteByte(byte(v))
			out.WriteByte(byte(v >> 8))
			out.WriteByte(byte(v >> 16))
		}
	}

	return out.Bytes(), nil
}

// parseWAVChunks walks the RIFF chunk list and returns the fmt chunk plus
// the data chunk payload. Unknown chunks (LIST, fact, ...) are skipped.
func parseWAVChunks(data []byte) (*wavFormat, []byte, error) {
	if len(data) < 12 {
		return nil, nil, fmt.Errorf("WAV data too short: need at least 12 bytes, got %d", len(data))
	}
	if string(data[0:4]) != "RIFF" {
		return nil, nil, fmt.Errorf("invalid WAV file: missing RIFF header")
	}
	if string(data[8:12]) != "WAVE" {
		return nil, nil, fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	var format *wavFormat
	var pcm []byte

	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if size < 0 || body+size > len(data) {
			// Truncated trailing chunk; a damaged data chunk is still
			// usable up to the bytes that are present.
			if id == "data" && body < len(data) {
				size = len(data) - body
			} else {
				break
			}
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, nil, fmt.Errorf("invalid WAV file: fmt chunk too short (%d bytes)", size)
			}
			format = &wavFormat{
				AudioFormat:   binary.LittleEndian.Uint16(data[body : body+2]),
				NumChannels:   binary.LittleEndian.Uint16(data[body+2 : body+4]),
				SampleRate:    binary.LittleEndian.Uint32(data[body+4 : body+8]),
				ByteRate:      binary.LittleEndian.Uint32(data[body+8 : body+12]),
				BlockAlign:    binary.LittleEndian.Uint16(data[body+12 : body+14]),
				BitsPerSample: binary.LittleEndian.Uint16(data[body+14 : body+16]),
			}
		case "data":
			pcm = data[body : body+size]
		}

		// Chunks are padded to even byte boundaries.
		offset = body + size
		if size%2 == 1 {
			offset++
		}
	}

	if format == nil {
		return nil, nil, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}
	if pcm == nil {
		return nil, nil, fmt.Errorf("invalid WAV file: missing data chunk")
	}
	return format, pcm, nil
}

// DecodeWAV decodes a PCM WAV file into per-channel float samples.
// Supports 8, 16, 24 and 32-bit integer PCM at any rate/channel count.
func DecodeWAV(data []byte) (*PCMBuffer, error) {
	format, pcm, err := parseWAVChunks(data)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if format.AudioFormat != 1 {
		return nil, &DecodeError{Err: fmt.Errorf("unsupported WAV audio format %d (only PCM)", format.AudioFormat)}
	}
	nch := int(format.NumChannels)
	if nch == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("invalid WAV file: zero channels")}
	}

	bytesPerSample := int(format.BitsPerSample) / 8
	if bytesPerSample < 1 || bytesPerSample > 4 || int(format.BitsPerSample)%8 != 0 {
		return nil, &DecodeError{Err: fmt.Errorf("unsupported bit depth: %d", format.BitsPerSample)}
	}

	frameSize := bytesPerSample * nch
	numFrames := len(pcm) / frameSize
	if numFrames == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("no audio data found")}
	}

	channels := make([][]float64, nch)
	for ch := range channels {
		channels[ch] = make([]float64, numFrames)
	}

	for i := 0; i < numFrames; i++ {
		for ch := 0; ch < nch; ch++ {
			at := i*frameSize + ch*bytesPerSample
			switch bytesPerSample {
			case 1:
				// 8-bit WAV is unsigned.
				channels[ch][i] = (float64(pcm[at]) - 128) / 128
			case 2:
				v := int16(binary.LittleEndian.Uint16(pcm[at : at+2]))
				channels[ch][i] = float64(v) / 32768
			case 3:
				v := int32(pcm[at]) | int32(pcm[at+1])<<8 | int32(pcm[at+2])<<16
				if v&0x800000 != 0 {
					v |= ^int32(0xFFFFFF) // sign extend
				}
				channels[ch][i] = dequantize24(v)
			case 4:
				v := int32(binary.LittleEndian.Uint32(pcm[at : at+4]))
				channels[ch][i] = float64(v) / 2147483648
			}
		}
	}

	return NewPCMBuffer(int(format.SampleRate), channels)
}

// GetWAVInfo extracts format metadata from a WAV file without converting
// the sample data.
func GetWAVInfo(data []byte) (*WAVInfo, error) {
	format, pcm, err := parseWAVChunks(data)
	if err != nil {
		return nil, err
	}
	if format.SampleRate == 0 {
		return nil, fmt.Errorf("invalid sample rate: 0")
	}
	blockAlign := int(format.BlockAlign)
	if blockAlign == 0 {
		blockAlign = int(format.NumChannels) * int(format.BitsPerSample) / 8
	}
	if blockAlign == 0 {
		return nil, fmt.Errorf("invalid WAV file: zero block align")
	}

	numSamples := len(pcm) / blockAlign
	return &WAVInfo{
		SampleRate:    int(format.SampleRate),
		Channels:      int(format.NumChannels),
		BitsPerSample: int(format.BitsPerSample),
		Duration:      float64(numSamples) / float64(format.SampleRate),
		DataSize:      len(pcm),
		NumSamples:    numSamples,
	}, nil
}

// probeWAVDuration reads the duration of a WAV file from its header.
func probeWAVDuration(data []byte) (float64, error) {
	info, err := GetWAVInfo(data)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}
