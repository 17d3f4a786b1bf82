package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dhowden/tag"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// sourceFormat is the sniffed container type of an uploaded file.
type sourceFormat int

const (
	formatUnknown sourceFormat = iota
	formatWAV
	formatFLAC
	formatMP3
)

// sniffFormat identifies the container of the uploaded bytes. WAV is
// matched on the RIFF magic directly; FLAC and MP3 come from the tag
// library, with a raw-magic fallback for untagged streams.
func sniffFormat(data []byte) sourceFormat {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		return formatWAV
	}
	if _, fileType, err := tag.Identify(bytes.NewReader(data)); err == nil {
		switch fileType {
		case tag.FLAC:
			return formatFLAC
		case tag.MP3:
			return formatMP3
		}
	}
	if len(data) >= 4 && string(data[0:4]) == "fLaC" {
		return formatFLAC
	}
	// MPEG audio frame sync, or an ID3 header the identifier choked on.
	if len(data) >= 3 && (string(data[0:3]) == "ID3" || (data[0] == 0xFF && data[1]&0xE0 == 0xE0)) {
		return formatMP3
	}
	return formatUnknown
}

// Decode turns an uploaded audio file into a PCM buffer at its native
// sample rate and channel count. Supported containers: WAV, FLAC, MP3.
func Decode(data []byte) (*PCMBuffer, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("empty input")}
	}
	switch sniffFormat(data) {
	case formatWAV:
		return DecodeWAV(data)
	case formatFLAC:
		return decodeFLAC(data)
	case formatMP3:
		return decodeMP3(data)
	default:
		return nil, &DecodeError{Err: fmt.Errorf("unrecognized audio format")}
	}
}

// ProbeDuration reads the total duration of an audio file in seconds,
// decoding only as much as the container requires.
func ProbeDuration(data []byte) (float64, error) {
	if len(data) == 0 {
		return 0, &DecodeError{Err: fmt.Errorf("empty input")}
	}
	switch sniffFormat(data) {
	case formatWAV:
		d, err := probeWAVDuration(data)
		if err != nil {
			return 0, &DecodeError{Err: err}
		}
		return d, nil
	case formatFLAC:
		stream, err := flac.Parse(bytes.NewReader(data))
		if err != nil {
			return 0, &DecodeError{Err: fmt.Errorf("failed to parse FLAC stream: %w", err)}
		}
		if stream.Info.NSamples > 0 {
			return float64(stream.Info.NSamples) / float64(stream.Info.SampleRate), nil
		}
		// Sample count missing from StreamInfo; fall back to a full decode.
		buf, err := decodeFLAC(data)
		if err != nil {
			return 0, err
		}
		return buf.Duration(), nil
	case formatMP3:
		dec, err := mp3.NewDecoder(bytes.NewReader(data))
		if err != nil {
			return 0, &DecodeError{Err: fmt.Errorf("failed to parse MP3 stream: %w", err)}
		}
		if length := dec.Length(); length > 0 {
			// Decoded output is stereo 16-bit: 4 bytes per frame.
			return float64(length) / 4 / float64(dec.SampleRate()), nil
		}
		buf, err := decodeMP3(data)
		if err != nil {
			return 0, err
		}
		return buf.Duration(), nil
	default:
		return 0, &DecodeError{Err: fmt.Errorf("unrecognized audio format")}
	}
}

func decodeFLAC(data []byte) (*PCMBuffer, error) {
	stream, err := flac.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("failed to parse FLAC stream: %w", err)}
	}

	nch := int(stream.Info.NChannels)
	if nch == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("FLAC stream reports zero channels")}
	}
	scale := float64(int64(1) << (stream.Info.BitsPerSample - 1))

	channels := make([][]float64, nch)
	if stream.Info.NSamples > 0 {
		for ch := range channels {
			channels[ch] = make([]float64, 0, stream.Info.NSamples)
		}
	}

	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DecodeError{Err: fmt.Errorf("failed to decode FLAC frame: %w", err)}
		}
		for ch, sub := range frame.Subframes {
			if ch >= nch {
				break
			}
			for _, s := range sub.Samples {
				channels[ch] = append(channels[ch], float64(s)/scale)
			}
		}
	}

	if len(channels[0]) == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("FLAC stream contains no audio frames")}
	}
	return NewPCMBuffer(int(stream.Info.SampleRate), channels)
}

func decodeMP3(data []byte) (*PCMBuffer, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("failed to parse MP3 stream: %w", err)}
	}

	// go-mp3 always emits interleaved 16-bit stereo.
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("failed to decode MP3 stream: %w", err)}
	}

	numFrames := len(raw) / 4
	if numFrames == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("MP3 stream contains no audio frames")}
	}

	left := make([]float64, numFrames)
	right := make([]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		l := int16(binary.LittleEndian.Uint16(raw[i*4 : i*4+2]))
		r := int16(binary.LittleEndian.Uint16(raw[i*4+2 : i*4+4]))
		left[i] = float64(l) / 32768
		right[i] = float64(r) / 32768
	}

	return NewPCMBuffer(dec.SampleRate(), [][]float64{left, right})
}
