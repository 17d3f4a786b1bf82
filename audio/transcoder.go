package audio

import (
	"regexp"
	"strings"
)

// AssetKind distinguishes full-length masters from 60-second clips.
type AssetKind string

const (
	AssetMaster AssetKind = "master"
	AssetClip   AssetKind = "clip"
)

// Asset is an encoded WAV ready for upload. The pipeline keeps no copy
// once ownership passes to the upload collaborator.
type Asset struct {
	Data     []byte    `json:"-"`
	Filename string    `json:"filename"`
	MIMEType string    `json:"mimeType"`
	Kind     AssetKind `json:"kind"`
}

// ProgressFunc receives percentage values in [0, 100]. For a single
// encode the reported values are strictly non-decreasing and the final
// call on success is exactly 100.
type ProgressFunc func(percent float64)

// progressReporter enforces the monotonicity contract around a caller
// supplied callback.
type progressReporter struct {
	fn   ProgressFunc
	last float64
}

func (p *progressReporter) report(percent float64) {
	if percent < p.last {
		percent = p.last
	}
	p.last = percent
	if p.fn != nil {
		p.fn(percent)
	}
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// SanitizeBaseName strips a target filename down to lowercase
// alphanumerics, replacing everything else with underscores. The
// transform is idempotent.
func SanitizeBaseName(name string) string {
	return strings.ToLower(nonAlphanumeric.ReplaceAllString(name, "_"))
}

// Transcoder converts arbitrary uploaded audio into canonical
// 24-bit/48 kHz stereo WAV assets, optionally restricted to a window of
// the source.
type Transcoder struct{}

// NewTranscoder creates a transcoder with the fixed target format.
func NewTranscoder() *Transcoder {
	return &Transcoder{}
}

// ProbeDuration reports the source duration in seconds.
func (t *Transcoder) ProbeDuration(data []byte) (float64, error) {
	return ProbeDuration(data)
}

// Encode runs the full decode -> render -> serialize pipeline. A nil
// window encodes the whole source. The output filename is the sanitized
// base name plus ".wav", or "-trim.wav" for clip assets.
func (t *Transcoder) Encode(data []byte, window *Window, baseName string, kind AssetKind, onProgress ProgressFunc) (*Asset, error) {
	progress := &progressReporter{fn: onProgress}
	progress.report(1)

	src, err := Decode(data)
	if err != nil {
		return nil, err
	}
	progress.report(35)

	rendered, err := Render(src, window)
	if err != nil {
		return nil, err
	}
	progress.report(55)

	payload, err := EncodeWAV24(rendered)
	if err != nil {
		return nil, err
	}
	progress.report(90)

	suffix := ".wav"
	if kind == AssetClip {
		suffix = "-trim.wav"
	}
	asset := &Asset{
		Data:     payload,
		Filename: SanitizeBaseName(baseName) + suffix,
		MIMEType: "audio/wav",
		Kind:     kind,
	}

	progress.report(100)
	return asset, nil
}
