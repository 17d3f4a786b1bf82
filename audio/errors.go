package audio

// DecodeError indicates the input bytes are not a decodable audio stream
// (corrupt file or unsupported codec). The operation is not retried; the
// caller should ask the user for a different file.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode failed: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// RenderError indicates decoding succeeded but resampling or channel
// mapping could not produce a usable buffer (zero-length region,
// unsupported channel layout).
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return "render failed: " + e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// EncodeError indicates WAV serialization failed. This should be rare and
// usually points at a logic defect such as a negative sample count.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return "encode failed: " + e.Err.Error()
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
