// Package trimmer implements the interactive clip-trim workflow: pick a
// start offset inside a longer source, preview exactly the 60-second
// window that will be extracted, then hand the confirmed window to the
// transcoder.
package trimmer

import (
	"errors"
	"fmt"
	"sync"

	"coda/audio"
)

// State is the lifecycle position of a trim session.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingDuration State = "awaiting_duration"
	StateOpen             State = "open"
	StateEncoding         State = "encoding"
	StateClosed           State = "closed"
)

var (
	// ErrEncodeInFlight rejects interactions while an encode is running
	// for the session's slot. Only one encode per slot at a time.
	ErrEncodeInFlight = errors.New("an encode is already in flight for this slot")

	// ErrNotOpen rejects trim interactions outside the Open state.
	ErrNotOpen = errors.New("trim session is not open")
)

// Config carries the clip parameters. The tolerance band around the clip
// length decides when a source is treated as a ready-made clip and the
// trimmer is skipped entirely.
type Config struct {
	ClipSeconds   float64 `json:"clipSeconds"`
	ToleranceLow  float64 `json:"toleranceLow"`
	ToleranceHigh float64 `json:"toleranceHigh"`
}

// DefaultConfig returns the stock 60-second clip with the [58, 62]
// already-trimmed band.
func DefaultConfig() Config {
	return Config{ClipSeconds: 60, ToleranceLow: 58, ToleranceHigh: 62}
}

// Encoder is the transcoding capability a session depends on.
// *audio.Transcoder implements it.
type Encoder interface {
	ProbeDuration(data []byte) (float64, error)
	Encode(data []byte, window *audio.Window, baseName string, kind audio.AssetKind, onProgress audio.ProgressFunc) (*audio.Asset, error)
}

// Result is the outcome of a session interaction that can finish the
// workflow. Skipped means the source already fit the tolerance band and
// no trimmer was opened; Asset is nil until an encode has run.
type Result struct {
	Asset     *audio.Asset
	StartTime float64
	Duration  float64
	Skipped   bool
}

// Snapshot is the UI-facing view of a session.
type Snapshot struct {
	State      State   `json:"state"`
	IsOpen     bool    `json:"isOpen"`
	SourceName string  `json:"sourceName"`
	Duration   float64 `json:"duration"`
	StartTime  float64 `json:"startTime"`
	MaxStart   float64 `json:"maxStart"`
	Playhead   float64 `json:"playhead"`
	IsPlaying  bool    `json:"isPlaying"`
}

// Session is the explicit state machine behind the trim UI. All slider
// and playback handlers reduce to thin calls into its methods.
type Session struct {
	mu  sync.Mutex
	cfg Config
	enc Encoder

	state      State
	source     []byte
	sourceName string
	baseName   string
	duration   float64
	startTime  float64
	playhead   float64
	playing    bool
}

// NewSession creates an idle session.
func NewSession(cfg Config, enc Encoder) *Session {
	return &Session{cfg: cfg, enc: enc, state: StateIdle}
}

// OpenFor probes the selected file and decides the route. Sources whose
// duration falls inside the tolerance band are ready-made clips: the
// session closes immediately and the caller encodes the full file with
// no window (Result.Skipped). Everything else opens the trimmer with
// startTime 0.
func (s *Session) OpenFor(data []byte, sourceName, baseName string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEncoding {
		return nil, ErrEncodeInFlight
	}

	s.state = StateAwaitingDuration
	duration, err := s.enc.ProbeDuration(data)
	if err != nil {
		s.state = StateClosed
		return nil, err
	}

	if duration >= s.cfg.ToleranceLow && duration <= s.cfg.ToleranceHigh {
		s.state = StateClosed
		return &Result{Skipped: true, Duration: duration}, nil
	}

	s.state = StateOpen
	s.source = data
	s.sourceName = sourceName
	s.baseName = baseName
	s.duration = duration
	s.startTime = 0
	s.playhead = 0
	s.playing = false
	return nil, nil
}

// maxStart is the largest valid start offset: duration - clip length,
// floored at zero for sources shorter than one clip.
func (s *Session) maxStart() float64 {
	m := s.duration - s.cfg.ClipSeconds
	if m < 0 {
		return 0
	}
	return m
}

// SetStartTime moves the trim window. Values outside [0, duration-60]
// are clamped, never accepted raw. Returns the effective start time.
func (s *Session) SetStartTime(seconds float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return 0, ErrNotOpen
	}

	if seconds < 0 {
		seconds = 0
	}
	if m := s.maxStart(); seconds > m {
		seconds = m
	}
	s.startTime = seconds
	if s.playhead < s.startTime || s.playhead >= s.startTime+s.cfg.ClipSeconds {
		s.playhead = s.startTime
	}
	return s.startTime, nil
}

// TogglePlay starts or pauses the live preview. Starting play rewinds
// the playhead to the window start. Returns whether playback is active.
func (s *Session) TogglePlay() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return false, ErrNotOpen
	}

	s.playing = !s.playing
	if s.playing {
		s.playhead = s.startTime
	}
	return s.playing, nil
}

// UpdatePlayhead records the preview playback position. The preview has
// a hard ceiling of one clip length: a position at or past
// startTime+clip loops back to startTime rather than stopping, so the
// user always hears exactly the window that will be extracted.
func (s *Session) UpdatePlayhead(position float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return 0, ErrNotOpen
	}
	if !s.playing {
		return s.playhead, nil
	}

	if position < s.startTime || position >= s.startTime+s.cfg.ClipSeconds {
		position = s.startTime
	}
	s.playhead = position
	return s.playhead, nil
}

// Confirm extracts the chosen window through the encoder. On success the
// session closes and the asset plus the chosen start offset are handed
// back; on failure the session stays open with the scrub position
// preserved so the user can retry without losing state.
func (s *Session) Confirm(onProgress audio.ProgressFunc) (*Result, error) {
	s.mu.Lock()
	if s.state == StateEncoding {
		s.mu.Unlock()
		return nil, ErrEncodeInFlight
	}
	if s.state != StateOpen {
		s.mu.Unlock()
		return nil, ErrNotOpen
	}
	data := s.source
	start := s.startTime
	base := s.baseName
	window := &audio.Window{StartSeconds: start, DurationSeconds: s.cfg.ClipSeconds}
	s.state = StateEncoding
	s.playing = false
	s.mu.Unlock()

	asset, err := s.enc.Encode(data, window, base, audio.AssetClip, onProgress)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateOpen
		return nil, fmt.Errorf("clip encode failed: %w", err)
	}

	s.state = StateClosed
	s.source = nil
	duration := s.duration
	return &Result{Asset: asset, StartTime: start, Duration: duration}, nil
}

// Cancel discards all trim state and releases the raw file. No encode
// occurs. Cancelling during an in-flight encode is rejected; the encode
// runs to completion or failure.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEncoding {
		return ErrEncodeInFlight
	}
	s.state = StateClosed
	s.source = nil
	s.playing = false
	return nil
}

// Snapshot returns the UI view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		State:      s.state,
		IsOpen:     s.state == StateOpen,
		SourceName: s.sourceName,
		Duration:   s.duration,
		StartTime:  s.startTime,
		MaxStart:   s.maxStart(),
		Playhead:   s.playhead,
		IsPlaying:  s.playing,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
