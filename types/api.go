package types

// TrackAsset represents a rendered WAV asset in the storage location
type TrackAsset struct {
	Filename string         `json:"filename"`
	Path     string         `json:"path"`
	Size     int64          `json:"size"`
	Kind     string         `json:"kind"` // "master" or "clip"
	Info     *AssetInfo     `json:"info,omitempty"`
	Metadata *AssetMetadata `json:"metadata,omitempty"`
}

// AssetInfo carries the WAV format parameters of a rendered asset
type AssetInfo struct {
	SampleRate    int     `json:"sampleRate"`
	Channels      int     `json:"channels"`
	BitsPerSample int     `json:"bitsPerSample"`
	Duration      float64 `json:"durationSeconds"`
}

// AssetMetadata represents ownership context recovered from the
// storage layout
type AssetMetadata struct {
	Title string `json:"title,omitempty"`
	Owner string `json:"owner,omitempty"`
	Slot  string `json:"slot,omitempty"`
}
