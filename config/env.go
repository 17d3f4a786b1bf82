package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

var Env = map[string]string{
	"UPLOAD_ENDPOINT":  os.Getenv("UPLOAD_ENDPOINT"),
	"STORAGE_LOCATION": os.Getenv("STORAGE_LOCATION"),
}

// GetUploadEndpoint returns the back-office storage API base URL. Empty
// means assets are stored on the local disk instead.
func GetUploadEndpoint() string {
	return Env["UPLOAD_ENDPOINT"]
}

// GetStorageLocation resolves where rendered assets live on disk.
func GetStorageLocation() string {
	// Environment variable wins over everything
	if customPath := os.Getenv("CODA_STORAGE"); customPath != "" {
		return customPath
	}
	if customPath := Env["STORAGE_LOCATION"]; customPath != "" {
		return customPath
	}

	// Then the user's saved settings
	if settings, err := LoadSettings(); err == nil && settings.StorageLocation != "" {
		return settings.StorageLocation
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if can't get home dir
		return filepath.Join(".", "assets")
	}

	return filepath.Join(homeDir, "Music", "Coda")
}

// UserSettings represents the user's personal settings. The clip
// parameters default to a 60-second window with the [58, 62] second
// already-trimmed band; they are settings rather than constants because
// the band is a heuristic, not a load-bearing value.
type UserSettings struct {
	StorageLocation string  `json:"storageLocation"`
	ClipSeconds     float64 `json:"clipSeconds"`
	ToleranceLow    float64 `json:"toleranceLow"`
	ToleranceHigh   float64 `json:"toleranceHigh"`
}

// DefaultSettings returns the stock configuration.
func DefaultSettings() *UserSettings {
	return &UserSettings{
		StorageLocation: "",
		ClipSeconds:     60,
		ToleranceLow:    58,
		ToleranceHigh:   62,
	}
}

// SettingsFilePath returns the path to the settings file
func SettingsFilePath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".coda-settings.json")
}

// LoadSettings loads settings from the settings file, filling defaults
// for anything missing or nonsensical.
func LoadSettings() (*UserSettings, error) {
	settingsPath := SettingsFilePath()

	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		return DefaultSettings(), nil
	}

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	// Reject clip parameters that cannot describe a valid band.
	if settings.ClipSeconds <= 0 ||
		settings.ToleranceLow <= 0 ||
		settings.ToleranceLow > settings.ClipSeconds ||
		settings.ToleranceHigh < settings.ClipSeconds {
		defaults := DefaultSettings()
		settings.ClipSeconds = defaults.ClipSeconds
		settings.ToleranceLow = defaults.ToleranceLow
		settings.ToleranceHigh = defaults.ToleranceHigh
	}

	return settings, nil
}

// SaveSettings writes settings to the settings file
func SaveSettings(settings *UserSettings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(SettingsFilePath(), data, 0644)
}
