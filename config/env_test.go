package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStorageLocationEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CODA_STORAGE", "/srv/coda-assets")

	assert.Equal(t, "/srv/coda-assets", GetStorageLocation())
}

func TestGetStorageLocationDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CODA_STORAGE", "")

	assert.Equal(t, filepath.Join(home, "Music", "Coda"), GetStorageLocation())
}

func TestLoadSettingsDefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	settings, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, float64(60), settings.ClipSeconds)
	assert.Equal(t, float64(58), settings.ToleranceLow)
	assert.Equal(t, float64(62), settings.ToleranceHigh)
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	saved := &UserSettings{
		StorageLocation: "/data/assets",
		ClipSeconds:     30,
		ToleranceLow:    29,
		ToleranceHigh:   31,
	}
	require.NoError(t, SaveSettings(saved))

	loaded, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestLoadSettingsResetsInvalidBand(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"zero clip length", `{"clipSeconds": 0, "toleranceLow": 58, "toleranceHigh": 62}`},
		{"low above clip", `{"clipSeconds": 60, "toleranceLow": 61, "toleranceHigh": 62}`},
		{"high below clip", `{"clipSeconds": 60, "toleranceLow": 58, "toleranceHigh": 59}`},
		{"negative low", `{"clipSeconds": 60, "toleranceLow": -1, "toleranceHigh": 62}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := t.TempDir()
			t.Setenv("HOME", home)
			require.NoError(t, os.WriteFile(filepath.Join(home, ".coda-settings.json"), []byte(tt.json), 0644))

			settings, err := LoadSettings()
			require.NoError(t, err)
			assert.Equal(t, float64(60), settings.ClipSeconds)
			assert.Equal(t, float64(58), settings.ToleranceLow)
			assert.Equal(t, float64(62), settings.ToleranceHigh)
		})
	}
}

func TestLoadSettingsRejectsMalformedFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".coda-settings.json"), []byte("{not json"), 0644))

	_, err := LoadSettings()
	assert.Error(t, err)
}
