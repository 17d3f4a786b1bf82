package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"coda/config"

	"github.com/gin-gonic/gin"
)

// SettingsHandler handles settings-related endpoints
type SettingsHandler struct{}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler() *SettingsHandler {
	return &SettingsHandler{}
}

// validatePath validates that the path exists and is writable
func validatePath(path string) error {
	// Check if path exists
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Try to create the directory
			if err := os.MkdirAll(path, 0755); err != nil {
				return err
			}
		} else {
			return err
		}
	} else if !info.IsDir() {
		return fmt.Errorf("path is not a directory")
	}

	// Test write permissions by creating a temporary file
	testFile := filepath.Join(path, ".coda-write-test")
	file, err := os.Create(testFile)
	if err != nil {
		return err
	}
	file.Close()
	os.Remove(testFile)

	return nil
}

// GetSettings returns the current settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := config.LoadSettings()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load settings",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateSettings updates the user settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var newSettings config.UserSettings
	if err := c.ShouldBindJSON(&newSettings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid settings format",
			"details": err.Error(),
		})
		return
	}

	// Validate the storage location path
	if err := validatePath(newSettings.StorageLocation); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid storage location",
			"details": err.Error(),
		})
		return
	}

	// Validate the clip window parameters
	if newSettings.ClipSeconds <= 0 ||
		newSettings.ToleranceLow <= 0 ||
		newSettings.ToleranceLow > newSettings.ClipSeconds ||
		newSettings.ToleranceHigh < newSettings.ClipSeconds {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid clip window",
			"details": "tolerance band must bracket the clip length",
		})
		return
	}

	// Save the settings
	if err := config.SaveSettings(&newSettings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save settings",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Settings updated successfully",
		"settings": newSettings,
	})
}
