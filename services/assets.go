package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"coda/audio"
	"coda/types"
)

// AssetService interface defines methods for browsing rendered assets
type AssetService interface {
	ScanAssets(rootPath string) ([]types.TrackAsset, error)
	ExtractAssetInfo(filePath string) *types.AssetInfo
	ValidateFilePath(path string) error
	GetContentType(filePath string) string
}

// assetService implements the AssetService interface
type assetService struct{}

// NewAssetService creates a new asset service
func NewAssetService() AssetService {
	return &assetService{}
}

// ScanAssets recursively scans the storage location for rendered WAV
// assets. Clips carry the "-trim" suffix the transcoder appends.
func (as *assetService) ScanAssets(rootPath string) ([]types.TrackAsset, error) {
	var assets []types.TrackAsset

	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Printf("Error accessing path %s: %v", path, err)
			return nil // Continue walking, don't fail entire scan
		}

		if info.IsDir() || strings.ToLower(filepath.Ext(path)) != ".wav" {
			return nil
		}

		relativePath, err := filepath.Rel(rootPath, path)
		if err != nil {
			relativePath = path // fallback to absolute path
		}

		kind := string(audio.AssetMaster)
		if strings.HasSuffix(strings.TrimSuffix(info.Name(), ".wav"), "-trim") {
			kind = string(audio.AssetClip)
		}

		assets = append(assets, types.TrackAsset{
			Filename: info.Name(),
			Path:     filepath.ToSlash(relativePath),
			Size:     info.Size(),
			Kind:     kind,
			Info:     as.ExtractAssetInfo(path),
			Metadata: extractMetadataFromPath(relativePath),
		})
		return nil
	})

	if err != nil {
		return nil, err
	}
	return assets, nil
}

// ExtractAssetInfo reads WAV format parameters from an asset file.
func (as *assetService) ExtractAssetInfo(filePath string) *types.AssetInfo {
	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Printf("Warning: Could not open asset %s: %v", filePath, err)
		return nil
	}

	info, err := audio.GetWAVInfo(data)
	if err != nil {
		log.Printf("Warning: Could not parse WAV header from %s: %v", filePath, err)
		return nil
	}

	return &types.AssetInfo{
		SampleRate:    info.SampleRate,
		Channels:      info.Channels,
		BitsPerSample: info.BitsPerSample,
		Duration:      info.Duration,
	}
}

// extractMetadataFromPath recovers owner/slot context from the storage
// layout: <owner>/<slot>/<filename>.wav
func extractMetadataFromPath(filePath string) *types.AssetMetadata {
	metadata := &types.AssetMetadata{}

	parts := strings.Split(filepath.ToSlash(filePath), "/")
	filename := filepath.Base(filePath)

	if len(parts) >= 3 {
		metadata.Owner = parts[len(parts)-3]
	}
	if len(parts) >= 2 {
		metadata.Slot = parts[len(parts)-2]
	}
	metadata.Title = strings.TrimSuffix(filename, filepath.Ext(filename))

	return metadata
}

// GetContentType returns the appropriate MIME type for an asset file
func (as *assetService) GetContentType(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}

// ValidateFilePath checks for path traversal attempts and other security issues
func (as *assetService) ValidateFilePath(path string) error {
	// Check for path traversal attempts
	if strings.Contains(path, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	// Check for absolute paths
	if strings.HasPrefix(path, "/") {
		return fmt.Errorf("absolute paths not allowed")
	}

	// Check for empty path
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty path not allowed")
	}

	return nil
}
