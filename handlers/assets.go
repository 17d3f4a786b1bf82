package handlers

import (
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"coda/config"
	"coda/services"

	"github.com/gin-gonic/gin"
)

// AssetHandler handles browsing and streaming of rendered assets
type AssetHandler struct {
	assetService services.AssetService
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(as services.AssetService) *AssetHandler {
	return &AssetHandler{
		assetService: as,
	}
}

// ListAssets returns a list of all rendered assets in storage
func (h *AssetHandler) ListAssets(c *gin.Context) {
	storageLocation := config.GetStorageLocation()

	assets, err := h.assetService.ScanAssets(storageLocation)
	if err != nil {
		log.Printf("Error scanning assets: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to scan assets",
			"details": err.Error(),
		})
		return
	}

	// Optional kind filter (master or clip)
	if kind := c.Query("kind"); kind != "" {
		filtered := assets[:0]
		for _, a := range assets {
			if a.Kind == kind {
				filtered = append(filtered, a)
			}
		}
		assets = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"assets": assets,
		"count":  len(assets),
	})
}

// StreamAsset streams a rendered asset with support for range requests
func (h *AssetHandler) StreamAsset(c *gin.Context) {
	requestedPath := c.Param("filepath")

	// Remove leading slash from filepath param
	if strings.HasPrefix(requestedPath, "/") {
		requestedPath = requestedPath[1:]
	}

	// Security: Validate file path
	if err := h.assetService.ValidateFilePath(requestedPath); err != nil {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "path security violation",
			"details": err.Error(),
		})
		return
	}

	// Only rendered output is served
	if strings.ToLower(filepath.Ext(requestedPath)) != ".wav" {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "file extension not allowed",
			"details": "only .wav files can be streamed",
		})
		return
	}

	storageLocation := config.GetStorageLocation()
	fullPath := filepath.Join(storageLocation, requestedPath)

	// Security: Ensure resolved path is within the storage location
	absStoragePath, err := filepath.Abs(storageLocation)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "server configuration error",
		})
		return
	}

	absRequestPath, err := filepath.Abs(fullPath)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid file path",
		})
		return
	}

	if !strings.HasPrefix(absRequestPath, absStoragePath) {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "path traversal not allowed",
		})
		return
	}

	// Check if file exists and is readable
	fileInfo, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "file not found",
				"path":  requestedPath,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "file access error",
			"details": err.Error(),
		})
		return
	}

	// Ensure it's a file, not a directory
	if fileInfo.IsDir() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "path is a directory, not a file",
		})
		return
	}

	// Open the file
	file, err := os.Open(fullPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to open file",
			"details": err.Error(),
		})
		return
	}
	defer file.Close()

	// Set appropriate headers for audio streaming
	c.Header("Content-Type", h.assetService.GetContentType(requestedPath))
	c.Header("Content-Length", strconv.FormatInt(fileInfo.Size(), 10))
	c.Header("Accept-Ranges", "bytes")
	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("Access-Control-Allow-Origin", "*")

	// Handle range requests for seeking
	rangeHeader := c.GetHeader("Range")
	if rangeHeader != "" {
		h.handleRangeRequest(c, file, fileInfo.Size(), rangeHeader, requestedPath)
		return
	}

	// Stream the entire file
	c.Status(http.StatusOK)
	_, err = io.Copy(c.Writer, file)
	if err != nil {
		log.Printf("Error streaming asset %s: %v", requestedPath, err)
	}
}

// handleRangeRequest handles HTTP range requests for efficient seeking
func (h *AssetHandler) handleRangeRequest(c *gin.Context, file *os.File, fileSize int64, rangeHeader string, filePath string) {
	// Parse range header (e.g., "bytes=0-1023" or "bytes=1024-")
	if !strings.HasPrefix(rangeHeader, "bytes=") {
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	rangeSpec := strings.TrimPrefix(rangeHeader, "bytes=")
	ranges := strings.Split(rangeSpec, "-")

	if len(ranges) != 2 {
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	var start, end int64
	var err error

	// Parse start position
	if ranges[0] != "" {
		start, err = strconv.ParseInt(ranges[0], 10, 64)
		if err != nil || start < 0 {
			c.Status(http.StatusRequestedRangeNotSatisfiable)
			return
		}
	}

	// Parse end position
	if ranges[1] != "" {
		end, err = strconv.ParseInt(ranges[1], 10, 64)
		if err != nil || end < start {
			c.Status(http.StatusRequestedRangeNotSatisfiable)
			return
		}
	} else {
		end = fileSize - 1
	}

	// Validate range bounds
	if start >= fileSize {
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	if end >= fileSize {
		end = fileSize - 1
	}

	contentLength := end - start + 1

	// Seek to start position
	_, err = file.Seek(start, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to seek file",
		})
		return
	}

	// Set partial content headers
	c.Header("Content-Range", "bytes "+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10)+"/"+strconv.FormatInt(fileSize, 10))
	c.Header("Content-Length", strconv.FormatInt(contentLength, 10))
	c.Status(http.StatusPartialContent)

	// Stream the requested range
	_, err = io.CopyN(c.Writer, file, contentLength)
	if err != nil {
		log.Printf("Error streaming range of %s: %v", filePath, err)
	}
}
