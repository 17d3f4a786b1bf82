package handlers

import (
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"coda/audio"
	"coda/metrics"
	"coda/services"
	"coda/trimmer"
	"coda/types"

	"github.com/gin-gonic/gin"
)

// maxUploadBytes bounds a single source file read into memory.
const maxUploadBytes = 512 << 20

// TrackHandler handles track audio intake: master uploads and the
// clip-slot routing into the trim workflow.
type TrackHandler struct {
	queue      services.EncodeQueue
	trims      *trimmer.Manager
	transcoder *audio.Transcoder
	metrics    *metrics.Metrics
}

// NewTrackHandler creates a new track handler
func NewTrackHandler(queue services.EncodeQueue, trims *trimmer.Manager, transcoder *audio.Transcoder, m *metrics.Metrics) *TrackHandler {
	return &TrackHandler{
		queue:      queue,
		trims:      trims,
		transcoder: transcoder,
		metrics:    m,
	}
}

// readUpload pulls the multipart "file" field into memory and derives
// the target base name from the optional "title" field.
func readUpload(c *gin.Context) (data []byte, sourceName, baseName string, ok bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "multipart field 'file' is required",
		})
		return nil, "", "", false
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "file exceeds the upload size limit",
		})
		return nil, "", "", false
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to open uploaded file",
			"details": err.Error(),
		})
		return nil, "", "", false
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to read uploaded file",
			"details": err.Error(),
		})
		return nil, "", "", false
	}

	sourceName = fileHeader.Filename
	baseName = c.PostForm("title")
	if baseName == "" {
		baseName = strings.TrimSuffix(sourceName, filepath.Ext(sourceName))
	}
	return data, sourceName, baseName, true
}

// UploadAudio queues a full-length master encode for a track slot.
func (h *TrackHandler) UploadAudio(c *gin.Context) {
	slot := c.Param("slot")
	if slot == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "track slot is required",
		})
		return
	}
	owner := c.DefaultPostForm("owner", "default")

	data, sourceName, baseName, ok := readUpload(c)
	if !ok {
		return
	}

	transcoder := h.transcoder
	job := h.queue.Enqueue(types.JobTypeMaster, owner, slot, sourceName, func(onProgress audio.ProgressFunc) (*services.EncodeResult, error) {
		asset, err := transcoder.Encode(data, nil, baseName, audio.AssetMaster, onProgress)
		if err != nil {
			return nil, err
		}
		return &services.EncodeResult{Asset: asset}, nil
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Master encode queued successfully",
		"job":     job,
	})
}

// UploadClip routes a file selected for the clip slot. Sources already
// inside the tolerance band encode immediately with no window; anything
// else opens the interactive trimmer.
func (h *TrackHandler) UploadClip(c *gin.Context) {
	slot := c.Param("slot")
	if slot == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "track slot is required",
		})
		return
	}
	owner := c.DefaultPostForm("owner", "default")

	data, sourceName, baseName, ok := readUpload(c)
	if !ok {
		return
	}

	result, err := h.trims.OpenFor(slot, data, sourceName, baseName)
	if err != nil {
		if err == trimmer.ErrEncodeInFlight {
			c.JSON(http.StatusConflict, gin.H{
				"error": "an encode is already running for this slot",
			})
			return
		}
		log.Printf("Clip probe failed for slot %s: %v", slot, err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "clip audio could not be decoded",
			"details": err.Error(),
		})
		return
	}

	if result != nil && result.Skipped {
		// Ready-made clip: encode full-length, no trimmer.
		if h.metrics != nil {
			h.metrics.TrimSessionsSkipped.Inc()
		}
		transcoder := h.transcoder
		start := 0.0
		job := h.queue.Enqueue(types.JobTypeClip, owner, slot, sourceName, func(onProgress audio.ProgressFunc) (*services.EncodeResult, error) {
			asset, err := transcoder.Encode(data, nil, baseName, audio.AssetClip, onProgress)
			if err != nil {
				return nil, err
			}
			return &services.EncodeResult{Asset: asset, StartTime: &start}, nil
		})

		c.JSON(http.StatusCreated, gin.H{
			"message":     "Clip already fits the preview window, encode queued",
			"skippedTrim": true,
			"duration":    result.Duration,
			"job":         job,
		})
		return
	}

	if h.metrics != nil {
		h.metrics.TrimSessionsOpened.Inc()
	}
	session, ok := h.trims.Get(slot)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "trim session was not retained",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Trim session opened",
		"skippedTrim": false,
		"trim":        session.Snapshot(),
	})
}
