package handlers

import (
	"net/http"

	"coda/audio"
	"coda/services"
	"coda/trimmer"
	"coda/types"

	"github.com/gin-gonic/gin"
)

// TrimHandler exposes the trim session state machine over HTTP. The UI
// slider and play/pause buttons reduce to these endpoints.
type TrimHandler struct {
	queue services.EncodeQueue
	trims *trimmer.Manager
}

// NewTrimHandler creates a new trim handler
func NewTrimHandler(queue services.EncodeQueue, trims *trimmer.Manager) *TrimHandler {
	return &TrimHandler{queue: queue, trims: trims}
}

func (h *TrimHandler) session(c *gin.Context) (*trimmer.Session, string, bool) {
	slot := c.Param("slot")
	session, ok := h.trims.Get(slot)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "no trim session for this slot",
		})
		return nil, slot, false
	}
	return session, slot, true
}

// GetTrim returns the current session snapshot.
func (h *TrimHandler) GetTrim(c *gin.Context) {
	session, _, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"trim": session.Snapshot()})
}

// SetStart moves the trim window start. Out-of-range values are clamped.
func (h *TrimHandler) SetStart(c *gin.Context) {
	session, _, ok := h.session(c)
	if !ok {
		return
	}

	var body struct {
		StartTime float64 `json:"startTime"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	clamped, err := session.SetStartTime(body.StartTime)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"startTime": clamped})
}

// TogglePlay starts or pauses the live preview.
func (h *TrimHandler) TogglePlay(c *gin.Context) {
	session, _, ok := h.session(c)
	if !ok {
		return
	}

	playing, err := session.TogglePlay()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"isPlaying": playing})
}

// UpdatePlayhead records the preview position reported by the player.
// Positions past the window end loop back to the window start.
func (h *TrimHandler) UpdatePlayhead(c *gin.Context) {
	session, _, ok := h.session(c)
	if !ok {
		return
	}

	var body struct {
		Position float64 `json:"position"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	playhead, err := session.UpdatePlayhead(body.Position)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"playhead": playhead})
}

// Confirm queues the encode of the chosen window. The session survives a
// failed encode with its scrub position intact.
func (h *TrimHandler) Confirm(c *gin.Context) {
	session, slot, ok := h.session(c)
	if !ok {
		return
	}
	owner := c.DefaultQuery("owner", "default")

	snap := session.Snapshot()
	if !snap.IsOpen {
		c.JSON(http.StatusConflict, gin.H{
			"error": "trim session is not open",
		})
		return
	}

	trims := h.trims
	job := h.queue.Enqueue(types.JobTypeClip, owner, slot, snap.SourceName, func(onProgress audio.ProgressFunc) (*services.EncodeResult, error) {
		result, err := session.Confirm(onProgress)
		if err != nil {
			return nil, err
		}
		trims.Forget(slot)
		return &services.EncodeResult{Asset: result.Asset, StartTime: &result.StartTime}, nil
	})

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Clip encode queued successfully",
		"job":     job,
	})
}

// Cancel discards the trim session without encoding.
func (h *TrimHandler) Cancel(c *gin.Context) {
	slot := c.Param("slot")
	if err := h.trims.Close(slot); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "trim session cancelled"})
}
