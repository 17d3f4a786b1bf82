package handlers

import (
	"log"
	"net/http"

	"coda/services"
	"coda/websocket"

	"github.com/gin-gonic/gin"
)

// JobHandler handles encode job management endpoints
type JobHandler struct {
	queue services.EncodeQueue
	hub   websocket.Hub
}

// NewJobHandler creates a new job handler
func NewJobHandler(queue services.EncodeQueue, hub websocket.Hub) *JobHandler {
	return &JobHandler{
		queue: queue,
		hub:   hub,
	}
}

// GetAllJobs returns all encode jobs
func (h *JobHandler) GetAllJobs(c *gin.Context) {
	jobs := h.queue.GetAllJobs()
	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// GetJob returns a specific encode job by ID
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("jobId")
	job, exists := h.queue.GetJob(jobID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job": job,
	})
}

// CancelJob cancels a queued encode job
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID := c.Param("jobId")
	cancelled := h.queue.CancelJob(jobID)
	if !cancelled {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job cannot be cancelled (not found or already processing)",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "job cancelled successfully",
	})
}

// RetryUpload re-queues the upload leg of a job whose encode succeeded
// but whose storage upload failed.
func (h *JobHandler) RetryUpload(c *gin.Context) {
	jobID := c.Param("jobId")
	job, err := h.queue.RetryUpload(jobID)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "upload retry queued",
		"job":     job,
	})
}

// HandleWebSocketConnection handles WebSocket connections for specific job progress
func (h *JobHandler) HandleWebSocketConnection(c *gin.Context) {
	jobID := c.Param("jobId")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job ID is required"})
		return
	}

	// Check if job exists
	_, exists := h.queue.GetJob(jobID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	upgrader := websocket.GetUpgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, jobID)
	h.hub.RegisterClient(client)

	// Start client pumps
	client.StartPumps()
}

// HandleWebSocketAllConnection handles WebSocket connections for all job progress
func (h *JobHandler) HandleWebSocketAllConnection(c *gin.Context) {
	upgrader := websocket.GetUpgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, "all")
	h.hub.RegisterClient(client)

	// Start client pumps
	client.StartPumps()
}
