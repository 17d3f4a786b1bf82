package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"coda/audio"
	"coda/metrics"
	"coda/types"
	"coda/websocket"

	"github.com/google/uuid"
)

// EncodeFunc runs the CPU-bound part of a job: decode, render, serialize.
// It is executed on a worker goroutine so the HTTP surface stays
// responsive while encodes run.
type EncodeFunc func(onProgress audio.ProgressFunc) (*EncodeResult, error)

// EncodeResult carries the encoded asset and, for trimmed clips, the
// chosen window start needed for server-side preview alignment.
type EncodeResult struct {
	Asset     *audio.Asset
	StartTime *float64
}

// EncodeQueue interface defines the methods for managing encode jobs
type EncodeQueue interface {
	Start()
	Enqueue(jobType types.JobType, owner, slot, sourceName string, encode EncodeFunc) *types.EncodeJob
	GetJob(id string) (*types.EncodeJob, bool)
	GetAllJobs() []*types.EncodeJob
	CancelJob(id string) bool
	RetryUpload(id string) (*types.EncodeJob, error)
}

// encodeTask pairs a job with its work. Upload-only tasks re-run the
// upload against the retained asset after an UploadError.
type encodeTask struct {
	job        *types.EncodeJob
	encode     EncodeFunc
	uploadOnly bool
}

// encodeQueue manages encode jobs
type encodeQueue struct {
	jobs       map[string]*types.EncodeJob
	assets     map[string]*audio.Asset // retained until upload succeeds
	queue      chan *encodeTask
	slotLocks  map[string]*sync.Mutex
	mu         sync.RWMutex
	maxWorkers int
	hub        websocket.Hub
	uploader   Uploader
	metrics    *metrics.Metrics
	clipWindow float64 // seconds, passed to preview generation
}

// NewEncodeQueue creates a new encode queue
func NewEncodeQueue(maxWorkers int, hub websocket.Hub, uploader Uploader, m *metrics.Metrics, clipWindowSeconds float64) EncodeQueue {
	return &encodeQueue{
		jobs:       make(map[string]*types.EncodeJob),
		assets:     make(map[string]*audio.Asset),
		queue:      make(chan *encodeTask, 100), // Buffer for 100 jobs
		slotLocks:  make(map[string]*sync.Mutex),
		maxWorkers: maxWorkers,
		hub:        hub,
		uploader:   uploader,
		metrics:    m,
		clipWindow: clipWindowSeconds,
	}
}

// Enqueue adds a new encode job to the queue
func (q *encodeQueue) Enqueue(jobType types.JobType, owner, slot, sourceName string, encode EncodeFunc) *types.EncodeJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	job := &types.EncodeJob{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     types.JobStatusQueued,
		Owner:      owner,
		Slot:       slot,
		SourceName: sourceName,
		CreatedAt:  time.Now(),
	}

	q.jobs[job.ID] = job
	q.queue <- &encodeTask{job: job, encode: encode}

	return job
}

// GetJob retrieves a job by ID
func (q *encodeQueue) GetJob(id string) (*types.EncodeJob, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	job, exists := q.jobs[id]
	return job, exists
}

// GetAllJobs returns all jobs
func (q *encodeQueue) GetAllJobs() []*types.EncodeJob {
	q.mu.RLock()
	defer q.mu.RUnlock()

	jobs := make([]*types.EncodeJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// CancelJob cancels a queued job
func (q *encodeQueue) CancelJob(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, exists := q.jobs[id]
	if !exists {
		return false
	}

	if job.Status == types.JobStatusQueued {
		job.Status = types.JobStatusCancelled
		now := time.Now()
		job.CompletedAt = &now
		return true
	}

	return false
}

// RetryUpload re-queues the upload step for a job whose encode succeeded
// but whose upload failed. The retained asset is reused; no re-encode.
func (q *encodeQueue) RetryUpload(id string) (*types.EncodeJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, exists := q.jobs[id]
	if !exists {
		return nil, fmt.Errorf("job %s not found", id)
	}
	if job.Status != types.JobStatusFailed {
		return nil, fmt.Errorf("job %s is %s, only failed uploads can be retried", id, job.Status)
	}
	if _, ok := q.assets[id]; !ok {
		return nil, fmt.Errorf("job %s has no retained asset, re-encode required", id)
	}

	job.Status = types.JobStatusQueued
	job.Error = ""
	job.CompletedAt = nil
	q.queue <- &encodeTask{job: job, uploadOnly: true}
	return job, nil
}

// UpdateJobProgress updates job progress and broadcasts it
func (q *encodeQueue) updateJobProgress(id, stage string, progress float64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, exists := q.jobs[id]
	if !exists {
		return
	}
	if progress < job.Progress {
		progress = job.Progress // never report backwards
	}
	job.Progress = progress

	if q.hub != nil {
		q.hub.BroadcastProgress(id, "progress", string(job.Status), stage, job.Slot,
			fmt.Sprintf("%s %.0f%%", stage, progress), progress)
	}
}

// setJobStatus updates job status and broadcasts it
func (q *encodeQueue) setJobStatus(id string, status types.JobStatus, errorMsg string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, exists := q.jobs[id]
	if !exists {
		return
	}

	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}

	now := time.Now()
	if status == types.JobStatusProcessing && job.StartedAt == nil {
		job.StartedAt = &now
	} else if status == types.JobStatusCompleted || status == types.JobStatusFailed || status == types.JobStatusCancelled {
		job.CompletedAt = &now
	}

	if q.hub != nil {
		msgType := "status"
		message := string(status)
		progress := job.Progress

		if status == types.JobStatusCompleted {
			msgType = "complete"
			job.Progress = 100.0
			progress = 100.0
			message = fmt.Sprintf("%s processed", job.SourceName)
		} else if status == types.JobStatusFailed {
			msgType = "error"
			message = errorMsg
		} else if status == types.JobStatusProcessing {
			message = fmt.Sprintf("Started processing %s", job.SourceName)
		}

		q.hub.BroadcastProgress(id, msgType, string(status), "", job.Slot, message, progress)
	}
}

// Start begins processing jobs
func (q *encodeQueue) Start() {
	for i := 0; i < q.maxWorkers; i++ {
		go q.worker()
	}
}

// slotLock returns the mutex serializing work for one track slot.
func (q *encodeQueue) slotLock(slot string) *sync.Mutex {
	q.mu.Lock()
	defer q.mu.Unlock()

	lock, ok := q.slotLocks[slot]
	if !ok {
		lock = &sync.Mutex{}
		q.slotLocks[slot] = lock
	}
	return lock
}

// worker processes tasks from the queue. Jobs for the same slot are
// serialized: a second selection queues behind the in-flight encode and
// never runs concurrently against the same slot.
func (q *encodeQueue) worker() {
	for task := range q.queue {
		if task.job.Status == types.JobStatusCancelled {
			continue
		}

		lock := q.slotLock(task.job.Slot)
		lock.Lock()
		if err := q.process(task); err != nil {
			q.setJobStatus(task.job.ID, types.JobStatusFailed, err.Error())
			log.Printf("Job %s failed: %v", task.job.ID, err)
		} else {
			q.setJobStatus(task.job.ID, types.JobStatusCompleted, "")
			log.Printf("Job %s completed successfully", task.job.ID)
		}
		lock.Unlock()
	}
}

// process runs one task: encode (unless upload-only), then upload, then
// preview generation for clips.
func (q *encodeQueue) process(task *encodeTask) error {
	job := task.job
	q.setJobStatus(job.ID, types.JobStatusProcessing, "")

	var asset *audio.Asset

	if task.uploadOnly {
		q.mu.RLock()
		asset = q.assets[job.ID]
		q.mu.RUnlock()
		if asset == nil {
			return fmt.Errorf("retained asset for job %s is gone", job.ID)
		}
	} else {
		if q.metrics != nil {
			q.metrics.EncodesStarted.WithLabelValues(string(job.Type)).Inc()
		}

		started := time.Now()
		// The encode owns the 0-80% band of job progress.
		result, err := task.encode(func(percent float64) {
			q.updateJobProgress(job.ID, "encode", percent*0.8)
		})
		if err != nil {
			if q.metrics != nil {
				q.metrics.EncodesFailed.WithLabelValues(string(job.Type)).Inc()
			}
			// Nothing is handed to the upload collaborator on a failed
			// encode; no partial asset survives.
			return err
		}

		asset = result.Asset
		q.mu.Lock()
		q.assets[job.ID] = asset
		job.Filename = asset.Filename
		job.StartTime = result.StartTime
		q.mu.Unlock()

		if q.metrics != nil {
			q.metrics.EncodesCompleted.WithLabelValues(string(job.Type)).Inc()
			q.metrics.EncodeDuration.Observe(time.Since(started).Seconds())
			q.metrics.AssetBytes.Observe(float64(len(asset.Data)))
		}
	}

	// Upload owns the 80-99% band.
	storagePath, err := q.uploader.UploadBlob(context.Background(), job.Owner, job.Slot, asset, func(percent float64) {
		q.updateJobProgress(job.ID, "upload", 80+percent*0.19)
	})
	if err != nil {
		if q.metrics != nil {
			q.metrics.UploadsFailed.Inc()
		}
		// The encoded asset stays retained so a retry skips the encode.
		return &UploadError{Err: err}
	}

	q.mu.Lock()
	job.StoragePath = storagePath
	delete(q.assets, job.ID)
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.UploadsCompleted.Inc()
		q.metrics.UploadedBytes.Add(float64(len(asset.Data)))
	}

	if job.Type == types.JobTypeClip && job.StartTime != nil {
		previewPath, err := q.uploader.GeneratePreview(context.Background(), storagePath, *job.StartTime, q.clipWindow)
		if err != nil {
			// Preview generation is best-effort; the clip itself is safe.
			log.Printf("Preview generation for job %s failed: %v", job.ID, err)
		} else {
			q.mu.Lock()
			job.PreviewPath = previewPath
			q.mu.Unlock()
		}
	}

	q.updateJobProgress(job.ID, "upload", 100)
	return nil
}
