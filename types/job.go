package types

import "time"

// JobType represents the kind of encode job
type JobType string

const (
	JobTypeMaster JobType = "master"
	JobTypeClip   JobType = "clip"
)

// JobStatus represents the current status of an encode job
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// EncodeJob represents one encode+upload run for a track slot
type EncodeJob struct {
	ID          string     `json:"id"`
	Type        JobType    `json:"type"`
	Status      JobStatus  `json:"status"`
	Owner       string     `json:"owner"`
	Slot        string     `json:"slot"`
	SourceName  string     `json:"sourceName"`
	Filename    string     `json:"filename,omitempty"`
	StoragePath string     `json:"storagePath,omitempty"`
	PreviewPath string     `json:"previewPath,omitempty"`
	StartTime   *float64   `json:"startTime,omitempty"` // clip window offset in the source, seconds
	Progress    float64    `json:"progress"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
