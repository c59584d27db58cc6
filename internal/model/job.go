// internal/model/job.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// JobKind selects the command set a print job is encoded with
type JobKind string

const (
	JobKindESCP  JobKind = "escp"
	JobKindESCPR JobKind = "escpr"
)

// JobSource is where the pages of a print job come from
type JobSource string

const (
	JobSourceTestPattern JobSource = "TEST_PATTERN"
	JobSourceImage       JobSource = "IMAGE"
	JobSourceJPEG        JobSource = "JPEG"
)

// JobStatus represents the status of a print job
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusSuccess    JobStatus = "SUCCESS"
	JobStatusFailed     JobStatus = "FAILED"
)

// PrintJob is the record kept for every job submitted to the service
type PrintJob struct {
	ID           uuid.UUID      `json:"id"`
	Kind         JobKind        `json:"kind"`
	Source       JobSource      `json:"source"`
	Name         string         `json:"name"`
	Paper        string         `json:"paper"`
	MediaType    string         `json:"media_type"`
	DPI          int            `json:"dpi"`
	Pages        int            `json:"pages"`
	PagesSent    int            `json:"pages_sent"`
	BytesSent    int64          `json:"bytes_sent"`
	Connection   ConnectionType `json:"connection"`
	Status       JobStatus      `json:"status"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	DurationMs   *int           `json:"duration_ms,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// IsCompleted checks if the job reached a final status
func (j *PrintJob) IsCompleted() bool {
	return j.Status == JobStatusSuccess || j.Status == JobStatusFailed
}

// Complete records the final status of the job
func (j *PrintJob) Complete(err error, now time.Time) {
	j.CompletedAt = &now
	duration := int(now.Sub(j.StartedAt).Milliseconds())
	j.DurationMs = &duration
	if err != nil {
		msg := err.Error()
		j.ErrorMessage = &msg
		j.Status = JobStatusFailed
		return
	}
	j.Status = JobStatusSuccess
}

// DecodedCommand is one command of a decoded stream
type DecodedCommand struct {
	Offset  int64       `json:"offset"`
	Name    string      `json:"name"`
	Mode    string      `json:"mode"`
	Command string      `json:"command"`
	Fields  interface{} `json:"fields,omitempty"`
}
