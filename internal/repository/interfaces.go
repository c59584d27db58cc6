// internal/repository/interfaces.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"escpr-service/internal/model"
)

// ErrJobNotFound is returned when no job has the requested ID
var ErrJobNotFound = errors.New("print job not found")

// JobRepository defines print job record access
type JobRepository interface {
	Create(ctx context.Context, job *model.PrintJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.PrintJob, error)
	Update(ctx context.Context, job *model.PrintJob) error

	// List returns the matching page of jobs, newest first, and the total match count
	List(ctx context.Context, filter *JobFilter) ([]*model.PrintJob, int, error)

	// DeleteOldJobs removes completed jobs created before olderThan
	DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error)
}

// JobFilter represents job listing filters
type JobFilter struct {
	Status *model.JobStatus `json:"status,omitempty"`
	Kind   *model.JobKind   `json:"kind,omitempty"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}
