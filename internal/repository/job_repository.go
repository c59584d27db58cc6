// internal/repository/job_repository.go
package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpr-service/internal/model"
)

const defaultListLimit = 50

// jobRepository keeps job records in memory. Records are copied on the way
// in and out so callers never share state with the store.
type jobRepository struct {
	mu     sync.RWMutex
	jobs   map[uuid.UUID]*model.PrintJob
	logger *zap.Logger
}

// NewJobRepository creates a new in-memory job repository
func NewJobRepository(logger *zap.Logger) JobRepository {
	return &jobRepository{
		jobs:   make(map[uuid.UUID]*model.PrintJob),
		logger: logger,
	}
}

// Create stores a new job
func (r *jobRepository) Create(ctx context.Context, job *model.PrintJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("print job %s already exists", job.ID)
	}
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

// GetByID retrieves a job by ID
func (r *jobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PrintJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return cloneJob(job), nil
}

// Update replaces a stored job
func (r *jobRepository) Update(ctx context.Context, job *model.PrintJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, job.ID)
	}
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

// List returns jobs matching filter, newest first
func (r *jobRepository) List(ctx context.Context, filter *JobFilter) ([]*model.PrintJob, int, error) {
	if filter == nil {
		filter = &JobFilter{}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	r.mu.RLock()
	matched := make([]*model.PrintJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		if filter.Status != nil && job.Status != *filter.Status {
			continue
		}
		if filter.Kind != nil && job.Kind != *filter.Kind {
			continue
		}
		matched = append(matched, cloneJob(job))
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if filter.Offset >= total {
		return []*model.PrintJob{}, total, nil
	}
	end := min(filter.Offset+limit, total)
	return matched[filter.Offset:end], total, nil
}

// DeleteOldJobs removes completed jobs created before olderThan
func (r *jobRepository) DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, job := range r.jobs {
		if job.IsCompleted() && job.CreatedAt.Before(olderThan) {
			delete(r.jobs, id)
			deleted++
		}
	}

	if deleted > 0 {
		r.logger.Info("Old print jobs deleted", zap.Int64("count", deleted))
	}
	return deleted, nil
}

func cloneJob(job *model.PrintJob) *model.PrintJob {
	c := *job
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	if job.DurationMs != nil {
		d := *job.DurationMs
		c.DurationMs = &d
	}
	if job.ErrorMessage != nil {
		m := *job.ErrorMessage
		c.ErrorMessage = &m
	}
	return &c
}
