package jobs

import (
	"context"
	"time"

	"github.com/killallgit/sermon-clips/internal/models"
)

// Service defines the business logic interface for job operations
type Service interface {
	// Enqueue operations
	EnqueueJob(ctx context.Context, jobType models.JobType, payload map[string]any, opts ...JobOption) (*models.Job, error)
	EnqueueUniqueJob(ctx context.Context, jobType models.JobType, entityKey string, payload map[string]any, opts ...JobOption) (*models.Job, error)

	// Status and retrieval
	GetJob(ctx context.Context, jobID uint) (*models.Job, error)
	ActiveJobFor(ctx context.Context, entityKey string) (*models.Job, error)

	// Worker operations (used by worker pools)
	ClaimNextJob(ctx context.Context, workerID, queue string) (*models.Job, error)
	UpdateProgress(ctx context.Context, jobID uint, progress int) error
	CompleteJob(ctx context.Context, jobID uint, result map[string]any) error
	FailJob(ctx context.Context, jobID uint, err error) error
	ReleaseJob(ctx context.Context, jobID uint) error
	// ReclaimStaleJobs requeues jobs left in processing for longer than
	// olderThan, e.g. by a process that died mid-job.
	ReclaimStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error)

	// Maintenance
	CleanupOldJobs(ctx context.Context, retention time.Duration) (int64, error)
}

// JobOption is a functional option for configuring jobs
type JobOption func(*jobConfig)

type jobConfig struct {
	Priority   *int
	MaxRetries int
	CreatedBy  string
	RenderType string
}

// WithPriority overrides the queue's default priority (0-9).
func WithPriority(priority int) JobOption {
	return func(cfg *jobConfig) {
		p := max(0, min(9, priority))
		cfg.Priority = &p
	}
}

// WithMaxRetries sets the maximum number of attempts for a job
func WithMaxRetries(retries int) JobOption {
	return func(cfg *jobConfig) {
		cfg.MaxRetries = retries
	}
}

// WithCreatedBy sets who created the job
func WithCreatedBy(createdBy string) JobOption {
	return func(cfg *jobConfig) {
		cfg.CreatedBy = createdBy
	}
}

// WithRenderType routes a render job to the preview or final queue.
func WithRenderType(renderType string) JobOption {
	return func(cfg *jobConfig) {
		cfg.RenderType = renderType
	}
}

// Backoff controls when a failed job becomes claimable again.
type Backoff struct {
	Base      time.Duration
	Max       time.Duration
	MaxJitter time.Duration
}

func DefaultBackoff() Backoff {
	return Backoff{Base: 5 * time.Second, Max: 300 * time.Second, MaxJitter: 3 * time.Second}
}
