package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/killallgit/sermon-clips/internal/models"
)

// Repository errors
var (
	ErrJobNotFound     = errors.New("job not found")
	ErrNoJobsAvailable = errors.New("no jobs available")
	ErrJobInFlight     = errors.New("a job for this entity is already in flight")
)

// Repository defines the interface for job persistence
type Repository interface {
	CreateJob(ctx context.Context, job *models.Job) error
	CreateUniqueJob(ctx context.Context, job *models.Job) (*models.Job, error)

	GetJob(ctx context.Context, id uint) (*models.Job, error)
	GetActiveJobByEntity(ctx context.Context, entityKey string) (*models.Job, error)

	ClaimNextJob(ctx context.Context, workerID, queue string, now time.Time) (*models.Job, error)
	UpdateJobProgress(ctx context.Context, jobID uint, progress int) error
	CompleteJob(ctx context.Context, jobID uint, result map[string]any) error
	FailJobWithDetails(ctx context.Context, jobID uint, jobErr *models.StructuredJobError, nextRunAt time.Time) (*models.Job, error)
	ReleaseJob(ctx context.Context, jobID uint) error
	ReleaseStaleJobs(ctx context.Context, startedBefore time.Time) (int64, error)

	DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new job repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateJob(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// CreateUniqueJob inserts job unless a non-terminal job with the same entity
// key exists, in which case that job and ErrJobInFlight are returned.
func (r *repository) CreateUniqueJob(ctx context.Context, job *models.Job) (*models.Job, error) {
	var existing *models.Job
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active models.Job
		err := activeScope(tx, job.EntityKey).First(&active).Error
		if err == nil {
			existing = &active
			return ErrJobInFlight
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("checking active jobs: %w", err)
		}
		return tx.Create(job).Error
	})
	if err != nil {
		return existing, err
	}
	return job, nil
}

func (r *repository) GetJob(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).First(&job, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return &job, nil
}

func (r *repository) GetActiveJobByEntity(ctx context.Context, entityKey string) (*models.Job, error) {
	var job models.Job
	err := activeScope(r.db.WithContext(ctx), entityKey).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("getting active job: %w", err)
	}
	return &job, nil
}

// activeScope matches non-terminal jobs for an entity: pending, processing,
// or failed with attempts left.
func activeScope(db *gorm.DB, entityKey string) *gorm.DB {
	return db.Where("entity_key = ?", entityKey).
		Where("(status IN ? OR (status = ? AND retry_count < max_retries))",
			[]models.JobStatus{models.JobStatusPending, models.JobStatusProcessing},
			models.JobStatusFailed).
		Order("created_at DESC")
}

// ClaimNextJob atomically claims the next runnable job on a queue
func (r *repository) ClaimNextJob(ctx context.Context, workerID, queue string, now time.Time) (*models.Job, error) {
	var job models.Job

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("queue = ?", queue).
			Where("(status = ? OR (status = ? AND retry_count < max_retries))",
				models.JobStatusPending, models.JobStatusFailed).
			Where("next_run_at IS NULL OR next_run_at <= ?", now).
			Order("priority DESC, created_at ASC").
			First(&job).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoJobsAvailable
			}
			return fmt.Errorf("finding job to claim: %w", err)
		}

		updates := map[string]any{
			"status":     models.JobStatusProcessing,
			"worker_id":  workerID,
			"started_at": &now,
		}
		res := tx.Model(&models.Job{}).
			Where("id = ? AND status = ?", job.ID, job.Status).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("updating claimed job: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNoJobsAvailable
		}

		job.Status = models.JobStatusProcessing
		job.WorkerID = workerID
		job.StartedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) UpdateJobProgress(ctx context.Context, jobID uint, progress int) error {
	progress = max(0, min(100, progress))

	result := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusProcessing).
		Update("progress", progress)
	if result.Error != nil {
		return fmt.Errorf("updating job progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *repository) CompleteJob(ctx context.Context, jobID uint, result map[string]any) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":       models.JobStatusCompleted,
		"progress":     100,
		"completed_at": &now,
		"worker_id":    "",
		"result":       jsonMap(result),
	}

	res := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", jobID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("completing job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// FailJobWithDetails records a failed attempt. The job becomes claimable
// again at nextRunAt, or permanently fails once attempts are exhausted or
// the error is permanent.
func (r *repository) FailJobWithDetails(ctx context.Context, jobID uint, jobErr *models.StructuredJobError, nextRunAt time.Time) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&job, jobID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrJobNotFound
			}
			return fmt.Errorf("finding job to fail: %w", err)
		}

		now := time.Now().UTC()
		job.RetryCount++
		job.Status = models.JobStatusFailed
		if job.RetryCount >= job.MaxRetries || jobErr.Permanent() {
			job.Status = models.JobStatusPermanentlyFailed
		}

		updates := map[string]any{
			"status":         job.Status,
			"error":          jobErr.Message,
			"error_type":     string(jobErr.Type),
			"error_code":     jobErr.Code,
			"error_details":  jobErr.Details,
			"last_failed_at": &now,
			"retry_count":    job.RetryCount,
			"worker_id":      "",
		}
		if job.Status == models.JobStatusPermanentlyFailed {
			updates["completed_at"] = &now
			updates["next_run_at"] = nil
		} else {
			updates["next_run_at"] = &nextRunAt
		}

		if err := tx.Model(&models.Job{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failing job: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ReleaseJob returns a processing job to pending, e.g. on shutdown
func (r *repository) ReleaseJob(ctx context.Context, jobID uint) error {
	updates := map[string]any{
		"status":     models.JobStatusPending,
		"worker_id":  "",
		"started_at": nil,
		"progress":   0,
	}

	result := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusProcessing).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("releasing job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// ReleaseStaleJobs returns processing jobs claimed before startedBefore to
// pending. Their workers are gone, and until released they hold their
// entity key.
func (r *repository) ReleaseStaleJobs(ctx context.Context, startedBefore time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("status = ?", models.JobStatusProcessing).
		Where("started_at IS NULL OR started_at < ?", startedBefore).
		Updates(map[string]any{
			"status":     models.JobStatusPending,
			"worker_id":  "",
			"started_at": nil,
			"progress":   0,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("releasing stale jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteOldJobs deletes terminal jobs created before olderThan
func (r *repository) DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("created_at < ?", olderThan).
		Where("status IN ?", []models.JobStatus{
			models.JobStatusCompleted,
			models.JobStatusPermanentlyFailed,
			models.JobStatusCancelled,
		}).
		Delete(&models.Job{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting old jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
