package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"gorm.io/datatypes"

	"github.com/killallgit/sermon-clips/internal/models"
)

const DefaultMaxRetries = 3

type service struct {
	repo    Repository
	backoff Backoff
	now     func() time.Time
	jitter  func(limit time.Duration) time.Duration
}

func NewService(repo Repository, backoff Backoff) Service {
	if backoff.Base <= 0 || backoff.Max <= 0 {
		backoff = DefaultBackoff()
	}
	return &service{
		repo:    repo,
		backoff: backoff,
		now:     func() time.Time { return time.Now().UTC() },
		jitter:  randomJitter,
	}
}

func (s *service) newJob(jobType models.JobType, entityKey string, payload map[string]any, opts []JobOption) *models.Job {
	cfg := &jobConfig{MaxRetries: DefaultMaxRetries}
	for _, opt := range opts {
		opt(cfg)
	}

	queue := models.QueueFor(jobType, cfg.RenderType)
	priority := models.QueuePriority[queue]
	if cfg.Priority != nil {
		priority = *cfg.Priority
	}

	return &models.Job{
		Type:       jobType,
		Queue:      queue,
		Status:     models.JobStatusPending,
		EntityKey:  entityKey,
		Payload:    jsonMap(payload),
		Priority:   priority,
		MaxRetries: cfg.MaxRetries,
		CreatedBy:  cfg.CreatedBy,
	}
}

func (s *service) EnqueueJob(ctx context.Context, jobType models.JobType, payload map[string]any, opts ...JobOption) (*models.Job, error) {
	job := s.newJob(jobType, "", payload, opts)
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	log.Printf("[DEBUG] Enqueued %s job ID %d on %s with priority %d", jobType, job.ID, job.Queue, job.Priority)
	return job, nil
}

// EnqueueUniqueJob enqueues at most one non-terminal job per entity. When one
// exists it is returned together with ErrJobInFlight.
func (s *service) EnqueueUniqueJob(ctx context.Context, jobType models.JobType, entityKey string, payload map[string]any, opts ...JobOption) (*models.Job, error) {
	if entityKey == "" {
		return nil, errors.New("entity key is required")
	}

	job, err := s.repo.CreateUniqueJob(ctx, s.newJob(jobType, entityKey, payload, opts))
	if err != nil {
		if errors.Is(err, ErrJobInFlight) {
			log.Printf("[DEBUG] Job already in flight for %s (ID: %d, Status: %s)", entityKey, job.ID, job.Status)
			return job, err
		}
		return nil, fmt.Errorf("creating job: %w", err)
	}

	log.Printf("[DEBUG] Enqueued %s job ID %d for %s on %s", jobType, job.ID, entityKey, job.Queue)
	return job, nil
}

func (s *service) GetJob(ctx context.Context, jobID uint) (*models.Job, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return job, nil
}

func (s *service) ActiveJobFor(ctx context.Context, entityKey string) (*models.Job, error) {
	return s.repo.GetActiveJobByEntity(ctx, entityKey)
}

func (s *service) ClaimNextJob(ctx context.Context, workerID, queue string) (*models.Job, error) {
	job, err := s.repo.ClaimNextJob(ctx, workerID, queue, s.now())
	if err != nil {
		if errors.Is(err, ErrNoJobsAvailable) {
			return nil, err
		}
		return nil, fmt.Errorf("claiming job: %w", err)
	}

	log.Printf("[DEBUG] Worker %s claimed %s job ID %d (attempt %d/%d)",
		workerID, job.Type, job.ID, job.RetryCount+1, job.MaxRetries)
	return job, nil
}

func (s *service) UpdateProgress(ctx context.Context, jobID uint, progress int) error {
	if err := s.repo.UpdateJobProgress(ctx, jobID, progress); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return err
		}
		return fmt.Errorf("updating job progress: %w", err)
	}
	if progress%25 == 0 {
		log.Printf("[DEBUG] Job %d progress: %d%%", jobID, progress)
	}
	return nil
}

func (s *service) CompleteJob(ctx context.Context, jobID uint, result map[string]any) error {
	if err := s.repo.CompleteJob(ctx, jobID, result); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return err
		}
		return fmt.Errorf("completing job: %w", err)
	}

	log.Printf("[DEBUG] Job %d completed successfully", jobID)
	return nil
}

// FailJob records a failed attempt and schedules the next one with
// exponential backoff plus jitter.
func (s *service) FailJob(ctx context.Context, jobID uint, err error) error {
	var jobErr *models.StructuredJobError
	if !errors.As(err, &jobErr) {
		jobErr = models.NewJobError(models.ErrorTypeSystem, "unclassified", err.Error(), err)
	}

	current, getErr := s.repo.GetJob(ctx, jobID)
	if getErr != nil {
		return getErr
	}
	nextRunAt := s.now().Add(s.retryDelay(current.RetryCount))

	job, failErr := s.repo.FailJobWithDetails(ctx, jobID, jobErr, nextRunAt)
	if failErr != nil {
		if errors.Is(failErr, ErrJobNotFound) {
			return failErr
		}
		return fmt.Errorf("failing job: %w", failErr)
	}

	if job.Status == models.JobStatusFailed {
		log.Printf("[ERROR] Job %d failed with %s error '%s' (attempt %d/%d, next at %s): %s",
			jobID, jobErr.Type, jobErr.Code, job.RetryCount, job.MaxRetries, nextRunAt.Format(time.RFC3339), jobErr.Message)
	} else {
		log.Printf("[ERROR] Job %d failed permanently with %s error '%s': %s",
			jobID, jobErr.Type, jobErr.Code, jobErr.Message)
	}
	return nil
}

// retryDelay is min(max, base*2^retries) plus jitter.
func (s *service) retryDelay(retries int) time.Duration {
	d := s.backoff.Base << max(0, retries)
	if d <= 0 || d > s.backoff.Max {
		d = s.backoff.Max
	}
	if s.backoff.MaxJitter > 0 {
		d += s.jitter(s.backoff.MaxJitter)
	}
	return d
}

func randomJitter(limit time.Duration) time.Duration {
	return time.Duration(rand.Int64N(int64(limit) + 1))
}

func (s *service) ReleaseJob(ctx context.Context, jobID uint) error {
	if err := s.repo.ReleaseJob(ctx, jobID); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return err
		}
		return fmt.Errorf("releasing job: %w", err)
	}

	log.Printf("[DEBUG] Job %d released back to pending", jobID)
	return nil
}

func (s *service) ReclaimStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.repo.ReleaseStaleJobs(ctx, s.now().Add(-max(0, olderThan)))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[WARN] Requeued %d jobs left in processing by a stopped worker", n)
	}
	return n, nil
}

func (s *service) CleanupOldJobs(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive")
	}

	deleted, err := s.repo.DeleteOldJobs(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("cleaning up old jobs: %w", err)
	}
	if deleted > 0 {
		log.Printf("[DEBUG] Deleted %d old jobs (older than %s)", deleted, retention)
	}
	return deleted, nil
}

func jsonMap(m map[string]any) datatypes.JSONMap {
	if m == nil {
		return nil
	}
	return datatypes.JSONMap(m)
}
